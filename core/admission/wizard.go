package admission

import (
	"context"
	"io"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/site"
)

var (
	ErrUnknownField     = errors.New("unknown field")
	ErrReadOnlyField    = errors.New("field is computed and cannot be set")
	ErrFirstStep        = errors.New("already on the first step")
	ErrNotOnReviewStep  = errors.New("applications can only be submitted from the review step")
	ErrAlreadySubmitted = errors.New("application already submitted")
)

type (
	// UIDAIChecker looks up whether a UIDAI number is still free.
	UIDAIChecker interface {
		IsUIDAIAvailable(ctx context.Context, number string) (bool, error)
	}

	// Submitter creates the application from a complete wizard payload.
	Submitter interface {
		Submit(ctx context.Context, na NewApplication, uploads Uploads) (Application, error)
	}
)

// UIDAIStatus is the outcome of the latest duplicate lookup.
type UIDAIStatus int

const (
	UIDAIUnchecked UIDAIStatus = iota
	UIDAIChecking
	UIDAIAvailable
	UIDAITaken
	UIDAIFailed
)

// {json name: field index} of the settable NewApplication fields
var wizardFields = func() map[string]int {
	typ := reflect.TypeOf(NewApplication{})
	flds := make(map[string]int, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		name := strings.SplitN(typ.Field(i).Tag.Get("json"), ",", 2)[0]
		if name != "" && name != "-" {
			flds[name] = i
		}
	}
	return flds
}()

var marksFields = map[string]bool{
	"class_10th_marks_obtained": true,
	"class_10th_total_marks":    true,
	"class_12th_marks_obtained": true,
	"class_12th_total_marks":    true,
}

var percentageFields = map[string]bool{
	"class_10th_percentage": true,
	"class_12th_percentage": true,
}

type uidaiCheck struct {
	seq    uint64 // bumped on every edit; results of older lookups are dropped
	number string
	status UIDAIStatus
	done   chan struct{} // closed when the lookup for seq finishes
	cancel context.CancelFunc
}

// Wizard walks an applicant through the six application steps, then submits once.
// It is safe for concurrent use.
type Wizard struct {
	validator *Validator
	checker   UIDAIChecker
	submitter Submitter

	mu        sync.Mutex
	step      Step
	data      NewApplication
	uploads   Uploads
	uidai     uidaiCheck
	lastErr   error
	submitted *Application
}

func NewWizard(v *Validator, checker UIDAIChecker, submitter Submitter) *Wizard {
	return &Wizard{
		validator: v,
		checker:   checker,
		submitter: submitter,
		step:      StepPersonal,
		data:      NewApplication{PWDClaim: No, StudentCreditCard: No},
		uploads:   make(Uploads),
	}
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Data returns a copy of the entered data, percentages included.
func (w *Wizard) Data() NewApplication {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.data
}

// LastError returns the error of the last failed Next or Submit, cleared on success.
func (w *Wizard) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *Wizard) UIDAIStatus() UIDAIStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.uidai.status
}

// SetField sets the field named `field` (JSON name) to `value`.
// Marks edits recompute the matching percentage immediately. A UIDAI number reaching 12 digits
// starts a duplicate lookup in the background, bound to `ctx`.
func (w *Wizard) SetField(ctx context.Context, field, value string) error {
	if percentageFields[field] {
		return errors.Wrap(ErrReadOnlyField, field)
	}
	idx, ok := wizardFields[field]
	if !ok {
		return errors.Wrap(ErrUnknownField, field)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepSubmitted {
		return ErrAlreadySubmitted
	}

	fv := reflect.ValueOf(&w.data).Elem().Field(idx)
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: field, Error: "must be true or false"})
		}
		fv.SetBool(b)
	default:
		return errors.Wrap(ErrUnknownField, field)
	}

	if marksFields[field] {
		w.data.Class10thPercentage = CalcPercentage(w.data.Class10thMarksObtained, w.data.Class10thTotalMarks)
		w.data.Class12thPercentage = CalcPercentage(w.data.Class12thMarksObtained, w.data.Class12thTotalMarks)
	}
	if field == "uidai_number" {
		w.uidaiChanged(ctx, value)
	}
	return nil
}

func (w *Wizard) SetDeclaration(accepted bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data.Declaration = accepted
}

func (w *Wizard) AttachDocument(slot DocumentSlot, up Upload) error {
	if _, err := ParseDocumentSlot(string(slot)); err != nil {
		return err
	}
	if len(up.Data) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: string(slot), Error: "the file is empty"})
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepSubmitted {
		return ErrAlreadySubmitted
	}
	w.uploads[slot] = up
	return nil
}

func (w *Wizard) DetachDocument(slot DocumentSlot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.uploads, slot)
}

// uidaiChanged must be called with w.mu held.
func (w *Wizard) uidaiChanged(ctx context.Context, number string) {
	if w.uidai.cancel != nil {
		w.uidai.cancel()
		w.uidai.cancel = nil
	}
	w.uidai.seq++
	w.uidai.number = number
	w.uidai.done = nil
	w.uidai.status = UIDAIUnchecked

	// a malformed number is reported by the step rules, no need to look it up
	if !core.IsDigits(number, 12) {
		return
	}

	lctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.uidai.status = UIDAIChecking
	w.uidai.done = done
	w.uidai.cancel = cancel
	go w.lookupUIDAI(lctx, w.uidai.seq, number, done)
}

func (w *Wizard) lookupUIDAI(ctx context.Context, seq uint64, number string, done chan struct{}) {
	defer close(done)
	available, err := w.checker.IsUIDAIAvailable(ctx, number)
	w.recordUIDAI(seq, available, err)
}

func (w *Wizard) recordUIDAI(seq uint64, available bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if seq != w.uidai.seq {
		return // stale
	}
	switch {
	case err != nil:
		w.uidai.status = UIDAIFailed
	case available:
		w.uidai.status = UIDAIAvailable
	default:
		w.uidai.status = UIDAITaken
	}
}

// markUIDAITaken records a duplicate reported at submit time, unless `number` was edited since.
func (w *Wizard) markUIDAITaken(number string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.uidai.number != number {
		return
	}
	if w.uidai.cancel != nil {
		w.uidai.cancel()
		w.uidai.cancel = nil
	}
	w.uidai.seq++ // answers still in flight are stale now
	w.uidai.done = nil
	w.uidai.status = UIDAITaken
}

func isUIDAIConflict(err error) bool {
	cErr, ok := errors.Cause(err).(*core.ConflictError)
	if !ok {
		return false
	}
	for _, f := range cErr.Fields {
		if f.Field == "uidai_number" {
			return true
		}
	}
	return cErr.Err != nil && errors.Cause(cErr.Err) == ErrUIDAIExists
}

// awaitUIDAI waits for the in-flight lookup, and runs it again if it failed or never ran.
func (w *Wizard) awaitUIDAI(ctx context.Context) error {
	w.mu.Lock()
	seq, number, status, done := w.uidai.seq, w.uidai.number, w.uidai.status, w.uidai.done
	w.mu.Unlock()

	if !core.IsDigits(number, 12) {
		return nil
	}
	if status == UIDAIChecking && done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		w.mu.Lock()
		seq, status = w.uidai.seq, w.uidai.status
		w.mu.Unlock()
	}
	if status == UIDAIUnchecked || status == UIDAIFailed {
		available, err := w.checker.IsUIDAIAvailable(ctx, number)
		w.recordUIDAI(seq, available, err)
		if err != nil {
			return errors.Wrap(err, "checking UIDAI number")
		}
	}
	return nil
}

func (w *Wizard) snapshot() (NewApplication, Uploads, UIDAIStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	uploads := make(Uploads, len(w.uploads))
	for slot, up := range w.uploads {
		uploads[slot] = up
	}
	return w.data, uploads, w.uidai.status
}

// ValidateStep checks `step` against the current data. It does not move the wizard.
func (w *Wizard) ValidateStep(step Step) error {
	data, uploads, uidaiStatus := w.snapshot()
	err := w.validator.ValidateStep(data, uploads, step)
	if step == StepPersonal && uidaiStatus == UIDAITaken {
		dupErr := core.NewValidationError(nil, core.FieldError{Field: "uidai_number", Error: ErrUIDAIExists.Error()})
		return core.MergeValidationErrors(err, dupErr)
	}
	return err
}

func (w *Wizard) fail(err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = err
	return err
}

// Next validates the current step and advances. On failure the wizard stays where it is.
func (w *Wizard) Next(ctx context.Context) error {
	step := w.Step()
	switch step {
	case StepSubmitted:
		return ErrAlreadySubmitted
	case StepReview:
		return ErrNotOnReviewStep
	}

	if step == StepPersonal {
		if err := w.awaitUIDAI(ctx); err != nil {
			return w.fail(err)
		}
	}
	if err := w.ValidateStep(step); err != nil {
		return w.fail(err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == step {
		w.step++
	}
	w.lastErr = nil
	return nil
}

func (w *Wizard) Previous() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepSubmitted:
		return ErrAlreadySubmitted
	case StepPersonal:
		return ErrFirstStep
	}
	w.step--
	return nil
}

// Submit sends the application from the review step. The declaration must be accepted
// and every step must still be valid. On failure all entered data is kept for a retry.
func (w *Wizard) Submit(ctx context.Context) (Application, error) {
	switch w.Step() {
	case StepSubmitted:
		return Application{}, ErrAlreadySubmitted
	case StepReview: // ok
	default:
		return Application{}, ErrNotOnReviewStep
	}

	if err := w.ValidateStep(StepReview); err != nil {
		return Application{}, w.fail(err)
	}
	if err := w.awaitUIDAI(ctx); err != nil {
		return Application{}, w.fail(err)
	}
	for step := StepPersonal; step < StepReview; step++ {
		if err := w.ValidateStep(step); err != nil {
			return Application{}, w.fail(err)
		}
	}

	data, uploads, _ := w.snapshot()
	app, err := w.submitter.Submit(ctx, data, uploads)
	if err != nil {
		if isUIDAIConflict(err) {
			w.markUIDAITaken(data.UIDAINumber)
		}
		return Application{}, w.fail(err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.step = StepSubmitted
	w.submitted = &app
	w.lastErr = nil
	if w.uidai.cancel != nil {
		w.uidai.cancel()
		w.uidai.cancel = nil
	}
	return app, nil
}

// Receipt returns the submitted application, as returned by the Submitter.
func (w *Wizard) Receipt() (Application, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitted == nil {
		return Application{}, false
	}
	return *w.submitted, true
}

// RenderReceipt writes the printable receipt of the submitted application.
func (w *Wizard) RenderReceipt(out io.Writer, settings site.Settings, sessionName string) error {
	app, ok := w.Receipt()
	if !ok {
		return errors.New("nothing submitted yet")
	}
	return RenderReceipt(out, app, settings, sessionName)
}

// Close cancels any in-flight UIDAI lookup.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.uidai.cancel != nil {
		w.uidai.cancel()
		w.uidai.cancel = nil
	}
}
