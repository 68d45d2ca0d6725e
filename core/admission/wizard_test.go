package admission

import (
	"bytes"
	"context"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core/site"
)

type fakeChecker struct {
	mu    sync.Mutex
	taken map[string]bool
	gates map[string]chan struct{} // a lookup blocks until the gate of its number is closed
	err   error
	calls []string
}

func newFakeChecker(taken ...string) *fakeChecker {
	c := &fakeChecker{taken: make(map[string]bool), gates: make(map[string]chan struct{})}
	for _, n := range taken {
		c.taken[n] = true
	}
	return c
}

func (c *fakeChecker) gate(number string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := make(chan struct{})
	c.gates[number] = g
	return g
}

func (c *fakeChecker) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *fakeChecker) IsUIDAIAvailable(_ context.Context, number string) (bool, error) {
	c.mu.Lock()
	c.calls = append(c.calls, number)
	gate, err, taken := c.gates[number], c.err, c.taken[number]
	c.mu.Unlock()

	if gate != nil {
		<-gate // ignores cancellation, answers arrive late on purpose
	}
	if err != nil {
		return false, err
	}
	return !taken, nil
}

type fakeSubmitter struct {
	mu    sync.Mutex
	err   error
	got   []NewApplication
	count int
}

func (s *fakeSubmitter) Submit(_ context.Context, na NewApplication, uploads Uploads) (Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, na)
	if s.err != nil {
		return Application{}, s.err
	}
	s.count++
	app := na.application()
	app.ApplicationID = "ADM2026" + strconv.Itoa(100000+s.count)
	app.Status = StatusPending
	app.DateSubmitted = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for slot := range uploads {
		app.Documents.Set(slot, string(slot)+".bin")
	}
	app.normalize()
	return app, nil
}

func (w *Wizard) uidaiDone() chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.uidai.done
}

// fill enters every field of `na` & attaches `uploads`, the UIDAI number last.
func fill(t *testing.T, w *Wizard, na NewApplication, uploads Uploads) {
	t.Helper()
	ctx := context.Background()
	rv := reflect.ValueOf(na)
	for name, idx := range wizardFields {
		fv := rv.Field(idx)
		if name == "uidai_number" || percentageFields[name] || fv.Kind() != reflect.String {
			continue
		}
		require.NoError(t, w.SetField(ctx, name, fv.String()), name)
	}
	require.NoError(t, w.SetField(ctx, "uidai_number", na.UIDAINumber))
	w.SetDeclaration(na.Declaration)
	for slot, up := range uploads {
		require.NoError(t, w.AttachDocument(slot, up))
	}
}

func walkToReview(t *testing.T, w *Wizard) {
	t.Helper()
	for step := StepPersonal; step < StepReview; step++ {
		require.NoError(t, w.Next(context.Background()), step.String())
	}
	require.Equal(t, StepReview, w.Step())
}

func TestWizard_SetField(t *testing.T) {
	w := NewWizard(newTestValidator(false), newFakeChecker(), &fakeSubmitter{})
	defer w.Close()
	ctx := context.Background()

	require.NoError(t, w.SetField(ctx, "class_10th_marks_obtained", "425"))
	assert.Equal(t, "", w.Data().Class10thPercentage)
	require.NoError(t, w.SetField(ctx, "class_10th_total_marks", "500"))
	assert.Equal(t, "85.00", w.Data().Class10thPercentage)
	require.NoError(t, w.SetField(ctx, "class_10th_marks_obtained", "400"))
	assert.Equal(t, "80.00", w.Data().Class10thPercentage)
	require.NoError(t, w.SetField(ctx, "class_10th_total_marks", "0"))
	assert.Equal(t, "", w.Data().Class10thPercentage)

	require.NoError(t, w.SetField(ctx, "class_12th_marks_obtained", "1"))
	require.NoError(t, w.SetField(ctx, "class_12th_total_marks", "3"))
	assert.Equal(t, "33.33", w.Data().Class12thPercentage)

	err := w.SetField(ctx, "class_10th_percentage", "99.00")
	assert.Equal(t, ErrReadOnlyField, errors.Cause(err))
	err = w.SetField(ctx, "lol", "x")
	assert.Equal(t, ErrUnknownField, errors.Cause(err))

	require.NoError(t, w.SetField(ctx, "declaration", "true"))
	assert.True(t, w.Data().Declaration)
	fieldErrs := fieldErrors(t, w.SetField(ctx, "declaration", "maybe"))
	assert.Equal(t, "must be true or false", fieldErrs["declaration"])
}

func TestWizard_navigation(t *testing.T) {
	w := NewWizard(newTestValidator(false), newFakeChecker(), &fakeSubmitter{})
	defer w.Close()
	ctx := context.Background()

	assert.Equal(t, StepPersonal, w.Step())
	assert.Equal(t, ErrFirstStep, w.Previous())

	// invalid step: stays put & remembers the error
	err := w.Next(ctx)
	flds := fieldErrors(t, err)
	assert.Equal(t, requiredText, flds["name"])
	assert.Equal(t, StepPersonal, w.Step())
	assert.Equal(t, err, w.LastError())

	fill(t, w, validApplication(), validUploads())
	require.NoError(t, w.Next(ctx))
	assert.Nil(t, w.LastError())
	assert.Equal(t, StepAddress, w.Step())

	require.NoError(t, w.Previous())
	assert.Equal(t, StepPersonal, w.Step())

	walkToReview(t, w)
	assert.Equal(t, ErrNotOnReviewStep, w.Next(ctx))

	// data entered earlier is kept while moving back & forth
	require.NoError(t, w.Previous())
	require.NoError(t, w.Previous())
	assert.Equal(t, StepPreferences, w.Step())
	assert.Equal(t, "Electrician", w.Data().Trade)

	_, err = w.Submit(ctx)
	assert.Equal(t, ErrNotOnReviewStep, err)
}

func TestWizard_uidaiLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("partial numbers are not looked up", func(t *testing.T) {
		checker := newFakeChecker()
		w := NewWizard(newTestValidator(false), checker, &fakeSubmitter{})
		defer w.Close()

		for _, n := range []string{"1", "12345", "12345678901", "1234567890ab"} {
			require.NoError(t, w.SetField(ctx, "uidai_number", n))
			assert.Equal(t, UIDAIUnchecked, w.UIDAIStatus())
		}
		assert.Empty(t, checker.calls)
	})

	t.Run("taken number blocks the first step", func(t *testing.T) {
		na := validApplication()
		checker := newFakeChecker(na.UIDAINumber)
		w := NewWizard(newTestValidator(false), checker, &fakeSubmitter{})
		defer w.Close()

		fill(t, w, na, nil)
		flds := fieldErrors(t, w.Next(ctx))
		assert.Equal(t, ErrUIDAIExists.Error(), flds["uidai_number"])
		assert.Equal(t, UIDAITaken, w.UIDAIStatus())
		assert.Equal(t, StepPersonal, w.Step())

		// fixing the number clears the error
		require.NoError(t, w.SetField(ctx, "uidai_number", "210987654321"))
		require.NoError(t, w.Next(ctx))
		assert.Equal(t, UIDAIAvailable, w.UIDAIStatus())
	})

	t.Run("Next waits for the lookup in flight", func(t *testing.T) {
		na := validApplication()
		checker := newFakeChecker(na.UIDAINumber)
		gate := checker.gate(na.UIDAINumber)
		w := NewWizard(newTestValidator(false), checker, &fakeSubmitter{})
		defer w.Close()

		fill(t, w, na, nil)
		assert.Equal(t, UIDAIChecking, w.UIDAIStatus())

		go func() {
			time.Sleep(20 * time.Millisecond)
			close(gate)
		}()
		fieldErrs := fieldErrors(t, w.Next(ctx))
		assert.Equal(t, ErrUIDAIExists.Error(), fieldErrs["uidai_number"])
	})

	t.Run("stale answers are dropped", func(t *testing.T) {
		checker := newFakeChecker("111111111111")
		gate := checker.gate("111111111111")
		w := NewWizard(newTestValidator(false), checker, &fakeSubmitter{})
		defer w.Close()

		require.NoError(t, w.SetField(ctx, "uidai_number", "111111111111"))
		staleDone := w.uidaiDone()
		require.NoError(t, w.SetField(ctx, "uidai_number", "222222222222"))
		<-w.uidaiDone()
		assert.Equal(t, UIDAIAvailable, w.UIDAIStatus())

		// the answer for the old number arrives last
		close(gate)
		<-staleDone
		assert.Equal(t, UIDAIAvailable, w.UIDAIStatus())
		assert.ElementsMatch(t, []string{"111111111111", "222222222222"}, checker.calls)
	})

	t.Run("failed lookup is retried on Next", func(t *testing.T) {
		na := validApplication()
		checker := newFakeChecker()
		checker.setErr(errors.New("network down"))
		w := NewWizard(newTestValidator(false), checker, &fakeSubmitter{})
		defer w.Close()

		fill(t, w, na, nil)
		<-w.uidaiDone()
		assert.Equal(t, UIDAIFailed, w.UIDAIStatus())

		err := w.Next(ctx)
		assert.EqualError(t, err, "checking UIDAI number: network down")
		assert.Equal(t, StepPersonal, w.Step())

		checker.setErr(nil)
		require.NoError(t, w.Next(ctx))
		assert.Equal(t, UIDAIAvailable, w.UIDAIStatus())
		assert.Len(t, checker.calls, 3)
	})
}

func TestWizard_Submit(t *testing.T) {
	ctx := context.Background()
	submitter := &fakeSubmitter{err: errors.New("connection reset")}
	w := NewWizard(newTestValidator(false), newFakeChecker(), submitter)
	defer w.Close()

	na := validApplication()
	fill(t, w, na, validUploads())
	walkToReview(t, w)

	// declaration is checked last, on the review step
	w.SetDeclaration(false)
	_, err := w.Submit(ctx)
	assert.Equal(t, declarationText, fieldErrors(t, err)["declaration"])
	assert.Empty(t, submitter.got)
	w.SetDeclaration(true)

	// a failed submission keeps everything for a retry
	_, err = w.Submit(ctx)
	assert.EqualError(t, err, "connection reset")
	assert.Equal(t, StepReview, w.Step())
	assert.Equal(t, err, w.LastError())
	data := w.Data()
	assert.Equal(t, na.Name, data.Name)
	assert.Equal(t, "85.00", data.Class10thPercentage)
	_, ok := w.Receipt()
	assert.False(t, ok)

	submitter.mu.Lock()
	submitter.err = nil
	submitter.mu.Unlock()

	app, err := w.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepSubmitted, w.Step())
	assert.Nil(t, w.LastError())
	assert.Equal(t, StatusPending, app.Status)
	assert.Equal(t, "85.00", app.Class10thPercentage)
	assert.NotEmpty(t, app.ApplicationID)
	require.Len(t, submitter.got, 2)
	assert.Equal(t, submitter.got[0], submitter.got[1])

	receipt, ok := w.Receipt()
	require.True(t, ok)
	assert.Equal(t, app, receipt)

	var buf bytes.Buffer
	require.NoError(t, w.RenderReceipt(&buf, site.Settings{CollegeName: "ITI Danapur"}, "2026-27"))
	assert.Contains(t, buf.String(), app.ApplicationID)
	assert.Contains(t, buf.String(), "ITI Danapur")

	// read-only from now on
	_, err = w.Submit(ctx)
	assert.Equal(t, ErrAlreadySubmitted, err)
	assert.Equal(t, ErrAlreadySubmitted, w.SetField(ctx, "name", "Other"))
	assert.Equal(t, ErrAlreadySubmitted, w.AttachDocument(SlotPhoto, Upload{Data: []byte("x")}))
	assert.Equal(t, ErrAlreadySubmitted, w.Next(ctx))
	assert.Equal(t, ErrAlreadySubmitted, w.Previous())
}

func TestWizard_Submit_revalidatesEverything(t *testing.T) {
	ctx := context.Background()
	submitter := &fakeSubmitter{}
	w := NewWizard(newTestValidator(false), newFakeChecker(), submitter)
	defer w.Close()

	fill(t, w, validApplication(), validUploads())
	walkToReview(t, w)
	w.DetachDocument(SlotAadhaar)

	_, err := w.Submit(ctx)
	flds := fieldErrors(t, err)
	assert.Equal(t, documentText, flds["aadhaar"])
	assert.Empty(t, submitter.got)
	assert.Equal(t, StepReview, w.Step())
}

func TestWizard_Submit_duplicateBlocksPersonalStep(t *testing.T) {
	ctx := context.Background()
	submitter := &fakeSubmitter{err: errors.Wrap(uidaiConflict(), "submitting")}
	w := NewWizard(newTestValidator(false), newFakeChecker(), submitter)
	defer w.Close()

	na := validApplication()
	fill(t, w, na, validUploads())
	walkToReview(t, w)

	_, err := w.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, StepReview, w.Step())
	assert.Equal(t, UIDAITaken, w.UIDAIStatus())

	for w.Step() != StepPersonal {
		require.NoError(t, w.Previous())
	}
	err = w.Next(ctx)
	assert.Equal(t, ErrUIDAIExists.Error(), fieldErrors(t, err)["uidai_number"])
	assert.Equal(t, StepPersonal, w.Step())

	// another number clears it
	require.NoError(t, w.SetField(ctx, "uidai_number", "998877665544"))
	<-w.uidaiDone()
	require.NoError(t, w.Next(ctx))
	assert.Equal(t, StepAddress, w.Step())
}

func TestWizard_AttachDocument(t *testing.T) {
	w := NewWizard(newTestValidator(false), newFakeChecker(), &fakeSubmitter{})
	defer w.Close()

	_, err := ParseDocumentSlot("passport")
	require.Error(t, err)
	assert.Error(t, w.AttachDocument("passport", Upload{Data: []byte("x")}))

	flds := fieldErrors(t, w.AttachDocument(SlotPhoto, Upload{Filename: "photo.jpg"}))
	assert.Equal(t, "the file is empty", flds["photo"])

	require.NoError(t, w.AttachDocument(SlotPhoto, Upload{Filename: "photo.jpg", Data: []byte("x")}))
	_, uploads, _ := w.snapshot()
	assert.True(t, uploads.Has(SlotPhoto))

	w.DetachDocument(SlotPhoto)
	_, uploads, _ = w.snapshot()
	assert.False(t, uploads.Has(SlotPhoto))
}
