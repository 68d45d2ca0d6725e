package admission

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/session"
)

type (
	Repository interface {
		// CreateApplication returns ErrUIDAIExists if another application holds the same UIDAI number.
		CreateApplication(ctx context.Context, app Application) (Application, error)
		GetApplication(ctx context.Context, dbID string) (Application, error)
		GetApplicationByUIDAI(ctx context.Context, number string) (Application, error)
		// QueryApplications applies AND on the set QueryFilter fields, newest first,
		// and returns the total number of matches along with the requested window.
		// QueryFilter.Search does a case-insensitive match on one of ApplicationID, Name, Mobile or Email.
		QueryApplications(ctx context.Context, filter QueryFilter, limit, offset int) ([]Application, int, error)
		// UpdateApplication returns ErrUIDAIExists if another application holds the same UIDAI number.
		UpdateApplication(ctx context.Context, app Application) (Application, error)
		UpdateApplicationStatus(ctx context.Context, dbID string, status Status, at time.Time) (Application, error)
	}

	// DocumentStore keeps the uploaded files. Save returns the stored filename.
	DocumentStore interface {
		Save(ctx context.Context, slot DocumentSlot, up Upload) (string, error)
		Open(ctx context.Context, filename string) (io.ReadCloser, error)
		Delete(ctx context.Context, filename string) error
	}

	SessionLookup interface {
		Get(ctx context.Context, id string) (session.Session, error)
	}

	QueryFilter struct {
		Status            string
		Trade             string
		Search            string
		RegistrationType  string
		StudentCreditCard string
	}

	Page struct {
		Items      []Application `json:"items"`
		Total      int           `json:"total"`
		Page       int           `json:"page"`
		PageSize   int           `json:"page_size"`
		TotalPages int           `json:"total_pages"`
		Stats      Stats         `json:"stats"`
	}

	Service struct {
		repo        Repository
		sessions    SessionLookup
		docs        DocumentStore
		validator   *Validator
		mailSvc     core.EmailService
		logger      core.Logger
		pageSize    int
		exportLimit int
		nowFunc     func() time.Time
	}
)

func NewService(
	repo Repository,
	sessions SessionLookup,
	docs DocumentStore,
	v *Validator,
	mailSvc core.EmailService,
	logger core.Logger,
	conf core.AdmissionConfig,
) *Service {
	svc := &Service{
		repo:        repo,
		sessions:    sessions,
		docs:        docs,
		validator:   v,
		mailSvc:     mailSvc,
		logger:      logger,
		pageSize:    conf.PageSize,
		exportLimit: conf.ExportLimit,
		nowFunc:     time.Now,
	}
	if svc.pageSize <= 0 {
		svc.pageSize = 10
	}
	if svc.exportLimit <= 0 {
		svc.exportLimit = 10000
	}
	return svc
}

func (svc *Service) Validator() *Validator {
	return svc.validator
}

func (svc *Service) now() time.Time {
	return svc.nowFunc().UTC()
}

func uidaiConflict() error {
	return core.NewConflictError(ErrUIDAIExists, core.FieldError{Field: "uidai_number", Error: ErrUIDAIExists.Error()})
}

// IsUIDAIAvailable reports whether no application holds `number` yet.
func (svc *Service) IsUIDAIAvailable(ctx context.Context, number string) (bool, error) {
	number = strings.TrimSpace(number)
	if !core.IsDigits(number, 12) {
		return false, core.NewValidationError(nil, core.FieldError{Field: "uidai_number", Error: uidaiText})
	}
	if _, err := svc.repo.GetApplicationByUIDAI(ctx, number); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return true, nil
		}
		return false, errors.Wrap(err, "finding application by UIDAI")
	}
	return false, nil
}

// checkUIDAI fails with a conflict if `number` belongs to an application other than `dbID`.
func (svc *Service) checkUIDAI(ctx context.Context, number, dbID string) error {
	if number == "" {
		return nil
	}
	app, err := svc.repo.GetApplicationByUIDAI(ctx, number)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding application by UIDAI")
	}
	if app.DBID != dbID {
		return uidaiConflict()
	}
	return nil
}

func (svc *Service) checkSession(ctx context.Context, id string, mustBeActive bool) error {
	if id == "" {
		return nil
	}
	s, err := svc.sessions.Get(ctx, id)
	if err != nil {
		if errors.Cause(err) == session.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "session_id", Error: "select a session from the list"})
		}
		return errors.Wrap(err, "getting session")
	}
	if mustBeActive && !s.IsActive {
		return core.NewValidationError(ErrSessionClosed, core.FieldError{Field: "session_id", Error: ErrSessionClosed.Error()})
	}
	return nil
}

func (svc *Service) saveDocuments(ctx context.Context, uploads Uploads) (Documents, error) {
	var docs Documents
	for _, slot := range DocumentSlots {
		if !uploads.Has(slot) {
			continue
		}
		fn, err := svc.docs.Save(ctx, slot, uploads[slot])
		if err != nil {
			svc.deleteDocuments(ctx, docs)
			return Documents{}, errors.Wrapf(err, "saving %s", slot)
		}
		docs.Set(slot, fn)
	}
	return docs, nil
}

func (svc *Service) deleteDocuments(ctx context.Context, docs Documents) {
	for _, fn := range docs.Filenames() {
		if err := svc.docs.Delete(ctx, fn); err != nil {
			svc.logger.Warn(fmt.Sprintf("admission.deleteDocuments(%s): %v", fn, err), err)
		}
	}
}

// Submit creates a pending application from a complete wizard payload & its documents.
func (svc *Service) Submit(ctx context.Context, na NewApplication, uploads Uploads) (Application, error) {
	if err := svc.validator.ValidateNew(na, uploads); err != nil {
		return Application{}, err
	}
	if err := svc.checkSession(ctx, na.SessionID, true /* mustBeActive */); err != nil {
		return Application{}, err
	}
	if err := svc.checkUIDAI(ctx, strings.TrimSpace(na.UIDAINumber), ""); err != nil {
		return Application{}, err
	}

	now := svc.now()
	app := na.application()
	app.DBID = uuid.New().String()
	app.ApplicationID = NewApplicationID(now)
	app.Status = StatusPending
	app.DateSubmitted = now
	app.UpdatedAt = now
	app.normalize()

	docs, err := svc.saveDocuments(ctx, uploads)
	if err != nil {
		return Application{}, err
	}
	app.Documents = docs

	app, err = svc.create(ctx, app)
	if err != nil {
		svc.deleteDocuments(ctx, docs)
		return Application{}, err
	}

	svc.notifyReceived(app)
	return app, nil
}

// CreateManual creates an application keyed in by staff. Status defaults to pending.
func (svc *Service) CreateManual(ctx context.Context, nm NewManualApplication) (Application, error) {
	if err := svc.validator.ValidateManual(nm); err != nil {
		return Application{}, err
	}
	if err := svc.checkSession(ctx, nm.SessionID, false /* mustBeActive */); err != nil {
		return Application{}, err
	}
	if err := svc.checkUIDAI(ctx, strings.TrimSpace(nm.UIDAINumber), ""); err != nil {
		return Application{}, err
	}

	now := svc.now()
	app := nm.application()
	app.DBID = uuid.New().String()
	app.ApplicationID = NewApplicationID(now)
	app.DateSubmitted = now
	app.UpdatedAt = now
	app.normalize()
	return svc.create(ctx, app)
}

func (svc *Service) create(ctx context.Context, app Application) (Application, error) {
	app, err := svc.repo.CreateApplication(ctx, app)
	if err != nil {
		if errors.Cause(err) == ErrUIDAIExists {
			return Application{}, uidaiConflict()
		}
		return Application{}, errors.Wrap(err, "creating application")
	}
	return app, nil
}

func (svc *Service) notifyReceived(app Application) {
	if app.Email == "" || svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: app.Name, Address: app.Email}},
		Subject:      "Application received: " + app.ApplicationID,
		TemplateName: "application_received",
		TemplateData: app,
	})
}

func (svc *Service) normalizeFilter(filter QueryFilter) (QueryFilter, error) {
	if filter.Status != "" {
		status, err := svc.validator.ValidateStatus(filter.Status)
		if err != nil {
			return QueryFilter{}, err
		}
		filter.Status = string(status)
	}
	filter.Trade = strings.TrimSpace(filter.Trade)
	filter.Search = strings.TrimSpace(filter.Search)
	return filter, nil
}

// Query returns page `page` (1-based) of the applications matching `filter`, newest first.
// Stats count the statuses of the returned page; Stats.Total is the number of matches.
func (svc *Service) Query(ctx context.Context, filter QueryFilter, page int) (Page, error) {
	filter, err := svc.normalizeFilter(filter)
	if err != nil {
		return Page{}, err
	}
	if page < 1 {
		page = 1
	}
	apps, total, err := svc.repo.QueryApplications(ctx, filter, svc.pageSize, (page-1)*svc.pageSize)
	if err != nil {
		return Page{}, errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = make([]Application, 0)
	}
	return Page{
		Items:      apps,
		Total:      total,
		Page:       page,
		PageSize:   svc.pageSize,
		TotalPages: core.PageCount(total, svc.pageSize),
		Stats:      ComputeStats(apps, total),
	}, nil
}

func (svc *Service) Get(ctx context.Context, dbID string) (Application, error) {
	if _, err := uuid.Parse(dbID); err != nil {
		return Application{}, ErrNotFound
	}
	return svc.repo.GetApplication(ctx, dbID)
}

// Update replaces every editable field of application `dbID`. Documents are kept.
// Credit card details are dropped when student_credit_card is not Yes.
func (svc *Service) Update(ctx context.Context, dbID string, ua UpdateApplication) (Application, error) {
	if err := svc.validator.ValidateUpdate(ua); err != nil {
		return Application{}, err
	}
	orig, err := svc.Get(ctx, dbID)
	if err != nil {
		return Application{}, err
	}

	app := ua.apply(orig)
	if app.SessionID != orig.SessionID {
		if err = svc.checkSession(ctx, app.SessionID, false /* mustBeActive */); err != nil {
			return Application{}, err
		}
	}
	if app.UIDAINumber != orig.UIDAINumber {
		if err = svc.checkUIDAI(ctx, app.UIDAINumber, app.DBID); err != nil {
			return Application{}, err
		}
	}
	app.UpdatedAt = svc.now()
	app.normalize()

	app, err = svc.repo.UpdateApplication(ctx, app)
	if err != nil {
		if errors.Cause(err) == ErrUIDAIExists {
			return Application{}, uidaiConflict()
		}
		return Application{}, errors.Wrap(err, "updating application")
	}
	return app, nil
}

// UpdateStatus sets the status of application `dbID`. Any status can be set from any other.
func (svc *Service) UpdateStatus(ctx context.Context, dbID, status string) (Application, error) {
	st, err := svc.validator.ValidateStatus(status)
	if err != nil {
		return Application{}, err
	}
	if _, err = uuid.Parse(dbID); err != nil {
		return Application{}, ErrNotFound
	}
	return svc.repo.UpdateApplicationStatus(ctx, dbID, st, svc.now())
}

// OpenDocument opens the stored document `filename`. The caller must close it.
func (svc *Service) OpenDocument(ctx context.Context, filename string) (io.ReadCloser, error) {
	return svc.docs.Open(ctx, filename)
}

// SessionName returns the name of session `id`, or "" if unknown.
func (svc *Service) SessionName(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	s, err := svc.sessions.Get(ctx, id)
	if err != nil {
		return ""
	}
	return s.Name
}

// Export writes up to exportLimit applications matching `filter` & `typ` as CSV to `w`.
// Returns the number of data rows written.
func (svc *Service) Export(ctx context.Context, filter QueryFilter, typ ExportType, w io.Writer) (int, error) {
	filter, err := svc.normalizeFilter(filter)
	if err != nil {
		return 0, err
	}
	switch typ {
	case ExportRegular:
		filter.RegistrationType = RegistrationRegular
	case ExportSCC:
		filter.StudentCreditCard = Yes
	}

	apps, _, err := svc.repo.QueryApplications(ctx, filter, svc.exportLimit, 0)
	if err != nil {
		return 0, errors.Wrap(err, "querying applications")
	}

	names := make(map[string]string)
	for _, app := range apps {
		if _, ok := names[app.SessionID]; !ok {
			names[app.SessionID] = svc.SessionName(ctx, app.SessionID)
		}
	}
	if err = WriteCSV(w, apps, func(id string) string { return names[id] }); err != nil {
		return 0, errors.Wrap(err, "writing csv")
	}
	return len(apps), nil
}
