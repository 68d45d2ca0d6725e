package testutil

import (
	"bytes"
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/session"
	"github.com/trezcool/admissions/core/staff"
	logsvc "github.com/trezcool/admissions/services/logger"
)

// Trades are the trades of core.NewTestConfig.
var Trades = []string{"Electrician", "Fitter", "Welder", "Mechanic Motor Vehicle", "COPA", "Plumber", "Electronics Mechanic"}

func NewConfig() *core.Config {
	conf := core.NewTestConfig()
	conf.Admission.Trades = append([]string(nil), Trades...)
	conf.Admission.PageSize = 10
	conf.Admission.RequireSCCDocument = false
	conf.RollbarToken = ""
	return conf
}

// NewLogger returns a silent logger.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

func NewValidators(conf *core.Config) (*validator.Validate, ut.Translator, *admission.Validator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	return validate, translator, admission.NewValidator(validate, translator, conf.Admission)
}

func CreateSession(t *testing.T, repo session.Repository, name string, isActive bool) session.Session {
	s, err := repo.CreateSession(context.Background(), session.Session{
		ID:        uuid.New().String(),
		Name:      name,
		StartsOn:  "2026-04-01",
		EndsOn:    "2027-03-31",
		IsActive:  isActive,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return s
}

func CreateStaff(t *testing.T, repo staff.Repository, username, pwd string, isActive bool) staff.Staff {
	s := staff.Staff{
		ID:        uuid.New().String(),
		Username:  username,
		Name:      "Staff " + username,
		IsActive:  isActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SetPassword(pwd); err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}
	s, err := repo.UpdateOrCreateStaff(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}
	return s
}

// NewApplication returns a wizard payload that passes every step.
func NewApplication(sessionID string) admission.NewApplication {
	return admission.NewApplication{
		Name:                   "Ravi Kumar",
		FatherName:             "Suresh Kumar",
		MotherName:             "Sunita Devi",
		Mobile:                 "9876543210",
		Email:                  "ravi@example.com",
		DOB:                    "2006-05-14",
		Gender:                 admission.GenderMale,
		Category:               admission.CategoryOBC,
		UIDAINumber:            "123456789012",
		VillageTownCity:        "Danapur",
		PoliceStation:          "Danapur",
		PostOffice:             "Danapur Cantt",
		Block:                  "Danapur",
		District:               "Patna",
		State:                  "Bihar",
		Pincode:                "801503",
		Class10thSchool:        "Govt High School",
		Class10thSubject:       "Science",
		Class10thMarksObtained: "412",
		Class10thTotalMarks:    "500",
		Trade:                  "Electrician",
		Qualification:          "10th",
		SessionID:              sessionID,
		Shift:                  admission.ShiftMorning,
		PWDClaim:               admission.No,
		StudentCreditCard:      admission.No,
		Declaration:            true,
	}
}

// Uploads returns the required documents.
func Uploads() admission.Uploads {
	return admission.Uploads{
		admission.SlotPhoto:     {Filename: "photo.jpg", ContentType: "image/jpeg", Data: []byte("photo")},
		admission.SlotAadhaar:   {Filename: "aadhaar.pdf", ContentType: "application/pdf", Data: []byte("aadhaar")},
		admission.SlotMarksheet: {Filename: "marksheet.pdf", ContentType: "application/pdf", Data: []byte("marksheet")},
	}
}

// CreateApplication stores an application as is, bypassing validation.
func CreateApplication(t *testing.T, repo admission.Repository, app admission.Application) admission.Application {
	if app.DBID == "" {
		app.DBID = uuid.New().String()
	}
	if app.ApplicationID == "" {
		app.ApplicationID = admission.NewApplicationID(time.Now())
	}
	if app.Status == "" {
		app.Status = admission.StatusPending
	}
	if app.DateSubmitted.IsZero() {
		app.DateSubmitted = time.Now().UTC()
	}
	if app.UpdatedAt.IsZero() {
		app.UpdatedAt = app.DateSubmitted
	}
	if app.RegistrationType == "" {
		app.RegistrationType = admission.RegistrationTypeFor(app.StudentCreditCard)
	}
	app, err := repo.CreateApplication(context.Background(), app)
	if err != nil {
		t.Fatalf("CreateApplication() failed: %v", err)
	}
	return app
}

// FakeDocumentStore keeps documents in memory.
type FakeDocumentStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	SaveErr error
}

func NewFakeDocumentStore() *FakeDocumentStore {
	return &FakeDocumentStore{files: make(map[string][]byte)}
}

func (s *FakeDocumentStore) Save(_ context.Context, slot admission.DocumentSlot, up admission.Upload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return "", s.SaveErr
	}
	fn := string(slot) + "-" + uuid.New().String() + ".pdf"
	s.files[fn] = up.Data
	return fn, nil
}

func (s *FakeDocumentStore) Open(_ context.Context, filename string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[filename]
	if !ok {
		return nil, admission.ErrDocNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *FakeDocumentStore) Delete(_ context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, filename)
	return nil
}

// Len returns the number of stored documents.
func (s *FakeDocumentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}
