package session

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
)

type (
	Repository interface {
		CreateSession(ctx context.Context, s Session) (Session, error)
		// QuerySessions returns sessions ordered by most recently created first.
		QuerySessions(ctx context.Context, activeOnly bool) ([]Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		SetSessionActive(ctx context.Context, id string, active bool) (Session, error)
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
		nowFunc    func() time.Time
	}
)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{
		repo:       repo,
		validate:   validate,
		translator: translator,
		nowFunc:    time.Now,
	}
}

func (svc *Service) ListActive(ctx context.Context) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, true)
}

func (svc *Service) List(ctx context.Context) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, false)
}

func (svc *Service) Get(ctx context.Context, id string) (Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Session{}, ErrNotFound
	}
	return svc.repo.GetSession(ctx, id)
}

// Name returns the name of session `id`, or "" if it cannot be found.
func (svc *Service) Name(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	s, err := svc.Get(ctx, id)
	if err != nil {
		return ""
	}
	return s.Name
}

func (svc *Service) Create(ctx context.Context, ns NewSession) (Session, error) {
	ns.Name = core.CleanString(ns.Name)
	if err := svc.validate.Struct(ns); err != nil {
		return Session{}, core.TranslateErrors(err, svc.translator)
	}
	if ns.StartsOn != "" && ns.EndsOn != "" && ns.EndsOn < ns.StartsOn {
		return Session{}, core.NewValidationError(nil, core.FieldError{Field: "ends_on", Error: "must not be before starts_on"})
	}

	s := Session{
		ID:        uuid.New().String(),
		Name:      ns.Name,
		StartsOn:  ns.StartsOn,
		EndsOn:    ns.EndsOn,
		IsActive:  true,
		CreatedAt: svc.nowFunc().UTC(),
	}
	if ns.IsActive != nil {
		s.IsActive = *ns.IsActive
	}
	s, err := svc.repo.CreateSession(ctx, s)
	if err != nil {
		if errors.Cause(err) == ErrNameExists {
			return Session{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return Session{}, errors.Wrap(err, "creating session")
	}
	return s, nil
}

func (svc *Service) SetActive(ctx context.Context, id string, sa SetActive) (Session, error) {
	if err := svc.validate.Struct(sa); err != nil {
		return Session{}, core.TranslateErrors(err, svc.translator)
	}
	if _, err := uuid.Parse(id); err != nil {
		return Session{}, ErrNotFound
	}
	return svc.repo.SetSessionActive(ctx, id, *sa.IsActive)
}
