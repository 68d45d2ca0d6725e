package staff

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
		GetStaffByID(ctx context.Context, id string) (Staff, error)
		GetStaffByUsername(ctx context.Context, username string) (Staff, error)
		// UpdateOrCreateStaff inserts `s`, or updates the staff sharing its username.
		UpdateOrCreateStaff(ctx context.Context, s Staff) (Staff, error)
		SetStaffLastLogin(ctx context.Context, id string, at time.Time) error
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

// Authenticate checks the credentials & records the login.
func (svc *Service) Authenticate(ctx context.Context, lr LoginRequest) (Staff, error) {
	if err := svc.validate.Struct(lr); err != nil {
		return Staff{}, core.TranslateErrors(err, svc.translator)
	}
	s, err := svc.repo.GetStaffByUsername(ctx, core.CleanString(lr.Username, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Staff{}, ErrInvalidCredentials
		}
		return Staff{}, errors.Wrap(err, "finding staff by username")
	}
	if err = s.CheckPassword(lr.Password); err != nil {
		return Staff{}, ErrInvalidCredentials
	}
	if !s.IsActive {
		return Staff{}, ErrInactive
	}

	s.LastLogin = svc.nowFunc().UTC()
	if err = svc.repo.SetStaffLastLogin(ctx, s.ID, s.LastLogin); err != nil {
		return Staff{}, errors.Wrap(err, "setting lastLogin")
	}
	return s, nil
}

// UpdateOrCreate creates the staff account, or resets the password of an existing one & re-activates it.
func (svc *Service) UpdateOrCreate(ctx context.Context, ns NewStaff) (Staff, error) {
	ns.Username = core.CleanString(ns.Username, true /* lower */)
	ns.Name = core.CleanString(ns.Name)
	if err := svc.validate.Struct(ns); err != nil {
		return Staff{}, core.TranslateErrors(err, svc.translator)
	}

	s, err := svc.repo.GetStaffByUsername(ctx, ns.Username)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return Staff{}, errors.Wrap(err, "finding staff by username")
		}
		s = Staff{
			ID:        uuid.New().String(),
			Username:  ns.Username,
			CreatedAt: svc.nowFunc().UTC(),
		}
	}
	if ns.Name != "" {
		s.Name = ns.Name
	}
	s.IsActive = true
	if err = s.SetPassword(ns.Password); err != nil {
		return Staff{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdateOrCreateStaff(ctx, s)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Staff, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Staff{}, ErrNotFound
	}
	return svc.repo.GetStaffByID(ctx, id)
}
