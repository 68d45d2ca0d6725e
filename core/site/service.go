package site

import (
	"context"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
)

type (
	Repository interface {
		// GetOverrides returns the saved overrides, or empty Overrides if none were saved.
		GetOverrides(ctx context.Context) (Overrides, error)
		SaveOverrides(ctx context.Context, o Overrides) error
	}

	Service struct {
		repo       Repository
		defaults   Settings
		validate   *validator.Validate
		translator ut.Translator
		logger     core.Logger
	}
)

func NewService(
	repo Repository,
	conf *core.Config,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
) *Service {
	return &Service{
		repo:       repo,
		defaults:   Defaults(conf),
		validate:   validate,
		translator: translator,
		logger:     logger,
	}
}

func (svc *Service) Defaults() Settings {
	return svc.defaults.Apply(Overrides{})
}

// Get returns the current Settings. If the overrides cannot be loaded, the defaults are returned.
func (svc *Service) Get(ctx context.Context) Settings {
	o, err := svc.repo.GetOverrides(ctx)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("site.Service.Get: falling back to defaults: %v", err), err)
		return svc.Defaults()
	}
	return svc.defaults.Apply(o)
}

// Update merges `o` into the saved overrides and returns the resulting Settings.
func (svc *Service) Update(ctx context.Context, o Overrides) (Settings, error) {
	if err := svc.validate.Struct(o); err != nil {
		return Settings{}, core.TranslateErrors(err, svc.translator)
	}
	saved, err := svc.repo.GetOverrides(ctx)
	if err != nil {
		return Settings{}, errors.Wrap(err, "getting site overrides")
	}
	merged := saved.Merge(o)
	if err := svc.repo.SaveOverrides(ctx, merged); err != nil {
		return Settings{}, errors.Wrap(err, "saving site overrides")
	}
	return svc.defaults.Apply(merged), nil
}
