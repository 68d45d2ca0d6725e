package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/admissions/core/site"
)

type siteRepository struct {
	db *sqlx.DB
}

var _ site.Repository = (*siteRepository)(nil) // interface compliance check

func NewSiteRepository(db *sqlx.DB) *siteRepository {
	return &siteRepository{db: db}
}

func (repo siteRepository) GetOverrides(ctx context.Context) (site.Overrides, error) {
	var raw null.JSON
	if err := repo.db.GetContext(ctx, &raw, "SELECT overrides FROM site_settings WHERE id = 1"); err != nil {
		if isNoRows(err) {
			return site.Overrides{}, nil
		}
		return site.Overrides{}, errors.Wrap(err, "selecting site settings")
	}
	var o site.Overrides
	if raw.Valid {
		if err := raw.Unmarshal(&o); err != nil {
			return site.Overrides{}, errors.Wrap(err, "unmarshalling site settings")
		}
	}
	return o, nil
}

func (repo siteRepository) SaveOverrides(ctx context.Context, o site.Overrides) error {
	var raw null.JSON
	if err := raw.Marshal(o); err != nil {
		return errors.Wrap(err, "marshalling site settings")
	}
	q := `INSERT INTO site_settings (id, overrides, updated_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET overrides = EXCLUDED.overrides, updated_at = EXCLUDED.updated_at`
	if _, err := repo.db.ExecContext(ctx, q, raw, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "saving site settings")
	}
	return nil
}
