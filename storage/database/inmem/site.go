package inmemdb

import (
	"context"

	"github.com/trezcool/admissions/core/site"
)

type siteRepository struct {
	db *siteTable
}

var _ site.Repository = (*siteRepository)(nil) // interface compliance check

func NewSiteRepository(db *DB) *siteRepository {
	return &siteRepository{db: db.site}
}

// Fail makes every following read return `err` (nil to recover).
func (repo *siteRepository) Fail(err error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.err = err
}

func (repo *siteRepository) GetOverrides(_ context.Context) (site.Overrides, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if repo.db.err != nil {
		return site.Overrides{}, repo.db.err
	}
	return repo.db.overrides, nil
}

func (repo *siteRepository) SaveOverrides(_ context.Context, o site.Overrides) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.overrides = o
	return nil
}
