package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/admissions/core/admission"
)

type applicationRepository struct {
	db *applicationTable
}

var _ admission.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *DB) *applicationRepository {
	return &applicationRepository{db: db.application}
}

// uidaiTaken must be called with the table lock held.
func (repo *applicationRepository) uidaiTaken(number, exclDBID string) bool {
	if number == "" {
		return false
	}
	for _, app := range repo.db.table {
		if app.UIDAINumber == number && app.DBID != exclDBID {
			return true
		}
	}
	return false
}

func (repo *applicationRepository) CreateApplication(_ context.Context, app admission.Application) (admission.Application, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.uidaiTaken(app.UIDAINumber, "") {
		return admission.Application{}, admission.ErrUIDAIExists
	}
	repo.db.table[app.DBID] = &app
	return app, nil
}

func (repo *applicationRepository) GetApplication(_ context.Context, dbID string) (admission.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if app, ok := repo.db.table[dbID]; ok {
		return *app, nil
	}
	return admission.Application{}, admission.ErrNotFound
}

func (repo *applicationRepository) GetApplicationByUIDAI(_ context.Context, number string) (admission.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, app := range repo.db.table {
		if number != "" && app.UIDAINumber == number {
			return *app, nil
		}
	}
	return admission.Application{}, admission.ErrNotFound
}

func matches(app admission.Application, filter admission.QueryFilter) bool {
	if filter.Status != "" && string(app.Status) != filter.Status {
		return false
	}
	if filter.Trade != "" && app.Trade != filter.Trade {
		return false
	}
	if filter.RegistrationType != "" && app.RegistrationType != filter.RegistrationType {
		return false
	}
	if filter.StudentCreditCard != "" && app.StudentCreditCard != filter.StudentCreditCard {
		return false
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		for _, val := range []string{app.ApplicationID, app.Name, app.Mobile, app.Email} {
			if strings.Contains(strings.ToLower(val), search) {
				return true
			}
		}
		return false
	}
	return true
}

func (repo *applicationRepository) QueryApplications(
	_ context.Context,
	filter admission.QueryFilter,
	limit, offset int,
) ([]admission.Application, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	apps := make([]admission.Application, 0, len(repo.db.table))
	for _, app := range repo.db.table {
		if matches(*app, filter) {
			apps = append(apps, *app)
		}
	}
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].DateSubmitted.Equal(apps[j].DateSubmitted) {
			return apps[i].ApplicationID > apps[j].ApplicationID
		}
		return apps[i].DateSubmitted.After(apps[j].DateSubmitted)
	})

	total := len(apps)
	if offset >= total {
		return []admission.Application{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return apps[offset:end], total, nil
}

func (repo *applicationRepository) UpdateApplication(_ context.Context, app admission.Application) (admission.Application, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[app.DBID]
	if !ok {
		return admission.Application{}, admission.ErrNotFound
	}
	if repo.uidaiTaken(app.UIDAINumber, app.DBID) {
		return admission.Application{}, admission.ErrUIDAIExists
	}
	// identity & submission date are immutable
	app.ApplicationID = orig.ApplicationID
	app.DateSubmitted = orig.DateSubmitted
	repo.db.table[app.DBID] = &app
	return app, nil
}

func (repo *applicationRepository) UpdateApplicationStatus(
	_ context.Context,
	dbID string,
	status admission.Status,
	at time.Time,
) (admission.Application, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	app, ok := repo.db.table[dbID]
	if !ok {
		return admission.Application{}, admission.ErrNotFound
	}
	app.Status = status
	app.UpdatedAt = at
	return *app, nil
}
