package inmemdb

import (
	"sync"

	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/session"
	"github.com/trezcool/admissions/core/site"
	"github.com/trezcool/admissions/core/staff"
)

type (
	DB struct {
		application *applicationTable
		session     *sessionTable
		staff       *staffTable
		site        *siteTable
	}

	applicationTable struct {
		table map[string]*admission.Application
		mutex sync.RWMutex
	}

	sessionTable struct {
		table map[string]*session.Session
		mutex sync.RWMutex
	}

	staffTable struct {
		table map[string]*staff.Staff
		mutex sync.RWMutex
	}

	siteTable struct {
		overrides site.Overrides
		err       error // returned by every read when set
		mutex     sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		application: &applicationTable{table: make(map[string]*admission.Application)},
		session:     &sessionTable{table: make(map[string]*session.Session)},
		staff:       &staffTable{table: make(map[string]*staff.Staff)},
		site:        &siteTable{},
	}
}
