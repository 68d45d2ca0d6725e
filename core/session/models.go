package session

import (
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotFound   = errors.New("session not found")
	ErrNameExists = errors.New("a session with this name already exists")
)

// Session is an admission intake period applications are attached to.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartsOn  string    `json:"starts_on,omitempty"` // YYYY-MM-DD
	EndsOn    string    `json:"ends_on,omitempty"`   // YYYY-MM-DD
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewSession struct {
	Name     string `json:"name" validate:"required,max=100"`
	StartsOn string `json:"starts_on" validate:"omitempty,isodate"`
	EndsOn   string `json:"ends_on" validate:"omitempty,isodate"`
	IsActive *bool  `json:"is_active"`
}

type SetActive struct {
	IsActive *bool `json:"is_active" validate:"required"`
}
