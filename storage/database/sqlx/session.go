package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/session"
)

const sessionNameConstraint = "sessions_name_key"

type sessionRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	StartsOn  null.Time `db:"starts_on"`
	EndsOn    null.Time `db:"ends_on"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func dateOrNull(s string) null.Time {
	t, err := time.Parse("2006-01-02", s)
	return null.NewTime(t, err == nil)
}

func nullToDate(t null.Time) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format("2006-01-02")
}

func (repo sessionRepository) fromRow(row sessionRow) session.Session {
	return session.Session{
		ID:        row.ID,
		Name:      row.Name,
		StartsOn:  nullToDate(row.StartsOn),
		EndsOn:    nullToDate(row.EndsOn),
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func (repo sessionRepository) trapErr(err error, msg string) error {
	switch {
	case isNoRows(err):
		return session.ErrNotFound
	case isUniqueViolation(err, sessionNameConstraint):
		return session.ErrNameExists
	}
	return errors.Wrap(err, msg)
}

func (repo sessionRepository) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	row := sessionRow{
		ID:        s.ID,
		Name:      s.Name,
		StartsOn:  dateOrNull(s.StartsOn),
		EndsOn:    dateOrNull(s.EndsOn),
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt.UTC(),
	}
	q := `INSERT INTO sessions (id, name, starts_on, ends_on, is_active, created_at)
		VALUES (:id, :name, :starts_on, :ends_on, :is_active, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return session.Session{}, repo.trapErr(err, "inserting session")
	}
	return repo.fromRow(row), nil
}

func (repo sessionRepository) QuerySessions(ctx context.Context, activeOnly bool) ([]session.Session, error) {
	q := "SELECT * FROM sessions"
	if activeOnly {
		q += " WHERE is_active"
	}
	q += core.OrderBy(core.DBOrdering{Field: "created_at"})

	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting sessions")
	}
	sessions := make([]session.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, repo.fromRow(row))
	}
	return sessions, nil
}

func (repo sessionRepository) GetSession(ctx context.Context, id string) (session.Session, error) {
	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM sessions WHERE id = $1", id); err != nil {
		return session.Session{}, repo.trapErr(err, "selecting session")
	}
	return repo.fromRow(row), nil
}

func (repo sessionRepository) SetSessionActive(ctx context.Context, id string, active bool) (session.Session, error) {
	var row sessionRow
	q := "UPDATE sessions SET is_active = $1 WHERE id = $2 RETURNING *"
	if err := repo.db.GetContext(ctx, &row, q, active, id); err != nil {
		return session.Session{}, repo.trapErr(err, "updating session")
	}
	return repo.fromRow(row), nil
}
