package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/admissions/core/staff"
)

type staffRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Name         string    `db:"name"`
	PasswordHash []byte    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	LastLogin    null.Time `db:"last_login"`
}

type staffRepository struct {
	db *sqlx.DB
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *sqlx.DB) *staffRepository {
	return &staffRepository{db: db}
}

func (repo staffRepository) fromRow(row staffRow) staff.Staff {
	return staff.Staff{
		ID:           row.ID,
		Username:     row.Username,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

func (repo staffRepository) get(ctx context.Context, q string, arg interface{}) (staff.Staff, error) {
	var row staffRow
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		if isNoRows(err) {
			return staff.Staff{}, staff.ErrNotFound
		}
		return staff.Staff{}, errors.Wrap(err, "selecting staff")
	}
	return repo.fromRow(row), nil
}

func (repo staffRepository) GetStaffByID(ctx context.Context, id string) (staff.Staff, error) {
	return repo.get(ctx, "SELECT * FROM staff WHERE id = $1", id)
}

func (repo staffRepository) GetStaffByUsername(ctx context.Context, username string) (staff.Staff, error) {
	return repo.get(ctx, "SELECT * FROM staff WHERE username = $1", username)
}

func (repo staffRepository) UpdateOrCreateStaff(ctx context.Context, s staff.Staff) (staff.Staff, error) {
	row := staffRow{
		ID:           s.ID,
		Username:     s.Username,
		Name:         s.Name,
		PasswordHash: s.PasswordHash,
		IsActive:     s.IsActive,
		CreatedAt:    s.CreatedAt.UTC(),
		LastLogin:    null.NewTime(s.LastLogin.UTC(), !s.LastLogin.IsZero()),
	}
	q := `INSERT INTO staff (id, username, name, password_hash, is_active, created_at, last_login)
		VALUES (:id, :username, :name, :password_hash, :is_active, :created_at, :last_login)
		ON CONFLICT (username) DO UPDATE
		SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash, is_active = EXCLUDED.is_active`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return staff.Staff{}, errors.Wrap(err, "upserting staff")
	}
	return repo.GetStaffByUsername(ctx, s.Username)
}

func (repo staffRepository) SetStaffLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := repo.db.ExecContext(ctx, "UPDATE staff SET last_login = $1 WHERE id = $2", at.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating staff last_login")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return staff.ErrNotFound
	}
	return nil
}
