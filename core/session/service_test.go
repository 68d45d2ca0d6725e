package session_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/session"
	inmemdb "github.com/trezcool/admissions/storage/database/inmem"
	"github.com/trezcool/admissions/tests"
)

func fields(t *testing.T, err error) map[string]string {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "got %T: %v", err, err)
	m := make(map[string]string)
	for _, f := range vErr.Fields {
		m[f.Field] = f.Error
	}
	return m
}

func TestService(t *testing.T) {
	conf := testutil.NewConfig()
	validate, translator, _ := testutil.NewValidators(conf)
	svc := session.NewService(inmemdb.NewSessionRepository(inmemdb.Open()), validate, translator)
	ctx := context.Background()

	s, err := svc.Create(ctx, session.NewSession{Name: "  2026-27 ", StartsOn: "2026-04-01", EndsOn: "2027-03-31"})
	require.NoError(t, err)
	assert.Equal(t, "2026-27", s.Name)
	assert.True(t, s.IsActive)
	assert.Equal(t, "2026-27", svc.Name(ctx, s.ID))
	assert.Equal(t, "", svc.Name(ctx, "unknown"))

	closed := false
	old, err := svc.Create(ctx, session.NewSession{Name: "2025-26", IsActive: &closed})
	require.NoError(t, err)
	assert.False(t, old.IsActive)

	_, err = svc.Create(ctx, session.NewSession{Name: "2026-27"})
	assert.Equal(t, map[string]string{"name": session.ErrNameExists.Error()}, fields(t, err))

	_, err = svc.Create(ctx, session.NewSession{Name: "2030-31", StartsOn: "2030-04-01", EndsOn: "2030-01-01"})
	assert.Equal(t, map[string]string{"ends_on": "must not be before starts_on"}, fields(t, err))

	_, err = svc.Create(ctx, session.NewSession{})
	assert.Equal(t, map[string]string{"name": "this field is required"}, fields(t, err))

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, s.ID, active[0].ID)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	reopened, err := svc.SetActive(ctx, old.ID, session.SetActive{IsActive: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, reopened.IsActive)
	active, err = svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	_, err = svc.SetActive(ctx, old.ID, session.SetActive{})
	assert.Equal(t, map[string]string{"is_active": "this field is required"}, fields(t, err))

	_, err = svc.SetActive(ctx, "nope", session.SetActive{IsActive: boolPtr(false)})
	assert.Equal(t, session.ErrNotFound, err)
}

func boolPtr(b bool) *bool { return &b }
