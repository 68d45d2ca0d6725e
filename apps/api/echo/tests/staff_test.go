package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/admissions/apps/api/echo"
	"github.com/trezcool/admissions/tests"
)

func Test_staffApi_login(t *testing.T) {
	ta := setup(t)
	testutil.CreateStaff(t, ta.stfRepo, "clerk", "password123", true)
	testutil.CreateStaff(t, ta.stfRepo, "gone", "password123", false)

	runHttpTests(t, ta, []httpTest{
		{
			name:     "empty body",
			method:   http.MethodPost,
			path:     "/v1/admin/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "this field is required", "password": "this field is required"}`),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/v1/admin/login",
			body:     []byte(`{"username": "clerk", "password": "nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error": "authentication failed"}`),
		},
		{
			name:     "unknown staff",
			method:   http.MethodPost,
			path:     "/v1/admin/login",
			body:     []byte(`{"username": "nobody", "password": "password123"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error": "authentication failed"}`),
		},
		{
			name:     "deactivated",
			method:   http.MethodPost,
			path:     "/v1/admin/login",
			body:     []byte(`{"username": "gone", "password": "password123"}`),
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"error": "account deactivated"}`),
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := ta.serve(newRequest(http.MethodPost, "/v1/admin/login", []byte(`{"username": " Clerk ", "password": "password123"}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res echoapi.LoginResponse
		unmarshallObj(t, rec.Body.Bytes(), &res)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, "clerk", res.Staff.Username)
		assert.False(t, res.Staff.LastLogin.IsZero())

		// the token opens the console
		rec = ta.serve(newAuthRequest(http.MethodGet, "/v1/admin/admissions", res.Token))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_staffApi_auth(t *testing.T) {
	ta := setup(t)
	active := testutil.CreateStaff(t, ta.stfRepo, "clerk", "password123", true)
	inactive := testutil.CreateStaff(t, ta.stfRepo, "gone", "password123", false)
	token := getToken(t, ta.conf, active)

	runHttpTests(t, ta, []httpTest{
		{
			name:     "missing token",
			method:   http.MethodGet,
			path:     "/v1/admin/admissions",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "invalid token",
			method:   http.MethodGet,
			path:     "/v1/admin/sessions",
			token:    "not.a.token",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "deactivated staff",
			method:   http.MethodGet,
			path:     "/v1/admin/admissions",
			token:    getToken(t, ta.conf, inactive),
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"error": "account deactivated"}`),
		},
		{
			name:     "me",
			method:   http.MethodGet,
			path:     "/v1/admin/me",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, active),
		},
	})

	t.Run("token refresh", func(t *testing.T) {
		rec := ta.serve(newAuthRequest(http.MethodPost, "/v1/admin/token-refresh", token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res echoapi.TokenResponse
		unmarshallObj(t, rec.Body.Bytes(), &res)
		assert.NotEmpty(t, res.Token)
	})
}
