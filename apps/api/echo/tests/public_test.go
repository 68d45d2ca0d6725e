package tests

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/session"
	"github.com/trezcool/admissions/core/site"
	"github.com/trezcool/admissions/tests"
)

var applicationIDRegex = regexp.MustCompile(`^ADM\d{4}[0-9A-F]{6}$`)

func Test_publicApi_trades(t *testing.T) {
	ta := setup(t)
	runHttpTests(t, ta, []httpTest{
		{
			name:     "configured trades",
			method:   http.MethodGet,
			path:     "/v1/trades",
			wantCode: http.StatusOK,
			wantData: marshallObj(t, testutil.Trades),
		},
	})
}

func Test_publicApi_activeSessions(t *testing.T) {
	ta := setup(t)
	runHttpTests(t, ta, []httpTest{
		{
			name:     "no sessions",
			method:   http.MethodGet,
			path:     "/v1/sessions/active",
			wantCode: http.StatusOK,
			wantData: []byte("[]"),
		},
	})

	open := testutil.CreateSession(t, ta.sesRepo, "2026-27", true)
	testutil.CreateSession(t, ta.sesRepo, "2025-26", false)

	runHttpTests(t, ta, []httpTest{
		{
			name:     "only active sessions",
			method:   http.MethodGet,
			path:     "/v1/sessions/active",
			wantCode: http.StatusOK,
			wantData: marshallObj(t, []session.Session{open}),
		},
	})
}

func Test_publicApi_siteSettings(t *testing.T) {
	ta := setup(t)
	defaults := site.Defaults(ta.conf)

	runHttpTests(t, ta, []httpTest{
		{
			name:     "defaults",
			method:   http.MethodGet,
			path:     "/v1/site/settings",
			wantCode: http.StatusOK,
			wantData: marshallObj(t, defaults),
		},
	})

	// a failing store falls back to the defaults
	ta.siteDB.Fail(errors.New("connection refused"))
	runHttpTests(t, ta, []httpTest{
		{
			name:     "store failure",
			method:   http.MethodGet,
			path:     "/v1/site/settings",
			wantCode: http.StatusOK,
			wantData: marshallObj(t, defaults),
		},
	})
}

func Test_publicApi_checkUIDAI(t *testing.T) {
	ta := setup(t)
	testutil.CreateApplication(t, ta.appRepo, admission.Application{Name: "Taken", UIDAINumber: "111122223333"})

	runHttpTests(t, ta, []httpTest{
		{
			name:     "malformed",
			method:   http.MethodGet,
			path:     "/v1/admissions/check-uidai/12345",
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"uidai_number": "UIDAI number must be exactly 12 digits"}`),
		},
		{
			name:     "available",
			method:   http.MethodGet,
			path:     "/v1/admissions/check-uidai/999988887777",
			wantCode: http.StatusOK,
			wantData: []byte(`{"available": true}`),
		},
		{
			name:     "taken",
			method:   http.MethodGet,
			path:     "/v1/admissions/check-uidai/111122223333",
			wantCode: http.StatusOK,
			wantData: []byte(`{"available": false}`),
		},
	})
}

func Test_publicApi_submit(t *testing.T) {
	ta := setup(t)
	open := testutil.CreateSession(t, ta.sesRepo, "2026-27", true)
	closed := testutil.CreateSession(t, ta.sesRepo, "2025-26", false)

	t.Run("success", func(t *testing.T) {
		na := testutil.NewApplication(open.ID)
		rec := ta.serve(newMultipartRequest(t, "/v1/admissions", na, testutil.Uploads()))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var app admission.Application
		unmarshallObj(t, rec.Body.Bytes(), &app)
		assert.Regexp(t, applicationIDRegex, app.ApplicationID)
		assert.Equal(t, admission.StatusPending, app.Status)
		assert.Equal(t, "82.40", app.Class10thPercentage)
		assert.Equal(t, admission.RegistrationRegular, app.RegistrationType)
		assert.Nil(t, app.StudentCreditCardDetails)
		assert.NotEmpty(t, app.Documents.Photo)
		assert.NotEmpty(t, app.Documents.Aadhaar)
		assert.NotEmpty(t, app.Documents.Marksheet)
		assert.Empty(t, app.Documents.StudentCreditCardDoc)
		assert.Equal(t, 3, ta.docs.Len())

		stored, err := ta.appRepo.GetApplication(context.Background(), app.DBID)
		require.NoError(t, err)
		assert.Equal(t, app.ApplicationID, stored.ApplicationID)

		sent := ta.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, na.Email, sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, app.ApplicationID)
	})

	t.Run("duplicate UIDAI", func(t *testing.T) {
		na := testutil.NewApplication(open.ID)
		na.Mobile = "9000000001"
		rec := ta.serve(newMultipartRequest(t, "/v1/admissions", na, testutil.Uploads()))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, map[string]string{"uidai_number": admission.ErrUIDAIExists.Error()}),
		}, rec)
	})

	t.Run("missing documents & declaration", func(t *testing.T) {
		na := testutil.NewApplication(open.ID)
		na.UIDAINumber = "222233334444"
		na.Declaration = false
		uploads := testutil.Uploads()
		delete(uploads, admission.SlotPhoto)
		delete(uploads, admission.SlotMarksheet)

		rec := ta.serve(newMultipartRequest(t, "/v1/admissions", na, uploads))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"photo": "please upload this document",
				"marksheet": "please upload this document",
				"declaration": "you must accept the declaration"
			}`),
		}, rec)
	})

	t.Run("closed session", func(t *testing.T) {
		na := testutil.NewApplication(closed.ID)
		na.UIDAINumber = "222233334444"
		rec := ta.serve(newMultipartRequest(t, "/v1/admissions", na, testutil.Uploads()))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"session_id": admission.ErrSessionClosed.Error()}),
		}, rec)
	})

	t.Run("credit card details", func(t *testing.T) {
		na := testutil.NewApplication(open.ID)
		na.UIDAINumber = "555566667777"
		na.StudentCreditCard = admission.Yes
		na.StudentCreditCardBank = "State Bank of India"
		na.StudentCreditCardAccount = "12345678901"
		rec := ta.serve(newMultipartRequest(t, "/v1/admissions", na, testutil.Uploads()))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var app admission.Application
		unmarshallObj(t, rec.Body.Bytes(), &app)
		assert.Equal(t, admission.RegistrationStudentCreditCard, app.RegistrationType)
		require.NotNil(t, app.StudentCreditCardDetails)
		assert.Equal(t, admission.CreditCardDetails{BankName: "State Bank of India", AccountNumber: "12345678901"}, *app.StudentCreditCardDetails)
	})
}
