package tests

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/admissions/apps/api/echo"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/tests"
)

// seedApplications creates `n` applications, one hour apart, the last one being the newest.
func seedApplications(t *testing.T, ta *testApp, n int, build func(i int) admission.Application) []admission.Application {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	apps := make([]admission.Application, 0, n)
	for i := 0; i < n; i++ {
		app := build(i)
		app.ApplicationID = fmt.Sprintf("ADM2026%06X", i)
		app.DateSubmitted = start.Add(time.Duration(i) * time.Hour)
		apps = append(apps, testutil.CreateApplication(t, ta.appRepo, app))
	}
	return apps
}

func queryPath(page int, status, trade, search string) string {
	v := make(url.Values)
	if page > 0 {
		v.Set("page", fmt.Sprint(page))
	}
	if status != "" {
		v.Set("status", status)
	}
	if trade != "" {
		v.Set("trade", trade)
	}
	if search != "" {
		v.Set("search", search)
	}
	return "/v1/admin/admissions?" + v.Encode()
}

func Test_adminAdmissionApi_query(t *testing.T) {
	ta := setup(t)
	token := ta.staffToken(t)

	statuses := []admission.Status{admission.StatusPending, admission.StatusApproved, admission.StatusRejected}
	apps := seedApplications(t, ta, 12, func(i int) admission.Application {
		trade := "Electrician"
		if i%2 == 1 {
			trade = "Fitter"
		}
		return admission.Application{
			Name:   fmt.Sprintf("Applicant %02d", i),
			Mobile: fmt.Sprintf("98765432%02d", i),
			Email:  fmt.Sprintf("applicant%02d@example.com", i),
			Trade:  trade,
			Status: statuses[i%3],
		}
	})

	getPage := func(t *testing.T, path string) admission.Page {
		rec := ta.serve(newAuthRequest(http.MethodGet, path, token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var page admission.Page
		unmarshallObj(t, rec.Body.Bytes(), &page)
		return page
	}
	ids := func(items []admission.Application) []string {
		res := make([]string, 0, len(items))
		for _, app := range items {
			res = append(res, app.ApplicationID)
		}
		return res
	}

	t.Run("first page, newest first", func(t *testing.T) {
		page := getPage(t, queryPath(0, "", "", ""))
		assert.Equal(t, 12, page.Total)
		assert.Equal(t, 2, page.TotalPages)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 10, page.PageSize)
		require.Len(t, page.Items, 10)
		assert.Equal(t, apps[11].ApplicationID, page.Items[0].ApplicationID)
		assert.Equal(t, apps[2].ApplicationID, page.Items[9].ApplicationID)

		// stats count the page, total counts the matches
		assert.Equal(t, admission.Stats{Pending: 3, Approved: 3, Rejected: 4, Total: 12}, page.Stats)
	})

	t.Run("second page", func(t *testing.T) {
		page := getPage(t, queryPath(2, "", "", ""))
		assert.Equal(t, []string{apps[1].ApplicationID, apps[0].ApplicationID}, ids(page.Items))
	})

	t.Run("page past the end", func(t *testing.T) {
		page := getPage(t, queryPath(5, "", "", ""))
		assert.Empty(t, page.Items)
		assert.Equal(t, 12, page.Total)
	})

	t.Run("status & trade", func(t *testing.T) {
		page := getPage(t, queryPath(0, "Approved", "Fitter", ""))
		// approved: 1, 4, 7, 10; fitter: odd
		assert.Equal(t, []string{apps[7].ApplicationID, apps[1].ApplicationID}, ids(page.Items))
		assert.Equal(t, 2, page.Total)
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		assert.Equal(t, []string{apps[3].ApplicationID}, ids(getPage(t, queryPath(0, "", "", "APPLICANT03@")).Items))
		assert.Equal(t, []string{apps[5].ApplicationID}, ids(getPage(t, queryPath(0, "", "", "9876543205")).Items))
		assert.Equal(t, []string{apps[10].ApplicationID}, ids(getPage(t, queryPath(0, "", "", strings.ToLower(apps[10].ApplicationID))).Items))
		assert.Len(t, getPage(t, queryPath(0, "", "", "applicant 1")).Items, 2)
	})

	runHttpTests(t, ta, []httpTest{
		{
			name:     "invalid status",
			method:   http.MethodGet,
			path:     queryPath(0, "archived", "", ""),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"status": "status must be one of [pending, approved, rejected]"}`),
		},
	})
}

func Test_adminAdmissionApi_detail(t *testing.T) {
	ta := setup(t)
	token := ta.staffToken(t)
	ses := testutil.CreateSession(t, ta.sesRepo, "2026-27", true)
	app := testutil.CreateApplication(t, ta.appRepo, admission.Application{
		Name:              "Ravi",
		SessionID:         ses.ID,
		Status:            admission.StatusApproved,
		StudentCreditCard: admission.Yes,
		StudentCreditCardDetails: &admission.CreditCardDetails{
			BankName: "SBI", AccountNumber: "123456789",
		},
		Documents: admission.Documents{Photo: "photo-x.jpg"},
	})

	rec := ta.serve(newAuthRequest(http.MethodGet, "/v1/admin/admissions/"+app.DBID, token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var detail echoapi.ApplicationDetail
	unmarshallObj(t, rec.Body.Bytes(), &detail)
	assert.Equal(t, app.ApplicationID, detail.Application.ApplicationID)
	assert.Equal(t, "2026-27", detail.SessionName)
	require.Len(t, detail.Documents, 4)
	assert.True(t, detail.Documents[0].Present)
	assert.False(t, detail.Documents[1].Present)
	assert.Equal(t, "Approved", detail.EditForm.Status)
	assert.Equal(t, "SBI", detail.EditForm.StudentCreditCardBank)
	assert.Equal(t, "123456789", detail.EditForm.StudentCreditCardAccount)

	runHttpTests(t, ta, []httpTest{
		{
			name:     "unknown id",
			method:   http.MethodGet,
			path:     "/v1/admin/admissions/3f1b5bd4-2a53-4c7f-bb61-47f2d1b7a8e0",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"error": "not found"}`),
		},
		{
			name:     "malformed id",
			method:   http.MethodGet,
			path:     "/v1/admin/admissions/42",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"error": "not found"}`),
		},
	})
}

func Test_adminAdmissionApi_update(t *testing.T) {
	ta := setup(t)
	token := ta.staffToken(t)
	other := testutil.CreateApplication(t, ta.appRepo, admission.Application{Name: "Other", UIDAINumber: "999999999999"})
	app := testutil.CreateApplication(t, ta.appRepo, admission.Application{
		Name:        "Ravi",
		UIDAINumber: "123456789012",
		Documents:   admission.Documents{Photo: "photo-a.jpg", Aadhaar: "aadhaar-a.pdf"},
	})
	form := admission.EditForm(app)
	form.FatherName = "Suresh"
	form.Mobile = "9876543210"
	form.Category = "SC"
	form.Trade = "Welder"
	form.Class10thMarksObtained = "300"
	form.Class10thTotalMarks = "600"
	form.StudentCreditCard = admission.Yes
	form.StudentCreditCardBank = "PNB"
	form.StudentCreditCardAccount = "000111222333"
	form.Status = "REJECTED"

	t.Run("full edit", func(t *testing.T) {
		rec := ta.serve(newAuthRequest(http.MethodPut, "/v1/admin/admissions/"+app.DBID, token, marshallObj(t, form)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got admission.Application
		unmarshallObj(t, rec.Body.Bytes(), &got)
		assert.Equal(t, app.ApplicationID, got.ApplicationID)
		assert.Equal(t, "Suresh", got.FatherName)
		assert.Equal(t, "Welder", got.Trade)
		assert.Equal(t, "50.00", got.Class10thPercentage)
		assert.Equal(t, admission.StatusRejected, got.Status)
		assert.Equal(t, admission.RegistrationStudentCreditCard, got.RegistrationType)
		assert.Equal(t, &admission.CreditCardDetails{BankName: "PNB", AccountNumber: "000111222333"}, got.StudentCreditCardDetails)
		assert.Equal(t, app.Documents, got.Documents)
	})

	t.Run("dropping the credit card clears the details", func(t *testing.T) {
		f := form
		f.StudentCreditCard = admission.No
		rec := ta.serve(newAuthRequest(http.MethodPut, "/v1/admin/admissions/"+app.DBID, token, marshallObj(t, f)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got admission.Application
		unmarshallObj(t, rec.Body.Bytes(), &got)
		assert.Nil(t, got.StudentCreditCardDetails)
		assert.Equal(t, admission.RegistrationRegular, got.RegistrationType)
	})

	dup := form
	dup.UIDAINumber = other.UIDAINumber
	invalid := form
	invalid.Mobile = "12"
	invalid.Class10thMarksObtained = "700"

	runHttpTests(t, ta, []httpTest{
		{
			name:     "UIDAI of another application",
			method:   http.MethodPut,
			path:     "/v1/admin/admissions/" + app.DBID,
			body:     marshallObj(t, dup),
			token:    token,
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, map[string]string{"uidai_number": admission.ErrUIDAIExists.Error()}),
		},
		{
			name:     "invalid fields",
			method:   http.MethodPut,
			path:     "/v1/admin/admissions/" + app.DBID,
			body:     marshallObj(t, invalid),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"mobile": "mobile number must be exactly 10 digits",
				"class_10th_marks_obtained": "marks obtained cannot exceed total marks"
			}`),
		},
	})
}

func Test_adminAdmissionApi_updateStatus(t *testing.T) {
	ta := setup(t)
	token := ta.staffToken(t)
	app := testutil.CreateApplication(t, ta.appRepo, admission.Application{Name: "Ravi", Status: admission.StatusApproved})
	path := "/v1/admin/admissions/" + app.DBID + "/status"

	for _, status := range []string{"Rejected", "pending", "APPROVED", "rejected"} {
		rec := ta.serve(newAuthRequest(http.MethodPut, path, token, marshallObj(t, echoapi.StatusRequest{Status: status})))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got admission.Application
		unmarshallObj(t, rec.Body.Bytes(), &got)
		assert.Equal(t, admission.Status(strings.ToLower(status)), got.Status)
	}

	runHttpTests(t, ta, []httpTest{
		{
			name:     "invalid status",
			method:   http.MethodPut,
			path:     path,
			body:     []byte(`{"status": "waitlisted"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"status": "status must be one of [pending, approved, rejected]"}`),
		},
		{
			name:     "unknown application",
			method:   http.MethodPut,
			path:     "/v1/admin/admissions/3f1b5bd4-2a53-4c7f-bb61-47f2d1b7a8e0/status",
			body:     []byte(`{"status": "approved"}`),
			token:    token,
			wantCode: http.StatusNotFound,
		},
	})
}

func Test_adminAdmissionApi_createManual(t *testing.T) {
	ta := setup(t)
	token := ta.staffToken(t)

	t.Run("defaults to pending", func(t *testing.T) {
		body := []byte(`{
			"name": "Walk In", "father_name": "Father", "mobile": "9123456780",
			"trade": "Plumber", "qualification": "10th", "category": "GEN"
		}`)
		rec := ta.serve(newAuthRequest(http.MethodPost, "/v1/admin/admissions", token, body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got admission.Application
		unmarshallObj(t, rec.Body.Bytes(), &got)
		assert.Regexp(t, applicationIDRegex, got.ApplicationID)
		assert.Equal(t, admission.StatusPending, got.Status)
		assert.Equal(t, admission.RegistrationRegular, got.RegistrationType)
		assert.Empty(t, ta.mailSvc.SentMessages())
	})

	t.Run("status override", func(t *testing.T) {
		body := []byte(`{
			"name": "Walk In 2", "father_name": "Father", "mobile": "9123456781",
			"trade": "Plumber", "qualification": "12th", "category": "ST", "status": "Approved"
		}`)
		rec := ta.serve(newAuthRequest(http.MethodPost, "/v1/admin/admissions", token, body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got admission.Application
		unmarshallObj(t, rec.Body.Bytes(), &got)
		assert.Equal(t, admission.StatusApproved, got.Status)
	})

	runHttpTests(t, ta, []httpTest{
		{
			name:     "required fields",
			method:   http.MethodPost,
			path:     "/v1/admin/admissions",
			body:     []byte(`{"mobile": "12345"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"name": "this field is required",
				"father_name": "this field is required",
				"mobile": "mobile number must be exactly 10 digits",
				"trade": "this field is required",
				"qualification": "this field is required",
				"category": "this field is required"
			}`),
		},
		{
			name:     "unknown trade",
			method:   http.MethodPost,
			path:     "/v1/admin/admissions",
			body:     []byte(`{"name": "A", "father_name": "B", "mobile": "9123456782", "trade": "Pilot", "qualification": "10th", "category": "GEN"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"trade": "select a trade from the list"}`),
		},
	})
}

func Test_adminAdmissionApi_export(t *testing.T) {
	ta := setup(t)
	token := ta.staffToken(t)
	ses := testutil.CreateSession(t, ta.sesRepo, "2026-27", true)
	seedApplications(t, ta, 3, func(i int) admission.Application {
		app := admission.Application{Name: fmt.Sprintf("Applicant, %d", i), SessionID: ses.ID, Trade: "Fitter"}
		if i == 1 {
			app.StudentCreditCard = admission.Yes
			app.StudentCreditCardDetails = &admission.CreditCardDetails{BankName: "SBI", AccountNumber: "123456789"}
		}
		return app
	})

	export := func(t *testing.T, typ string) [][]string {
		rec := ta.serve(newAuthRequest(http.MethodGet, "/v1/admin/admissions/export?type="+typ, token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=\"admissions")

		rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
		require.NoError(t, err)
		for _, row := range rows {
			assert.Len(t, row, 37)
		}
		return rows
	}

	t.Run("all", func(t *testing.T) {
		rows := export(t, "")
		require.Len(t, rows, 4)
		assert.Equal(t, admission.ExportHeader(), rows[0])
		assert.Equal(t, "Applicant, 2", rows[1][1])
		assert.Contains(t, rows[1], "2026-27")
	})

	t.Run("regular", func(t *testing.T) {
		rows := export(t, "regular")
		require.Len(t, rows, 3)
		assert.Equal(t, "Applicant, 2", rows[1][1])
		assert.Equal(t, "Applicant, 0", rows[2][1])
	})

	t.Run("scc", func(t *testing.T) {
		rows := export(t, "scc")
		require.Len(t, rows, 2)
		assert.Equal(t, "Applicant, 1", rows[1][1])
	})

	runHttpTests(t, ta, []httpTest{
		{
			name:     "unknown type",
			method:   http.MethodGet,
			path:     "/v1/admin/admissions/export?type=vip",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"type": admission.ErrInvalidExportType.Error()}),
		},
	})
}

func Test_adminAdmissionApi_documentsAndPrint(t *testing.T) {
	ta := setup(t)
	token := ta.staffToken(t)

	fn, err := ta.docs.Save(context.Background(), admission.SlotAadhaar, admission.Upload{Filename: "a.pdf", Data: []byte("%PDF-aadhaar")})
	require.NoError(t, err)
	app := testutil.CreateApplication(t, ta.appRepo, admission.Application{
		Name:      "Ravi <Kumar>",
		Trade:     "Fitter",
		Documents: admission.Documents{Aadhaar: fn},
	})

	t.Run("download", func(t *testing.T) {
		rec := ta.serve(newAuthRequest(http.MethodGet, "/v1/admin/admissions/documents/"+fn, token))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "%PDF-aadhaar", rec.Body.String())
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	})

	t.Run("print", func(t *testing.T) {
		rec := ta.serve(newAuthRequest(http.MethodGet, "/v1/admin/admissions/"+app.DBID+"/print", token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := rec.Body.String()
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, body, app.ApplicationID)
		assert.Contains(t, body, "Ravi &lt;Kumar&gt;")
		assert.Contains(t, body, "window.print()")
	})

	runHttpTests(t, ta, []httpTest{
		{
			name:     "unknown document",
			method:   http.MethodGet,
			path:     "/v1/admin/admissions/documents/photo-nothing.jpg",
			token:    token,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "documents need a token",
			method:   http.MethodGet,
			path:     "/v1/admin/admissions/documents/" + fn,
			wantCode: http.StatusUnauthorized,
		},
	})
}
