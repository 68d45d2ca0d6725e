package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/admissions/apps/api/echo"
	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/session"
	"github.com/trezcool/admissions/core/site"
	"github.com/trezcool/admissions/core/staff"
	appfs "github.com/trezcool/admissions/fs"
	emailsvc "github.com/trezcool/admissions/services/email"
	inmemdb "github.com/trezcool/admissions/storage/database/inmem"
	"github.com/trezcool/admissions/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	conf    *core.Config
	server  echoapi.Server
	db      *inmemdb.DB
	appRepo admission.Repository
	sesRepo session.Repository
	stfRepo staff.Repository
	siteDB  interface{ Fail(error) }
	docs    *testutil.FakeDocumentStore
	mailSvc *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) *testApp {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	validate, translator, admissionValidator := testutil.NewValidators(conf)
	core.ParseEmailTemplates(appfs.FS, "templates/email", conf, logger)

	// set up DB & repos
	db := inmemdb.Open()
	siteRepo := inmemdb.NewSiteRepository(db)
	ta := &testApp{
		conf:    conf,
		db:      db,
		appRepo: inmemdb.NewApplicationRepository(db),
		sesRepo: inmemdb.NewSessionRepository(db),
		stfRepo: inmemdb.NewStaffRepository(db),
		siteDB:  siteRepo,
		docs:    testutil.NewFakeDocumentStore(),
		mailSvc: emailsvc.NewConsoleServiceMock(conf, logger),
	}

	// set up services
	sessionSvc := session.NewService(ta.sesRepo, validate, translator)
	admissionSvc := admission.NewService(ta.appRepo, sessionSvc, ta.docs, admissionValidator, ta.mailSvc, logger, conf.Admission)

	// set up server
	ta.server = echoapi.NewServer(echoapi.Options{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		AdmissionSvc:   admissionSvc,
		SessionSvc:     sessionSvc,
		StaffSvc:       staff.NewService(ta.stfRepo, validate, translator),
		SiteSvc:        site.NewService(siteRepo, conf, validate, translator, logger),
	})
	return ta
}

// staffToken creates an active staff account & returns a token for it.
func (ta *testApp) staffToken(t *testing.T) string {
	s := testutil.CreateStaff(t, ta.stfRepo, "clerk", "password123", true)
	return getToken(t, ta.conf, s)
}

func (ta *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ta.server.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

// newMultipartRequest encodes the wizard payload as a multipart form, one file part per upload.
func newMultipartRequest(t *testing.T, path string, na admission.NewApplication, uploads admission.Uploads) *http.Request {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	var fields map[string]interface{}
	if err := json.Unmarshal(marshallObj(t, na), &fields); err != nil {
		t.Fatalf("newMultipartRequest() failed: %v", err)
	}
	for k, v := range fields {
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case bool:
			s = strconv.FormatBool(val)
		}
		if err := w.WriteField(k, s); err != nil {
			t.Fatalf("newMultipartRequest() failed: %v", err)
		}
	}
	for slot, up := range uploads {
		fw, err := w.CreateFormFile(string(slot), up.Filename)
		if err != nil {
			t.Fatalf("newMultipartRequest() failed: %v", err)
		}
		_, _ = fw.Write(up.Data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newMultipartRequest() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func getToken(t *testing.T, conf *core.Config, s staff.Staff) string {
	token, err := echoapi.GenerateToken(conf, s)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshallObj(t *testing.T, data []byte, obj interface{}) {
	if err := json.Unmarshal(data, obj); err != nil {
		t.Fatalf("unmarshallObj() failed: %v; data: %s", err, data)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHttpTests(t *testing.T, ta *testApp, tests []httpTest) {
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.serve(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}
