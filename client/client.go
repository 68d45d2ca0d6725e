// Package client talks to the admissions API over HTTP.
// It implements admission.UIDAIChecker & admission.Submitter, so a Wizard can drive a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/session"
	"github.com/trezcool/admissions/core/site"
	"github.com/trezcool/admissions/core/staff"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not authenticated")
	ErrForbidden    = errors.New("forbidden")
)

// APIError is any unexpected error response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string // eg: http://localhost:8000/v1
	rest    *rest.Client

	mu    sync.RWMutex
	token string
}

// New returns a Client for the API served at `baseURL`. A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		rest:    &rest.Client{HTTPClient: httpClient},
	}
}

var (
	_ admission.UIDAIChecker = (*Client)(nil)
	_ admission.Submitter    = (*Client)(nil)
)

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) request(method rest.Method, path string, query map[string]string, body interface{}) (rest.Request, error) {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: query,
	}
	if token := c.Token(); token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return req, errors.Wrap(err, "encoding request body")
		}
		req.Body = data
		req.Headers["Content-Type"] = "application/json"
	}
	return req, nil
}

// do sends `req` & decodes a successful JSON response into `out` (if not nil).
func (c *Client) do(ctx context.Context, req rest.Request, out interface{}) error {
	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.BaseURL)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return decodeError(res)
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal([]byte(res.Body), out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	req, err := c.request(rest.Get, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

func (c *Client) send(ctx context.Context, method rest.Method, path string, body, out interface{}) error {
	req, err := c.request(method, path, nil, body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// decodeError turns an error response back into the core error it was rendered from.
func decodeError(res *rest.Response) error {
	var msg string
	var flds []core.FieldError

	var body map[string]interface{}
	if err := json.Unmarshal([]byte(res.Body), &body); err == nil {
		if m, ok := body["error"].(string); ok && len(body) == 1 {
			msg = m
		} else {
			for field, v := range body {
				if s, ok := v.(string); ok {
					flds = append(flds, core.FieldError{Field: field, Error: s})
				}
			}
			sort.Slice(flds, func(i, j int) bool { return flds[i].Field < flds[j].Field })
		}
	} else {
		msg = strings.TrimSpace(res.Body)
	}

	switch res.StatusCode {
	case http.StatusBadRequest:
		var err error
		if msg != "" {
			err = errors.New(msg)
		}
		return core.NewValidationError(err, flds...)
	case http.StatusConflict:
		err := errors.New(msg)
		for _, f := range flds {
			if f.Field == "uidai_number" {
				err = admission.ErrUIDAIExists
			}
		}
		return core.NewConflictError(err, flds...)
	case http.StatusUnauthorized:
		return errors.Wrap(ErrUnauthorized, msg)
	case http.StatusForbidden:
		return errors.Wrap(ErrForbidden, msg)
	case http.StatusNotFound:
		return ErrNotFound
	}
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}
	return &APIError{StatusCode: res.StatusCode, Message: msg}
}

// Public API

func (c *Client) Trades(ctx context.Context) ([]string, error) {
	var trades []string
	err := c.get(ctx, "/trades", nil, &trades)
	return trades, err
}

func (c *Client) ActiveSessions(ctx context.Context) ([]session.Session, error) {
	var sessions []session.Session
	err := c.get(ctx, "/sessions/active", nil, &sessions)
	return sessions, err
}

func (c *Client) SiteSettings(ctx context.Context) (site.Settings, error) {
	var settings site.Settings
	err := c.get(ctx, "/site/settings", nil, &settings)
	return settings, err
}

func (c *Client) IsUIDAIAvailable(ctx context.Context, number string) (bool, error) {
	var res struct {
		Available bool `json:"available"`
	}
	if err := c.get(ctx, "/admissions/check-uidai/"+url.PathEscape(number), nil, &res); err != nil {
		return false, err
	}
	return res.Available, nil
}

// Submit posts the application & its documents as multipart/form-data.
func (c *Client) Submit(ctx context.Context, na admission.NewApplication, uploads admission.Uploads) (admission.Application, error) {
	body, contentType, err := encodeApplicationForm(na, uploads)
	if err != nil {
		return admission.Application{}, err
	}
	req, err := c.request(rest.Post, "/admissions", nil, nil)
	if err != nil {
		return admission.Application{}, err
	}
	req.Body = body
	req.Headers["Content-Type"] = contentType

	var app admission.Application
	err = c.do(ctx, req, &app)
	return app, err
}

// encodeApplicationForm writes every field of `na` under its form name, then one file part per upload.
func encodeApplicationForm(na admission.NewApplication, uploads admission.Uploads) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	data, err := json.Marshal(na)
	if err != nil {
		return nil, "", errors.Wrap(err, "encoding application")
	}
	var fields map[string]interface{}
	if err = json.Unmarshal(data, &fields); err != nil {
		return nil, "", errors.Wrap(err, "encoding application")
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var value string
		switch v := fields[name].(type) {
		case string:
			value = v
		case bool:
			value = strconv.FormatBool(v)
		default:
			continue
		}
		if err = w.WriteField(name, value); err != nil {
			return nil, "", errors.Wrap(err, "writing form field")
		}
	}

	for _, slot := range admission.DocumentSlots {
		up, ok := uploads[slot]
		if !ok {
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, string(slot), up.Filename))
		ct := up.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", errors.Wrap(err, "writing form file")
		}
		if _, err = part.Write(up.Data); err != nil {
			return nil, "", errors.Wrap(err, "writing form file")
		}
	}

	if err = w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "closing form")
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// Staff API

// Login authenticates the staff & keeps the token for the next calls.
func (c *Client) Login(ctx context.Context, username, password string) (staff.Staff, error) {
	var res struct {
		Token string      `json:"token"`
		Staff staff.Staff `json:"staff"`
	}
	if err := c.send(ctx, rest.Post, "/admin/login", staff.LoginRequest{Username: username, Password: password}, &res); err != nil {
		return staff.Staff{}, err
	}
	c.SetToken(res.Token)
	return res.Staff, nil
}

func (c *Client) RefreshToken(ctx context.Context) error {
	var res struct {
		Token string `json:"token"`
	}
	if err := c.send(ctx, rest.Post, "/admin/token-refresh", nil, &res); err != nil {
		return err
	}
	c.SetToken(res.Token)
	return nil
}

func filterQuery(filter admission.QueryFilter) map[string]string {
	q := make(map[string]string)
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.Trade != "" {
		q["trade"] = filter.Trade
	}
	if filter.Search != "" {
		q["search"] = filter.Search
	}
	return q
}

func (c *Client) Applications(ctx context.Context, filter admission.QueryFilter, page int) (admission.Page, error) {
	q := filterQuery(filter)
	if page > 0 {
		q["page"] = strconv.Itoa(page)
	}
	var p admission.Page
	err := c.get(ctx, "/admin/admissions", q, &p)
	return p, err
}

func (c *Client) Application(ctx context.Context, dbID string) (admission.Application, error) {
	var detail struct {
		Application admission.Application `json:"application"`
	}
	err := c.get(ctx, "/admin/admissions/"+url.PathEscape(dbID), nil, &detail)
	return detail.Application, err
}

func (c *Client) UpdateApplication(ctx context.Context, dbID string, ua admission.UpdateApplication) (admission.Application, error) {
	var app admission.Application
	err := c.send(ctx, rest.Put, "/admin/admissions/"+url.PathEscape(dbID), ua, &app)
	return app, err
}

func (c *Client) UpdateStatus(ctx context.Context, dbID string, status admission.Status) (admission.Application, error) {
	var app admission.Application
	body := map[string]string{"status": string(status)}
	err := c.send(ctx, rest.Put, "/admin/admissions/"+url.PathEscape(dbID)+"/status", body, &app)
	return app, err
}

func (c *Client) CreateManual(ctx context.Context, nm admission.NewManualApplication) (admission.Application, error) {
	var app admission.Application
	err := c.send(ctx, rest.Post, "/admin/admissions", nm, &app)
	return app, err
}

// Export writes the CSV export of `typ` to `w`.
func (c *Client) Export(ctx context.Context, filter admission.QueryFilter, typ admission.ExportType, w io.Writer) error {
	q := filterQuery(filter)
	q["type"] = string(typ)
	return c.download(ctx, "/admin/admissions/export", q, "text/csv", w)
}

// Document writes the stored document `filename` to `w`.
func (c *Client) Document(ctx context.Context, filename string, w io.Writer) error {
	return c.download(ctx, "/admin/admissions/documents/"+url.PathEscape(filename), nil, "*/*", w)
}

// PrintForm writes the printable HTML form of application `dbID` to `w`.
func (c *Client) PrintForm(ctx context.Context, dbID string, w io.Writer) error {
	return c.download(ctx, "/admin/admissions/"+url.PathEscape(dbID)+"/print", nil, "text/html", w)
}

// download copies a non-JSON response body to `w`.
func (c *Client) download(ctx context.Context, path string, query map[string]string, accept string, w io.Writer) error {
	req, err := c.request(rest.Get, path, query, nil)
	if err != nil {
		return err
	}
	req.Headers["Accept"] = accept

	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.BaseURL)
	}
	if res.StatusCode != http.StatusOK {
		return decodeError(res)
	}
	_, err = io.WriteString(w, res.Body)
	return err
}
