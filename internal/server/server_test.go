package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/stillcare/carefront/internal/metrics"
	"github.com/stillcare/carefront/pkg/dataservice"
	"github.com/stillcare/carefront/pkg/forms"
	"github.com/stillcare/carefront/pkg/formview"
	"github.com/stillcare/carefront/pkg/requestid"
	"github.com/stillcare/carefront/pkg/rules"
)

type stubSubmitter struct {
	endpoint string
	values   map[string]any
	err      error
}

func (s *stubSubmitter) Submit(_ context.Context, endpoint string, values map[string]any) (map[string]any, error) {
	s.endpoint = endpoint
	s.values = values
	if s.err != nil {
		return nil, s.err
	}
	return map[string]any{"id": float64(7)}, nil
}

func newTestServer(t *testing.T, submitter Submitter) (*Server, *metrics.Metrics) {
	t.Helper()

	catalogue, err := forms.Default(context.Background())
	if err != nil {
		t.Fatalf("forms.Default: %v", err)
	}
	store, err := rules.Default()
	if err != nil {
		t.Fatalf("rules.Default: %v", err)
	}
	m := metrics.New()
	srv, err := New(Deps{Catalogue: catalogue, Rules: store, Submitter: submitter, Metrics: m})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, m
}

func stateOf(t *testing.T, states []formview.State, key string) formview.State {
	t.Helper()
	for _, state := range states {
		if state.Key == key {
			return state
		}
	}
	t.Fatalf("no state for %q", key)
	return formview.State{}
}

func TestNewRequiresCatalogueAndRules(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Fatalf("expected error for missing deps")
	}
}

func TestHealthzSetsRequestID(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestid.Header, "req-42")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get(requestid.Header); got != "req-42" {
		t.Fatalf("request id = %q", got)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get(requestid.Header) == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestListForms(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/forms/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	var got []formSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	ids := make([]string, 0, len(got))
	for _, summary := range got {
		ids = append(ids, summary.ID)
		if summary.ID == "incident" {
			want := []string{"incident_notifiable_riddor", "was_person_injured"}
			if diff := cmp.Diff(want, summary.Triggers); diff != "" {
				t.Fatalf("incident triggers mismatch (-want +got):\n%s", diff)
			}
		}
		if summary.ID == "client" && len(summary.Triggers) != 0 {
			t.Fatalf("client form has no rules, got triggers %v", summary.Triggers)
		}
	}
	want := []string{"appointment", "body_map", "client", "incident", "invoice", "visit"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestShowRendersInitialState(t *testing.T) {
	srv, m := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/forms/incident?incident_notifiable_riddor=on", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`id="field-person_injured" data-field="person_injured" style="display:none"`,
		`id="field-injury_details" data-field="injury_details" style="display:none"`,
		`id="field-f2508_document" data-field="f2508_document">`,
		`name="incident_notifiable_riddor" checked data-trigger`,
		`action="/forms/incident"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body:\n%s", want, body)
		}
	}

	if got := testutil.ToFloat64(m.DisclosureRuns.WithLabelValues("incident", "disclosed")); got != 1 {
		t.Fatalf("disclosed runs = %v", got)
	}
}

func TestShowNegotiatesJSON(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/forms/body_map", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var doc struct {
		StateURL string   `json:"stateUrl"`
		Triggers []string `json:"triggers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.StateURL != "/forms/body_map/state" {
		t.Fatalf("state url = %q", doc.StateURL)
	}
	if len(doc.Triggers) == 0 {
		t.Fatalf("expected triggers")
	}
}

func TestShowUnknownForm(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/forms/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStateAppliesChange(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	post := func(t *testing.T, body string) StateResponse {
		t.Helper()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/forms/body_map/state", strings.NewReader(body))
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
		}
		var resp StateResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp
	}

	t.Run("chained disclosure", func(t *testing.T) {
		resp := post(t, `{"values":{"photography_consent":true,"photos_taken":true},"changed":"photos_taken"}`)
		doc := stateOf(t, resp.States, "photo_documentation")
		if !doc.Visible || !doc.Required || !strings.HasSuffix(doc.Label, " *") {
			t.Fatalf("photo_documentation not disclosed: %+v", doc)
		}
		if photos := stateOf(t, resp.States, "photos_taken"); !photos.Visible || photos.Required {
			t.Fatalf("photos_taken should be visible and optional: %+v", photos)
		}
	})

	t.Run("outer uncheck resets chain", func(t *testing.T) {
		resp := post(t, `{"values":{"photography_consent":false,"photos_taken":true,"photo_documentation":"x"},"changed":"photography_consent"}`)
		photos := stateOf(t, resp.States, "photos_taken")
		if photos.Visible || photos.Checked {
			t.Fatalf("photos_taken should be hidden and unchecked: %+v", photos)
		}
		doc := stateOf(t, resp.States, "photo_documentation")
		if doc.Visible || doc.Value != "" {
			t.Fatalf("photo_documentation should be concealed and cleared: %+v", doc)
		}
		if resp.Values["photo_documentation"] != nil {
			t.Fatalf("hidden field should submit nil, got %v", resp.Values["photo_documentation"])
		}
	})

	t.Run("rejects unknown changed field", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/forms/body_map/state", strings.NewReader(`{"changed":"nope"}`))
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("rejects fields without rules", func(t *testing.T) {
		for _, target := range []string{"/forms/body_map/state", "/forms/client/state"} {
			body := `{"changed":"notes"}`
			if target == "/forms/client/state" {
				body = `{"changed":"first_name"}`
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("%s: status = %d", target, rec.Code)
			}
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/forms/body_map/state", strings.NewReader(`{`))
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestSubmitForwardsValues(t *testing.T) {
	submitter := &stubSubmitter{}
	srv, _ := newTestServer(t, submitter)

	form := url.Values{}
	form.Set("repeats", "on")
	form.Set("frequency", "weekly")
	req := httptest.NewRequest(http.MethodPost, "/forms/appointment", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if submitter.endpoint != "/appointments/" {
		t.Fatalf("endpoint = %q", submitter.endpoint)
	}
	if submitter.values["repeats"] != true || submitter.values["frequency"] != "weekly" {
		t.Fatalf("unexpected values: %v", submitter.values)
	}
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for key, name := range files {
		part, err := w.CreateFormFile(key, name)
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		_, _ = part.Write([]byte("%PDF-1.4 " + name))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestSubmitForwardsUploads(t *testing.T) {
	t.Run("disclosed file field", func(t *testing.T) {
		submitter := &stubSubmitter{}
		srv, _ := newTestServer(t, submitter)

		req := multipartRequest(t, "/forms/incident",
			map[string]string{"incident_notifiable_riddor": "on"},
			map[string]string{"f2508_document": "f2508.pdf"})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
		}
		upload, ok := submitter.values["f2508_document"].(dataservice.Upload)
		if !ok {
			t.Fatalf("expected an upload, got %#v", submitter.values["f2508_document"])
		}
		if upload.Filename != "f2508.pdf" || string(upload.Data) != "%PDF-1.4 f2508.pdf" {
			t.Fatalf("unexpected upload %+v", upload)
		}
		if submitter.values["incident_notifiable_riddor"] != true {
			t.Fatalf("riddor = %v", submitter.values["incident_notifiable_riddor"])
		}
	})

	t.Run("concealed file field is dropped", func(t *testing.T) {
		submitter := &stubSubmitter{}
		srv, _ := newTestServer(t, submitter)

		req := multipartRequest(t, "/forms/incident", nil, map[string]string{"f2508_document": "f2508.pdf"})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
		}
		if got, ok := submitter.values["f2508_document"]; !ok || got != nil {
			t.Fatalf("expected null f2508_document, got %#v", got)
		}
	})

	t.Run("file for a non-file field", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubSubmitter{})

		req := multipartRequest(t, "/forms/incident", nil, map[string]string{"injury_details": "notes.txt"})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestSubmitRendersFieldErrors(t *testing.T) {
	submitter := &stubSubmitter{err: &dataservice.OperationError{
		Op:     "submit",
		Status: http.StatusBadRequest,
		Fields: map[string][]string{
			"frequency":        {"This field is required."},
			"non_field_errors": {"Appointment overlaps another visit."},
		},
		Err: dataservice.ErrOperationFailed,
	}}
	srv, _ := newTestServer(t, submitter)

	req := httptest.NewRequest(http.MethodPost, "/forms/appointment", bytes.NewBufferString(`{"repeats":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<p class="field-error">This field is required.</p>`,
		`<p class="form-error">Appointment overlaps another visit.</p>`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body:\n%s", want, body)
		}
	}
}

func TestSubmitBackendFailure(t *testing.T) {
	srv, _ := newTestServer(t, &stubSubmitter{err: &dataservice.OperationError{Op: "submit", Status: 500, Err: dataservice.ErrOperationFailed}})

	req := httptest.NewRequest(http.MethodPost, "/forms/client", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSubmitWithoutSubmitter(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/forms/client", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRecoverAndMetrics(t *testing.T) {
	srv, m := newTestServer(t, nil)
	srv.router.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/boom", "500")); got != 1 {
		t.Fatalf("boom requests = %v", got)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `carefront_http_requests_total{method="GET",route="/boom",status="500"} 1`) {
		t.Fatalf("expected http metric in:\n%s", rec.Body.String())
	}
}
