package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stillcare/carefront/pkg/dataservice"
	"github.com/stillcare/carefront/pkg/formview"
	"github.com/stillcare/carefront/pkg/model"
)

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments("set", []string{"consent_given=true", " notes =a=b"})
	if err != nil {
		t.Fatalf("parseAssignments: %v", err)
	}
	want := map[string]any{"consent_given": "true", "notes": "a=b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parseAssignments("extra", []string{bad}); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestDiscloseCommand(t *testing.T) {
	t.Setenv("CAREFRONT_RULES_DIR", "")
	t.Setenv("CAREFRONT_FORMS_SCHEMA", "")

	cmd := discloseCmd()
	cmd.Flags().String("env-file", "", "")
	cmd.Flags().String("log-level", "error", "")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"incident", "--set", "was_person_injured=on", "--changed", "was_person_injured"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var got struct {
		Form   string           `json:"form"`
		States []formview.State `json:"states"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	visible := map[string]bool{}
	for _, state := range got.States {
		visible[state.Key] = state.Visible
	}
	if !visible["person_injured"] || !visible["injury_details"] || visible["f2508_document"] {
		t.Fatalf("unexpected visibility: %v", visible)
	}
}

func TestDiscloseRejectsNonTrigger(t *testing.T) {
	cmd := discloseCmd()
	cmd.Flags().String("env-file", "", "")
	cmd.Flags().String("log-level", "error", "")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"incident", "--changed", "time"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected error for a field without rules")
	}
}

func TestDiscloseExtras(t *testing.T) {
	dir := t.TempDir()
	table := `forms:
  body_map:
    rules:
      - when: 'extras.role == "nurse" && follow_up_required'
        dependents: [follow_up_details]
`
	if err := os.WriteFile(filepath.Join(dir, "body_map.yaml"), []byte(table), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	t.Setenv("CAREFRONT_RULES_DIR", dir)
	t.Setenv("CAREFRONT_FORMS_SCHEMA", "")

	for role, want := range map[string]bool{"nurse": true, "carer": false} {
		t.Run(role, func(t *testing.T) {
			cmd := discloseCmd()
			cmd.Flags().String("env-file", "", "")
			cmd.Flags().String("log-level", "error", "")
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"body_map", "--set", "follow_up_required=on", "--extra", "role=" + role})
			if err := cmd.ExecuteContext(context.Background()); err != nil {
				t.Fatalf("execute: %v", err)
			}

			var got struct {
				States []formview.State `json:"states"`
			}
			if err := json.Unmarshal(out.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v\n%s", err, out.String())
			}
			for _, state := range got.States {
				if state.Key == "follow_up_details" && state.Visible != want {
					t.Fatalf("follow_up_details visible = %v, want %v", state.Visible, want)
				}
			}
		})
	}
}

func TestAttachUploads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f2508.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	form := model.Form{Fields: []model.Field{
		{Key: "incident_details", Kind: model.FieldKindTextArea},
		{Key: "f2508_document", Kind: model.FieldKindFile},
		{Key: "photo_documentation", Kind: model.FieldKindFile},
	}}
	values := map[string]any{"incident_details": "Fall", "f2508_document": path, "photo_documentation": nil}

	if err := attachUploads(form, values); err != nil {
		t.Fatalf("attachUploads: %v", err)
	}
	want := map[string]any{
		"incident_details":    "Fall",
		"f2508_document":      dataservice.Upload{Filename: "f2508.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
		"photo_documentation": nil,
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	values["f2508_document"] = filepath.Join(t.TempDir(), "missing.pdf")
	if err := attachUploads(form, values); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}

func TestRunRecords(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "GET /api/clients/":
			_, _ = w.Write([]byte(`[{"id":1,"first_name":"Ada","last_name":"Lovelace","care_checklist":["hygiene"]}]`))
		case "GET /api/clients/1/":
			_, _ = w.Write([]byte(`{"id":1,"first_name":"Ada","last_name":"Lovelace"}`))
		case "GET /api/invoices/":
			_, _ = w.Write([]byte(`[{"id":3,"name":"Council funded","clients_count":2}]`))
		case "GET /api/dashboard/":
			_, _ = w.Write([]byte(`{"total_clients":1,"active_appointments":0,"today_visits":1,"pending_invoices":0}`))
		case "GET /api/appointments/recent/":
			_, _ = w.Write([]byte(`[]`))
		case "GET /api/visits/today/":
			_, _ = w.Write([]byte(`[{"id":4,"appointment":2,"status":"in_progress","actual_start_time":null,"actual_end_time":null}]`))
		case "DELETE /api/clients/1/":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(api.Close)

	client, err := dataservice.New(api.URL + "/api")
	if err != nil {
		t.Fatalf("dataservice.New: %v", err)
	}
	ctx := context.Background()

	out, err := runRecords(ctx, client, []string{"clients"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	wantClients := []dataservice.CareClient{{ID: 1, FirstName: "Ada", LastName: "Lovelace", CareChecklist: []string{"hygiene"}}}
	if diff := cmp.Diff(wantClients, out); diff != "" {
		t.Fatalf("client list mismatch (-want +got):\n%s", diff)
	}

	out, err = runRecords(ctx, client, []string{"clients", "get", "1"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record, ok := out.(dataservice.CareClient); !ok || record.FullName() != "Ada Lovelace" {
		t.Fatalf("unexpected record: %#v", out)
	}

	out, err = runRecords(ctx, client, []string{"invoices", "list"})
	if err != nil {
		t.Fatalf("invoices: %v", err)
	}
	if diff := cmp.Diff([]dataservice.InvoiceGroup{{ID: 3, Name: "Council funded", ClientsCount: 2}}, out); diff != "" {
		t.Fatalf("invoice list mismatch (-want +got):\n%s", diff)
	}

	out, err = runRecords(ctx, client, []string{"dashboard"})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	overview, ok := out.(dataservice.Overview)
	if !ok || overview.Stats.TotalClients != 1 || len(overview.RecentAppointments) != 0 || len(overview.TodayVisits) != 1 {
		t.Fatalf("unexpected overview: %#v", out)
	}
	if overview.TodayVisits[0].Status != dataservice.StatusInProgress {
		t.Fatalf("unexpected visit: %+v", overview.TodayVisits[0])
	}

	if out, err := runRecords(ctx, client, []string{"clients", "delete", "1"}); err != nil || out != nil {
		t.Fatalf("delete: %v %v", out, err)
	}

	for _, args := range [][]string{
		{"patients"},
		{"clients", "get"},
		{"clients", "get", "x"},
		{"clients", "patch", "1"},
	} {
		if _, err := runRecords(ctx, client, args); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}
