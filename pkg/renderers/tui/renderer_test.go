package tui

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stillcare/carefront/pkg/disclosure"
	"github.com/stillcare/carefront/pkg/model"
	"github.com/stillcare/carefront/pkg/render"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	textAreas    []string
	ticked       [][]int
	defaults     [][]int
	infoMessages []string
	prompted     []string
	inputPos     int
	selectPos    int
	confirmPos   int
	textPos      int
	tickedPos    int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.prompted = append(s.prompted, cfg.Message)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.prompted = append(s.prompted, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.prompted = append(s.prompted, cfg.Message)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	s.prompted = append(s.prompted, cfg.Message)
	s.defaults = append(s.defaults, cfg.Defaults)
	if s.tickedPos >= len(s.ticked) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.ticked[s.tickedPos]
	s.tickedPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	s.prompted = append(s.prompted, cfg.Message)
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func incidentForm() model.Form {
	return model.Form{
		ID:    "incident",
		Title: "Report incident",
		Fields: []model.Field{
			{Key: "incident_details", Kind: model.FieldKindTextArea, Label: "Incident details", Required: true},
			{Key: "was_person_injured", Kind: model.FieldKindCheckbox, Label: "Was person injured"},
			{Key: "person_injured", Kind: model.FieldKindSelect, Label: "Person injured", Options: []model.Option{
				{Value: "service_user", Label: "Service user"},
				{Value: "carer", Label: "Carer"},
			}},
			{Key: "injury_details", Kind: model.FieldKindTextArea, Label: "Injury details"},
			{Key: "incident_notifiable_riddor", Kind: model.FieldKindCheckbox, Label: "Incident notifiable RIDDOR"},
			{Key: "f2508_document", Kind: model.FieldKindFile, Label: "F2508 document"},
		},
	}
}

func incidentDiscloser(t *testing.T) *disclosure.Discloser {
	t.Helper()
	d, err := disclosure.New(disclosure.Table{
		Form: "incident",
		Rules: []disclosure.Rule{
			{Trigger: "was_person_injured", Dependents: []string{"person_injured", "injury_details"}},
			{Trigger: "incident_notifiable_riddor", Dependents: []string{"f2508_document"}},
		},
	})
	if err != nil {
		t.Fatalf("disclosure.New: %v", err)
	}
	return d
}

func TestRenderPromptsDisclosedDependents(t *testing.T) {
	driver := &stubDriver{
		textAreas: []string{"Slipped in the hallway", "Bruised knee"},
		confirm:   []bool{true, false},
		selectIdx: []int{2},
	}
	r, err := New(WithPromptDriver(driver), WithDiscloser(incidentDiscloser(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := r.Render(context.Background(), incidentForm(), render.Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"incident_details":           "Slipped in the hallway",
		"was_person_injured":         true,
		"person_injured":             "carer",
		"injury_details":             "Bruised knee",
		"incident_notifiable_riddor": false,
		"f2508_document":             nil,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	wantPrompts := []string{
		"Incident details",
		"Was person injured",
		"Person injured *",
		"Injury details *",
		"Incident notifiable RIDDOR",
	}
	if diff := cmp.Diff(wantPrompts, driver.prompted); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Report incident"}, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderSkipsConcealedFields(t *testing.T) {
	driver := &stubDriver{
		textAreas: []string{"Nothing serious"},
		confirm:   []bool{false, true},
		inputs:    []string{" /tmp/f2508.pdf "},
	}
	r, err := New(
		WithPromptDriver(driver),
		WithDiscloser(incidentDiscloser(t)),
		WithOutputFormat(OutputFormatFormURLEncoded),
		WithTheme(Theme{PromptPrefix: "> "}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := r.Render(context.Background(), incidentForm(), render.Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "f2508_document=%2Ftmp%2Ff2508.pdf&incident_details=Nothing+serious&incident_notifiable_riddor=true&was_person_injured=false"
	if string(out) != want {
		t.Fatalf("unexpected payload\nwant: %s\n got: %s", want, out)
	}
	if driver.prompted[len(driver.prompted)-1] != "> F2508 document *" {
		t.Fatalf("unexpected last prompt %q", driver.prompted[len(driver.prompted)-1])
	}
	if r.ContentType() != "application/x-www-form-urlencoded" {
		t.Fatalf("unexpected content type %q", r.ContentType())
	}
}

func TestRenderUncheckingClearsAnswers(t *testing.T) {
	form := incidentForm()
	form.Fields = form.Fields[1:4]
	form.Fields[0].Checked = true
	form.Fields[2].Value = "stale"

	driver := &stubDriver{confirm: []bool{false}}
	r, err := New(WithPromptDriver(driver), WithDiscloser(incidentDiscloser(t)), WithOutputFormat(OutputFormatPrettyText))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := r.Render(context.Background(), form, render.Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(out) != "was_person_injured: false\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderErrors(t *testing.T) {
	if _, err := New(WithOutputFormat("xml")); err == nil {
		t.Fatalf("expected unsupported format error")
	}

	r, err := New(WithPromptDriver(&stubDriver{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.Render(context.Background(), incidentForm(), render.Options{}); !errors.Is(err, ErrNoDiscloser) {
		t.Fatalf("expected ErrNoDiscloser, got %v", err)
	}

	r, _ = New(WithPromptDriver(&stubDriver{}), WithDiscloser(incidentDiscloser(t)))
	if _, err := r.Render(context.Background(), incidentForm(), render.Options{}); err == nil {
		t.Fatalf("expected driver error to propagate")
	}
}

func TestSelectOptions(t *testing.T) {
	field := model.Field{Value: "carer", Options: []model.Option{
		{Value: "service_user", Label: "Service user"},
		{Value: "carer", Label: "Carer"},
	}}
	options, idx := selectOptions(field)
	if diff := cmp.Diff([]string{noneOption, "Service user", "Carer"}, options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if idx != 2 {
		t.Fatalf("expected default index 2, got %d", idx)
	}
	if optionValue(field, 0) != "" || optionValue(field, 1) != "service_user" || optionValue(field, 9) != "" {
		t.Fatalf("unexpected option values")
	}
}

func TestRenderPromptsDependentsPlacedBeforeTrigger(t *testing.T) {
	form := incidentForm()
	// injury_details, was_person_injured
	form.Fields = []model.Field{form.Fields[3], form.Fields[1]}

	driver := &stubDriver{confirm: []bool{true}, textAreas: []string{"Bruised knee"}}
	r, err := New(WithPromptDriver(driver), WithDiscloser(incidentDiscloser(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := r.Render(context.Background(), form, render.Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if diff := cmp.Diff([]string{"Was person injured", "Injury details *"}, driver.prompted); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{"was_person_injured": true, "injury_details": "Bruised knee"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderCareChecklist(t *testing.T) {
	form := incidentForm()
	form.Fields = append(form.Fields[:2:2], model.Field{
		Key:   "care_checklist",
		Kind:  model.FieldKindMultiSelect,
		Label: "Care checklist",
		Options: []model.Option{
			{Value: "basic_care", Label: "Basic Care"},
			{Value: "hygiene", Label: "Hygiene"},
			{Value: "wound_care", Label: "Wound Care"},
		},
		Selected: []string{"hygiene"},
	})

	driver := &stubDriver{
		textAreas: []string{"Routine visit"},
		confirm:   []bool{false},
		ticked:    [][]int{{0, 2}},
	}
	r, err := New(WithPromptDriver(driver), WithDiscloser(incidentDiscloser(t)), WithOutputFormat(OutputFormatFormURLEncoded))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := r.Render(context.Background(), form, render.Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := "care_checklist=basic_care&care_checklist=wound_care&incident_details=Routine+visit&was_person_injured=false"
	if string(out) != want {
		t.Fatalf("unexpected payload\nwant: %s\n got: %s", want, out)
	}
	if diff := cmp.Diff([][]int{{1}}, driver.defaults); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}

	pretty, err := (&Renderer{outputFormat: OutputFormatPrettyText}).serialize(map[string]any{
		"care_checklist": []string{"basic_care", "wound_care"},
	})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if string(pretty) != "care_checklist: basic_care, wound_care\n" {
		t.Fatalf("unexpected pretty output %q", pretty)
	}
}
