package render

import (
	"context"
	"encoding/json"

	"github.com/stillcare/carefront/pkg/model"
)

// JSON renders the form and its options as a JSON document for clients that
// draw the controls themselves.
type JSON struct {
	Indent bool
}

var _ Renderer = JSON{}

type jsonDocument struct {
	Form     model.Form    `json:"form"`
	Action   string        `json:"action,omitempty"`
	StateURL string        `json:"stateUrl,omitempty"`
	Triggers []string      `json:"triggers,omitempty"`
	Errors   *ErrorMapping `json:"errors,omitempty"`
	Hidden   []HiddenField `json:"hidden,omitempty"`
}

func (JSON) Name() string        { return "json" }
func (JSON) ContentType() string { return "application/json" }

func (j JSON) Render(ctx context.Context, form model.Form, options Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc := jsonDocument{
		Form:     form,
		Action:   ActionFor(form, options),
		StateURL: options.StateURL,
		Triggers: options.Triggers,
		Hidden:   SortedHiddenFields(options.Hidden),
	}
	if !options.Errors.Empty() {
		errs := options.Errors
		doc.Errors = &errs
	}
	if j.Indent {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}

// ActionFor returns the submit URL for form, preferring options.Action.
func ActionFor(form model.Form, options Options) string {
	if options.Action != "" {
		return options.Action
	}
	return form.Endpoint
}
