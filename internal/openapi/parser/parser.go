package parser

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/stillcare/carefront/internal/model"
)

const (
	formIDExtensionKey     = "x-form-id"
	orderExtensionKey      = "x-order"
	widgetExtensionKey     = "x-widget"
	enumLabelsExtensionKey = "x-enum-labels"
)

// Options tune how a document is parsed.
type Options struct {
	// Labeler produces a label for properties without a title.
	Labeler func(string) string
	// Validate runs the kin-openapi document validator before extraction.
	Validate bool
}

// Parser turns request bodies of an OpenAPI document into forms.
type Parser struct {
	options Options
}

// New constructs a Parser with the given options.
func New(options Options) *Parser {
	if options.Labeler == nil {
		options.Labeler = model.DefaultLabeler
	}
	return &Parser{options: options}
}

// Forms extracts one form per operation that declares a request body.
// Forms are returned sorted by id.
func (p *Parser) Forms(ctx context.Context, raw []byte) ([]model.Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi parser: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi parser: load document: %w", err)
	}
	if p.options.Validate {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi parser: validate: %w", err)
		}
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, errors.New("openapi parser: document does not contain any paths")
	}

	seen := make(map[string]string)
	var forms []model.Form
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, operation := range item.Operations() {
			form, ok := p.formFor(method, path, operation)
			if !ok {
				continue
			}
			if prev, exists := seen[form.ID]; exists {
				return nil, fmt.Errorf("openapi parser: form %q declared by %s and %s %s", form.ID, prev, method, path)
			}
			seen[form.ID] = method + " " + path
			forms = append(forms, form)
		}
	}
	if len(forms) == 0 {
		return nil, errors.New("openapi parser: no forms extracted")
	}

	sort.Slice(forms, func(i, j int) bool { return forms[i].ID < forms[j].ID })
	return forms, nil
}

func (p *Parser) formFor(method, path string, operation *openapi3.Operation) (model.Form, bool) {
	if operation == nil || operation.RequestBody == nil || operation.RequestBody.Value == nil {
		return model.Form{}, false
	}
	schema := requestSchema(operation.RequestBody.Value.Content)
	if schema == nil || len(schema.Properties) == 0 {
		return model.Form{}, false
	}

	id := stringExtension(operation.Extensions, formIDExtensionKey)
	if id == "" {
		id = operation.OperationID
	}
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}

	return model.Form{
		ID:          id,
		Title:       operation.Summary,
		Description: operation.Description,
		Endpoint:    path,
		Method:      method,
		Fields:      p.fields(schema),
	}, true
}

func requestSchema(content openapi3.Content) *openapi3.Schema {
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

type orderedField struct {
	field model.Field
	order float64
	set   bool
}

func (p *Parser) fields(schema *openapi3.Schema) []model.Field {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	ordered := make([]orderedField, 0, len(schema.Properties))
	for name, ref := range schema.Properties {
		if ref == nil || ref.Value == nil || ref.Value.ReadOnly {
			continue
		}
		prop := ref.Value
		field := model.Field{
			Key:      name,
			Kind:     fieldKind(prop),
			Label:    prop.Title,
			Help:     prop.Description,
			Required: required[name],
			Options:  options(prop),
		}
		if field.Label == "" {
			field.Label = p.options.Labeler(name)
		}
		order, set := numberExtension(prop.Extensions, orderExtensionKey)
		ordered = append(ordered, orderedField{field: field, order: order, set: set})
	}

	// Ordered properties first, then the rest alphabetically.
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.set != b.set {
			return a.set
		}
		if a.set && a.order != b.order {
			return a.order < b.order
		}
		return a.field.Key < b.field.Key
	})

	out := make([]model.Field, len(ordered))
	for i, entry := range ordered {
		out[i] = entry.field
	}
	return out
}

func fieldKind(schema *openapi3.Schema) model.FieldKind {
	switch {
	case schema.Type.Is(openapi3.TypeBoolean):
		return model.FieldKindCheckbox
	case arrayItems(schema) != nil:
		return model.FieldKindMultiSelect
	case len(schema.Enum) > 0:
		return model.FieldKindSelect
	case schema.Format == "binary":
		return model.FieldKindFile
	case schema.Format == "date-time":
		return model.FieldKindDateTime
	case stringExtension(schema.Extensions, widgetExtensionKey) == "textarea":
		return model.FieldKindTextArea
	default:
		return model.FieldKindText
	}
}

// arrayItems returns the item schema of an array of enumerated values.
func arrayItems(schema *openapi3.Schema) *openapi3.Schema {
	if !schema.Type.Is(openapi3.TypeArray) || schema.Items == nil || schema.Items.Value == nil {
		return nil
	}
	if len(schema.Items.Value.Enum) == 0 {
		return nil
	}
	return schema.Items.Value
}

func options(schema *openapi3.Schema) []model.Option {
	labels, _ := schema.Extensions[enumLabelsExtensionKey].([]any)
	if items := arrayItems(schema); items != nil {
		if labels == nil {
			labels, _ = items.Extensions[enumLabelsExtensionKey].([]any)
		}
		schema = items
	}
	if len(schema.Enum) == 0 || schema.Type.Is(openapi3.TypeBoolean) {
		return nil
	}

	out := make([]model.Option, 0, len(schema.Enum))
	for i, value := range schema.Enum {
		opt := model.Option{Value: fmt.Sprint(value)}
		if i < len(labels) {
			if label, ok := labels[i].(string); ok {
				opt.Label = label
			}
		}
		if opt.Label == "" {
			opt.Label = model.DefaultLabeler(opt.Value)
		}
		out = append(out, opt)
	}
	return out
}

func stringExtension(raw map[string]any, key string) string {
	value, ok := raw[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func numberExtension(raw map[string]any, key string) (float64, bool) {
	switch v := raw[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
