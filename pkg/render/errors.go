package render

import (
	"strings"

	"github.com/stillcare/carefront/pkg/model"
)

// ErrorMapping splits a backend error payload into messages for individual
// fields and messages for the whole form.
type ErrorMapping struct {
	Fields map[string][]string `json:"fields,omitempty"`
	Form   []string            `json:"form,omitempty"`
}

// For returns the messages recorded against a field key.
func (m ErrorMapping) For(key string) []string {
	return m.Fields[key]
}

// Empty reports whether no messages were mapped.
func (m ErrorMapping) Empty() bool {
	return len(m.Fields) == 0 && len(m.Form) == 0
}

// MapErrors assigns backend messages to the fields of form. Keys that do not
// name a field, including "non_field_errors" and "detail", become form-level
// messages so nothing is dropped. Messages are trimmed and de-duplicated.
func MapErrors(form model.Form, payload map[string][]string) ErrorMapping {
	var mapping ErrorMapping
	for rawKey, messages := range payload {
		messages = normalizeMessages(messages)
		if len(messages) == 0 {
			continue
		}
		key := strings.TrimSpace(rawKey)
		if _, ok := form.Field(key); !ok || isFormLevelKey(key) {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[key] = append(mapping.Fields[key], messages...)
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(key) {
	case "", "non_field_errors", "detail", "__all__":
		return true
	default:
		return false
	}
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
