package dataservice

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrOperationFailed matches every failed data-service call. Callers report
// it once and leave retrying to the user.
var ErrOperationFailed = errors.New("dataservice: operation failed")

// OperationError describes one failed call. Status is zero for transport
// failures. Fields holds per-field messages when the backend returned a
// validation payload.
type OperationError struct {
	Op     string
	Method string
	URL    string
	Status int
	Fields map[string][]string
	Err    error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dataservice: %s: %s %s", e.Op, e.Method, e.URL)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Is lets errors.Is(err, ErrOperationFailed) match.
func (e *OperationError) Is(target error) bool {
	return target == ErrOperationFailed
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Messages flattens Fields into "field: message" lines, sorted by field.
func (e *OperationError) Messages() []string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []string
	for _, key := range keys {
		for _, msg := range e.Fields[key] {
			out = append(out, key+": "+msg)
		}
	}
	return out
}

// parseFieldErrors reads a validation payload such as
// {"name": ["This field is required."], "detail": "Not found."}.
// Anything else yields nil.
func parseFieldErrors(body []byte) map[string][]string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return nil
	}

	out := make(map[string][]string, len(raw))
	for key, value := range raw {
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			out[key] = []string{single}
			continue
		}
		var list []string
		if err := json.Unmarshal(value, &list); err == nil && len(list) > 0 {
			out[key] = list
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
