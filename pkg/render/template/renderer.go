package template

import "io"

// TemplateRenderer executes a named page. The html renderer depends on it
// rather than on Engine.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
}
