package render

import (
	"context"

	"github.com/stillcare/carefront/pkg/model"
)

// Renderer converts a form, with its current field state, into bytes.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form model.Form, options Options) ([]byte, error)
}
