package template

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

const extension = ".html"

// Option configures where an Engine finds form markup.
type Option func(*Engine) error

// WithFS serves templates from files, usually the markup bundled with the
// html renderer.
func WithFS(files fs.FS) Option {
	return func(e *Engine) error {
		if files != nil {
			e.loaders = append(e.loaders, pongo2.NewFSLoader(files))
		}
		return nil
	}
}

// WithOverrideDir serves templates from dir ahead of every other source, so
// a deployment can restyle single pages such as field.html and keep the
// bundled rest. An empty dir is ignored.
func WithOverrideDir(dir string) Option {
	return func(e *Engine) error {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			return nil
		}
		loader, err := pongo2.NewLocalFileSystemLoader(dir)
		if err != nil {
			return fmt.Errorf("override dir %q: %w", dir, err)
		}
		e.loaders = append([]pongo2.TemplateLoader{loader}, e.loaders...)
		return nil
	}
}

// Engine renders care form pages with pongo2. Parsed templates are cached
// per name.
type Engine struct {
	loaders []pongo2.TemplateLoader
	set     *pongo2.TemplateSet

	mu     sync.RWMutex
	parsed map[string]*pongo2.Template
}

var _ TemplateRenderer = (*Engine)(nil)

// New builds an Engine from at least one template source.
func New(options ...Option) (*Engine, error) {
	e := &Engine{parsed: make(map[string]*pongo2.Template)}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("template: %w", err)
		}
	}
	if len(e.loaders) == 0 {
		return nil, errors.New("template: no form markup configured")
	}
	e.set = pongo2.NewSet("carefront", e.loaders...)
	registerFilters()
	return e, nil
}

// RenderTemplate executes the page called name, with or without its
// ".html" suffix, and copies the markup to every out writer.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("template: engine not built with New")
	}
	if !strings.HasSuffix(name, extension) {
		name += extension
	}
	ctx, err := toContext(data)
	if err != nil {
		return "", err
	}
	tmpl, err := e.lookup(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(ctx, &buf); err != nil {
		return "", fmt.Errorf("template: render %s: %w", name, err)
	}
	page := buf.String()
	for _, w := range out {
		if _, err := io.WriteString(w, page); err != nil {
			return "", fmt.Errorf("template: write %s: %w", name, err)
		}
	}
	return page, nil
}

func (e *Engine) lookup(name string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.parsed[name]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.parsed[name]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("template: parse %s: %w", name, err)
	}
	e.parsed[name] = tmpl
	return tmpl, nil
}

// toContext accepts nil, a map or a pongo2.Context.
func toContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return v, nil
	case map[string]any:
		return pongo2.Context(v), nil
	default:
		return nil, fmt.Errorf("template: page data must be a map, got %T", data)
	}
}

// registerFilters adds the filters form markup relies on. pongo2 filters
// are process-wide.
func registerFilters() {
	if !pongo2.FilterExists("trim") {
		_ = pongo2.RegisterFilter("trim", trimFilter)
	}
}

// trimFilter strips the trailing newline YAML folded descriptions carry.
func trimFilter(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}
