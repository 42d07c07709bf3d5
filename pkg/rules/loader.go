package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stillcare/carefront/pkg/disclosure"
)

// ErrUnknownForm is returned when a store has no table for a form id.
var ErrUnknownForm = errors.New("rules: unknown form")

// Store holds the rule tables loaded from one or more documents, keyed by
// form id.
type Store struct {
	tables  map[string]disclosure.Table
	sources map[string]string
}

type documentFile struct {
	Forms map[string]tableFile `json:"forms" yaml:"forms"`
}

type tableFile struct {
	Marker string            `json:"marker" yaml:"marker"`
	Rules  []disclosure.Rule `json:"rules" yaml:"rules"`
}

// LoadFS walks fsys and parses every .json, .yaml and .yml file as a rule
// document. A nil fsys yields an empty store.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{
		tables:  make(map[string]disclosure.Table),
		sources: make(map[string]string),
	}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isRuleFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("rules: read %s: %w", path, err)
		}
		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}
		return store.add(doc, path)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) add(doc documentFile, source string) error {
	for rawID, raw := range doc.Forms {
		id := strings.TrimSpace(rawID)
		if id == "" {
			return fmt.Errorf("rules: file %s defines an empty form id", source)
		}
		if prev, exists := s.sources[id]; exists {
			return fmt.Errorf("rules: duplicate form %q (files %s and %s)", id, prev, source)
		}
		if len(raw.Rules) == 0 {
			return fmt.Errorf("rules: form %q in %s has no rules", id, source)
		}

		table := disclosure.Table{Form: id, Marker: raw.Marker, Rules: raw.Rules}
		// Compile once here so malformed documents fail at load time rather
		// than when the first form is opened.
		if _, err := disclosure.New(table); err != nil {
			return fmt.Errorf("rules: %s: %w", source, err)
		}
		s.tables[id] = table
		s.sources[id] = source
	}
	return nil
}

// Table returns the rule table for form.
func (s *Store) Table(form string) (disclosure.Table, bool) {
	if s == nil {
		return disclosure.Table{}, false
	}
	table, ok := s.tables[form]
	return table, ok
}

// Discloser builds a discloser for form.
func (s *Store) Discloser(form string, opts ...disclosure.Option) (*disclosure.Discloser, error) {
	table, ok := s.Table(form)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownForm, form)
	}
	return disclosure.New(table, opts...)
}

// Forms lists the form ids in the store, sorted.
func (s *Store) Forms() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.tables))
	for id := range s.tables {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the store holds any tables.
func (s *Store) Empty() bool {
	return s == nil || len(s.tables) == 0
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if strings.TrimSpace(string(data)) == "" {
		return documentFile{}, fmt.Errorf("rules: file %s is empty", source)
	}

	if strings.EqualFold(filepath.Ext(source), ".json") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return documentFile{}, fmt.Errorf("rules: parse %s: %w", source, err)
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("rules: parse %s: %w", source, err)
	}
	return doc, nil
}

func isRuleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
