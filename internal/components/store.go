// Package components persists saved SQL queries and runs them.
package components

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appErrors "github.com/skzy2018/ai-kakeibo-app/internal/errors"
	"github.com/skzy2018/ai-kakeibo-app/internal/validation"
)

const fileExt = ".json"

// Component is a saved, parameterized query. Placeholders in SQL look like
// $name and are filled from run-time variables. Keys other than the typed
// fields are kept in Extra and written back unchanged.
type Component struct {
	Name                 string                     `json:"name" validate:"required,safename"`
	SQL                  string                     `json:"sql"`
	Description          string                     `json:"description,omitempty"`
	EnvironmentVariables map[string]json.RawMessage `json:"environment_variables,omitempty"`
	D3Code               string                     `json:"d3code,omitempty"`
	Extra                map[string]json.RawMessage `json:"-"`
}

var componentFields = []string{"name", "sql", "description", "environment_variables", "d3code"}

// componentJSON is Component without the custom (un)marshalers.
type componentJSON Component

func (c *Component) UnmarshalJSON(data []byte) error {
	var typed componentJSON
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range componentFields {
		delete(all, k)
	}
	if len(all) > 0 {
		typed.Extra = all
	}
	*c = Component(typed)
	return nil
}

func (c Component) MarshalJSON() ([]byte, error) {
	typed, err := encodeJSON(componentJSON(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return typed, nil
	}
	merged := make(map[string]json.RawMessage, len(c.Extra)+len(componentFields))
	for k, v := range c.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(typed, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return encodeJSON(merged)
}

// encodeJSON is json.Marshal without HTML escaping.
func encodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Summary is the listing view of a component.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Store keeps one JSON document per component under Dir.
type Store struct {
	Dir string
	Log zerolog.Logger
}

func NewStore(dir string, log zerolog.Logger) *Store {
	return &Store{Dir: dir, Log: log}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.Dir, name+fileExt)
}

func checkName(name string) error {
	if !validation.IsSafeName(name) {
		return appErrors.NewValidationError(fmt.Sprintf("invalid component name %q: must match %s", name, validation.SafeNamePattern))
	}
	return nil
}

// Save writes c in full, replacing any component with the same name.
func (s *Store) Save(c Component) error {
	if err := validation.Validator().Struct(c); err != nil {
		return appErrors.ParseValidationErrors(err)
	}
	c.SQL = strings.ReplaceAll(c.SQL, "\t", "  ")
	c.D3Code = strings.ReplaceAll(c.D3Code, "\t", "  ")

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return appErrors.ErrInternal.WithError(fmt.Errorf("encode component %s: %w", c.Name, err))
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return appErrors.ErrInternal.WithError(fmt.Errorf("create component dir: %w", err))
	}
	tmp := filepath.Join(s.Dir, "."+c.Name+"-"+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return appErrors.ErrInternal.WithError(fmt.Errorf("write component %s: %w", c.Name, err))
	}
	if err := os.Rename(tmp, s.path(c.Name)); err != nil {
		_ = os.Remove(tmp)
		return appErrors.ErrInternal.WithError(fmt.Errorf("replace component %s: %w", c.Name, err))
	}
	s.Log.Debug().Str("component", c.Name).Msg("component saved")
	return nil
}

// Get loads a component by exact name.
func (s *Store) Get(name string) (*Component, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, appErrors.NewNotFoundError("sql component", name)
	}
	if err != nil {
		return nil, appErrors.ErrInternal.WithError(fmt.Errorf("read component %s: %w", name, err))
	}
	var c Component
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, appErrors.ErrInternal.WithError(fmt.Errorf("decode component %s: %w", name, err))
	}
	if c.Name == "" {
		c.Name = name
	}
	return &c, nil
}

// List returns name and description of every stored component, by name.
// Unreadable files are logged and skipped.
func (s *Store) List() ([]Summary, error) {
	out := []Summary{}
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, appErrors.ErrInternal.WithError(fmt.Errorf("read component dir: %w", err))
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), fileExt)
		raw, err := os.ReadFile(filepath.Join(s.Dir, e.Name()))
		if err != nil {
			s.Log.Warn().Err(err).Str("file", e.Name()).Msg("skipping unreadable component")
			continue
		}
		var sum Summary
		if err := json.Unmarshal(raw, &sum); err != nil {
			s.Log.Warn().Err(err).Str("file", e.Name()).Msg("skipping corrupt component")
			continue
		}
		if sum.Name == "" {
			sum.Name = stem
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return appErrors.NewNotFoundError("sql component", name)
	}
	if err != nil {
		return appErrors.ErrInternal.WithError(fmt.Errorf("delete component %s: %w", name, err))
	}
	s.Log.Debug().Str("component", name).Msg("component deleted")
	return nil
}
