package prompt

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wildcard/caro/internal/logging"
)

// Store holds the loaded, cycle-checked, inheritance-resolved set of
// templates, keyed by "flavor/name". Custom templates from a user
// override directory are loaded after the built-in set and replace a
// built-in entry of the same key.
type Store struct {
	mu        sync.RWMutex
	resolved  map[string]Template
	rawByName map[string]Template // pre-merge, for cycle detection across reloads
}

func key(flavor, name string) string { return flavor + "/" + name }

// NewStore constructs an empty Store. Call LoadDir to populate it, one or
// more times (built-in directory, then a user override directory).
func NewStore() *Store {
	return &Store{
		resolved:  make(map[string]Template),
		rawByName: make(map[string]Template),
	}
}

// LoadDir parses every *.yaml/*.yml file in dir (non-recursive) as a
// Template, resolves parent/child inheritance, and merges the result into
// the store. Later calls to LoadDir override same-key entries from
// earlier calls, which is how a user override directory takes precedence
// over the built-in set.
func (s *Store) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read template directory %s: %w", dir, err)
	}

	raw := make(map[string]Template)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}
		if err := parseInto(raw, path, data); err != nil {
			return err
		}
	}
	return s.merge(raw, dir)
}

// LoadFS is LoadDir's fs.FS-backed counterpart, used to load the built-in
// template set bundled into the binary via go:embed before any on-disk
// user override directory is layered on top with LoadDir.
func (s *Store) LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read embedded template directory %s: %w", dir, err)
	}

	raw := make(map[string]Template)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := dir + "/" + e.Name()
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read embedded template %s: %w", path, err)
		}
		if err := parseInto(raw, path, data); err != nil {
			return err
		}
	}
	return s.merge(raw, dir)
}

func parseInto(raw map[string]Template, path string, data []byte) error {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return fmt.Errorf("parse template %s: %w", path, err)
	}
	tmpl.Source = path
	if tmpl.Name == "" {
		return fmt.Errorf("template %s: missing name", path)
	}
	if err := validatePlaceholdersKnown(tmpl.Body, path); err != nil {
		return err
	}
	raw[rawKey(tmpl.Flavor, tmpl.Name)] = tmpl
	return nil
}

// rawKey scopes a template's identity by (flavor, name): two different
// flavors are free to each declare a "base"/"detailed" pair without
// colliding, since inheritance and lookup are always flavor-local.
func rawKey(flavor, name string) string { return flavor + "\x00" + name }

func (s *Store) merge(raw map[string]Template, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, tmpl := range raw {
		s.rawByName[k] = tmpl
	}

	for _, tmpl := range raw {
		resolved, err := resolveChain(tmpl.Flavor, tmpl.Name, s.rawByName, map[string]bool{})
		if err != nil {
			return err
		}
		s.resolved[key(resolved.Flavor, tmpl.Name)] = resolved
	}

	logging.Get(logging.CategoryPrompt).Info("loaded %d templates from %s", len(raw), source)
	return nil
}

// resolveChain walks at most one parent link and rejects cycles. A parent
// naming its own parent is an error: composition depth is capped at one
// level by design. Parent lookup is flavor-local: a template's parent
// must share its flavor.
func resolveChain(flavor, name string, raw map[string]Template, seen map[string]bool) (Template, error) {
	tmpl, ok := raw[rawKey(flavor, name)]
	if !ok {
		return Template{}, fmt.Errorf("template %q not found for flavor %q", name, flavor)
	}
	if tmpl.Parent == "" {
		return tmpl, nil
	}
	if seen[name] {
		return Template{}, fmt.Errorf("cycle detected in template inheritance at %q", name)
	}
	seen[name] = true

	parent, ok := raw[rawKey(flavor, tmpl.Parent)]
	if !ok {
		return Template{}, fmt.Errorf("template %q references unknown parent %q", name, tmpl.Parent)
	}
	if parent.Parent != "" {
		return Template{}, fmt.Errorf("template %q's parent %q itself declares a parent; composition is single-level only", name, tmpl.Parent)
	}

	return merge(parent, tmpl), nil
}

// Get returns the resolved template for (flavor, name), falling back to
// the "default" flavor if a flavor-specific override is absent.
func (s *Store) Get(flavor, name string) (Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.resolved[key(flavor, name)]; ok {
		return t, true
	}
	t, ok := s.resolved[key("default", name)]
	return t, ok
}

// Detailed returns the "detailed" variant for a flavor, used by the
// orchestrator's escalation step on a retry.
func (s *Store) Detailed(flavor string) (Template, bool) {
	return s.Get(flavor, "detailed")
}

// RenderFor resolves and renders the named template for the request's
// flavor in one call.
func (s *Store) RenderFor(flavor, name string, v Variables) (string, error) {
	tmpl, ok := s.Get(flavor, name)
	if !ok {
		return "", fmt.Errorf("no template %q for flavor %q (or default)", name, flavor)
	}
	return Render(tmpl.Body, v), nil
}
