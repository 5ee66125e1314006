package prompt

import "embed"

//go:embed templates/*.yaml
var builtinTemplates embed.FS

// LoadBuiltins loads the binary-bundled template set. Call before any
// LoadDir of a user override directory, so user templates take precedence.
func (s *Store) LoadBuiltins() error {
	return s.LoadFS(builtinTemplates, "templates")
}
