package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, dir, filename, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644))
}

func TestLoadDirResolvesParentChildComposition(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "base.yaml", `
name: base
flavor: default
body: |
  You are generating a {{shell}} command on {{os}}.
  {{child}}
`)
	writeTemplate(t, dir, "generate.yaml", `
name: generate
flavor: default
parent: base
body: |
  Request: {{user_input}}
`)

	s := NewStore()
	require.NoError(t, s.LoadDir(dir))

	tmpl, ok := s.Get("default", "generate")
	require.True(t, ok)
	assert.Contains(t, tmpl.Body, "You are generating a")
	assert.Contains(t, tmpl.Body, "Request: {{user_input}}")
}

func TestLoadDirRejectsCycles(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "a.yaml", `
name: a
flavor: default
parent: b
body: "a body"
`)
	writeTemplate(t, dir, "b.yaml", `
name: b
flavor: default
parent: a
body: "b body"
`)

	s := NewStore()
	err := s.LoadDir(dir)
	require.Error(t, err)
}

func TestLoadDirRejectsMultiLevelComposition(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "root.yaml", `
name: root
flavor: default
body: "root {{child}}"
`)
	writeTemplate(t, dir, "mid.yaml", `
name: mid
flavor: default
parent: root
body: "mid {{child}}"
`)
	writeTemplate(t, dir, "leaf.yaml", `
name: leaf
flavor: default
parent: mid
body: "leaf body"
`)

	s := NewStore()
	err := s.LoadDir(dir)
	require.Error(t, err)
}

func TestLoadDirRejectsUnknownPlaceholder(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "bad.yaml", `
name: bad
flavor: default
body: "hello {{not_a_real_var}}"
`)

	s := NewStore()
	err := s.LoadDir(dir)
	require.Error(t, err)
}

func TestUserOverrideDirectoryReplacesBuiltin(t *testing.T) {
	builtinDir := t.TempDir()
	writeTemplate(t, builtinDir, "generate.yaml", `
name: generate
flavor: default
body: "built-in: {{user_input}}"
`)

	overrideDir := t.TempDir()
	writeTemplate(t, overrideDir, "generate.yaml", `
name: generate
flavor: default
body: "override: {{user_input}}"
`)

	s := NewStore()
	require.NoError(t, s.LoadDir(builtinDir))
	require.NoError(t, s.LoadDir(overrideDir))

	tmpl, ok := s.Get("default", "generate")
	require.True(t, ok)
	assert.Contains(t, tmpl.Body, "override:")
}

func TestRenderForSubstitutesAllVariables(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "generate.yaml", `
name: generate
flavor: default
body: |
  os={{os}} flavor={{unix_flavor}} shell={{shell}} tools={{tools}}
  input={{user_input}}
  clarifications={{clarifications}}
  feedback={{validator_feedback}}
`)

	s := NewStore()
	require.NoError(t, s.LoadDir(dir))

	out, err := s.RenderFor("default", "generate", Variables{
		OS: "linux", UnixFlavor: "gnu", Shell: "bash",
		Tools: []string{"ls", "grep"}, UserInput: "list files",
		Clarifications: []string{"which directory?"}, ValidatorFeedback: "none",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "os=linux")
	assert.Contains(t, out, "tools=ls, grep")
	assert.Contains(t, out, "input=list files")
}

func TestDetailedVariantFallsBackToDefaultFlavor(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "detailed.yaml", `
name: detailed
flavor: default
detailed: true
body: "escalated prompt: {{user_input}}"
`)

	s := NewStore()
	require.NoError(t, s.LoadDir(dir))

	tmpl, ok := s.Detailed("bsd")
	require.True(t, ok)
	assert.True(t, tmpl.Detailed)
}
