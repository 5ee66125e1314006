package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitializeDisabledIsNoop(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, false, "debug", false))
	defer CloseAll()

	Get(CategoryRouter).Info("hello")

	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	if err == nil {
		require.Empty(t, entries)
	}
}

func TestInitializeWritesCategoryFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, true, "debug", false))
	defer CloseAll()

	Get(CategoryValidator).Info("classified %s as safe", "ls -la")

	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Name(), "validator")
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, true, "warn", false))
	defer CloseAll()

	l := Get(CategoryExecutor)
	l.Debug("should be dropped")
	l.Info("should also be dropped")
	l.Warn("should be kept")

	data, err := os.ReadFile(filepath.Join(dir, "logs", fileNameFor(t, dir, CategoryExecutor)))
	require.NoError(t, err)
	require.NotContains(t, string(data), "dropped")
	require.Contains(t, string(data), "kept")
}

func fileNameFor(t *testing.T, dir string, cat Category) string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".log" {
			return e.Name()
		}
	}
	t.Fatalf("no log file found for category %s", cat)
	return ""
}
