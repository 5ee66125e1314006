package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wildcard/caro/internal/model"
	"github.com/wildcard/caro/internal/platform"
	"github.com/wildcard/caro/internal/validator"
)

func appendCorrection(t *testing.T, s *Store, text, generated, corrected string) {
	t.Helper()
	req, err := model.NewCommandRequest("r-"+text, text, model.ShellBash, model.SafetyModerate, platform.Current())
	require.NoError(t, err)
	_, err = s.Append(context.Background(), *req,
		model.GeneratedCommand{Command: generated, Backend: model.EngineRules, Confidence: 0.9},
		model.ValidationResult{Risk: model.RiskSafe}, nil, corrected)
	require.NoError(t, err)
}

func TestMinerStagesCandidateFromCorrection(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "history.db"), NewFileCredentialStore(filepath.Join(dir, "k")), validator.DefaultRules())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	appendCorrection(t, s, "list files by size", "ls -l", "ls -lhS")

	m := NewMiner(s)
	n, err := m.ScanOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	candidates, err := m.Candidates(context.Background(), "pending")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "ls -lhS", candidates[0].CorrectedCommand)
}

func TestMinerIgnoresEntriesWithNoCorrection(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "history.db"), NewFileCredentialStore(filepath.Join(dir, "k")), validator.DefaultRules())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	appendCorrection(t, s, "list files", "ls -l", "")

	m := NewMiner(s)
	_, err = m.ScanOnce(context.Background())
	require.NoError(t, err)

	candidates, err := m.Candidates(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, candidates)
}

func TestMinerConfirmReturnsLearnedPatternAndMarksConfirmed(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "history.db"), NewFileCredentialStore(filepath.Join(dir, "k")), validator.DefaultRules())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	appendCorrection(t, s, "list files by size", "ls -l", "ls -lhS")
	m := NewMiner(s)
	_, err = m.ScanOnce(context.Background())
	require.NoError(t, err)

	candidates, err := m.Candidates(context.Background(), "pending")
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	pattern, err := m.Confirm(context.Background(), candidates[0])
	require.NoError(t, err)
	require.Equal(t, "ls -lhS", pattern.Template)

	confirmed, err := m.Candidates(context.Background(), "confirmed")
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
}

func TestMinerOnNilStoreIsInert(t *testing.T) {
	var m *Miner
	n, err := m.ScanOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)

	m2 := NewMiner(nil)
	n, err = m2.ScanOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}
