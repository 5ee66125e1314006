package enginerouter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildcard/caro/internal/modelcache"
)

type stubGenerator struct {
	reply string
	err   error
}

func (s stubGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestCache(t *testing.T, payload []byte) (*modelcache.Cache, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	sum := sha256.Sum256(payload)
	cache, err := modelcache.New(t.TempDir(), 0, []modelcache.RegistryEntry{
		{ModelID: "tiny", Variant: "q4", URL: srv.URL, SHA256: hex.EncodeToString(sum[:]), Size: int64(len(payload))},
	})
	require.NoError(t, err)
	return cache, srv.Close
}

func TestLocalLLMEngineGeneratesFromResolvedArtifact(t *testing.T) {
	cache, closeSrv := newTestCache(t, []byte("weights"))
	defer closeSrv()

	gen := stubGenerator{reply: `{"cmd":"du -sh .","explanation":"disk usage","confidence":0.8}`}
	e := NewLocalLLMEngine(cache, gen, "tiny", "q4", testPromptBuild)

	req := mustCommandRequest(t, "how much disk am I using")
	out, err := e.TryGenerate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "du -sh .", out.Command)
}

func TestLocalLLMEngineReportsUnavailableWhenArtifactMissing(t *testing.T) {
	cache, err := modelcache.New(t.TempDir(), 0, nil)
	require.NoError(t, err)

	e := NewLocalLLMEngine(cache, stubGenerator{}, "missing", "q4", testPromptBuild)
	req := mustCommandRequest(t, "anything")

	_, genErr := e.TryGenerate(context.Background(), req)
	require.Error(t, genErr)

	var ef *EngineFailure
	require.ErrorAs(t, genErr, &ef)
	assert.Equal(t, FailureUnavailable, ef.Kind)
}

func TestLocalLLMEngineReportsInferenceError(t *testing.T) {
	cache, closeSrv := newTestCache(t, []byte("weights"))
	defer closeSrv()

	e := NewLocalLLMEngine(cache, stubGenerator{err: fmt.Errorf("backend crashed")}, "tiny", "q4", testPromptBuild)
	req := mustCommandRequest(t, "anything")

	_, err := e.TryGenerate(context.Background(), req)
	require.Error(t, err)

	var ef *EngineFailure
	require.ErrorAs(t, err, &ef)
	assert.Equal(t, FailureInferenceError, ef.Kind)
}
