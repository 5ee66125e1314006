package enginerouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildcard/caro/internal/model"
	"github.com/wildcard/caro/internal/platform"
)

func testPromptBuild(req *model.CommandRequest) string { return req.OriginalText }

func TestRemoteLLMEngineHTTPParsesWholeReplyJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"cmd\":\"ls -la\",\"explanation\":\"list files\",\"confidence\":0.9}"}}]}`))
	}))
	defer srv.Close()

	e := NewRemoteLLMEngine(nil, srv.Client(), srv.URL, "key", "gpt-test", testPromptBuild)
	req := mustCommandRequest(t, "show me all files")

	gen, err := e.TryGenerate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ls -la", gen.Command)
	assert.Equal(t, model.EngineRemoteLLM, gen.Backend)
}

func TestRemoteLLMEngineMarksUnavailableAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewRemoteLLMEngine(nil, srv.Client(), srv.URL, "key", "gpt-test", testPromptBuild)
	req := mustCommandRequest(t, "do something")

	for i := 0; i < unavailableThreshold; i++ {
		_, err := e.TryGenerate(context.Background(), req)
		require.Error(t, err)
	}

	assert.False(t, e.CanHandle(req), "engine should report unavailable once cooling down")
}

func TestRemoteLLMEngineMalformedReplyIsReportedAsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"not json at all"}}]}`))
	}))
	defer srv.Close()

	e := NewRemoteLLMEngine(nil, srv.Client(), srv.URL, "key", "gpt-test", testPromptBuild)
	req := mustCommandRequest(t, "do something")

	_, err := e.TryGenerate(context.Background(), req)
	require.Error(t, err)

	var ef *EngineFailure
	require.ErrorAs(t, err, &ef)
	assert.Equal(t, FailureMalformed, ef.Kind)
}

func mustCommandRequest(t *testing.T, text string) *model.CommandRequest {
	t.Helper()
	req, err := model.NewCommandRequest("test-req", text, model.ShellBash, model.SafetyModerate, platform.Current())
	require.NoError(t, err)
	return req
}

func TestRemoteLLMEngineRespectsContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	e := NewRemoteLLMEngine(nil, srv.Client(), srv.URL, "key", "gpt-test", testPromptBuild)
	req := mustCommandRequest(t, "do something")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := e.TryGenerate(ctx, req)
	require.Error(t, err)
}
