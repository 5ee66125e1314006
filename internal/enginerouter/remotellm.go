package enginerouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/wildcard/caro/internal/logging"
	"github.com/wildcard/caro/internal/model"
)

const (
	remoteInitialBackoff  = 250 * time.Millisecond
	remoteBackoffFactor   = 2
	remoteMaxAttempts     = 3
	remoteMaxTotalBudget  = 5 * time.Second
	unavailableThreshold  = 3
	unavailableCoolDown   = 30 * time.Second
)

// RemoteLLMEngine talks to a configured remote backend — either Google's
// Gemini API (via google.golang.org/genai) or any OpenAI/Ollama-compatible
// HTTP(S) endpoint — to translate a prompt into a shell command.
type RemoteLLMEngine struct {
	genaiClient *genai.Client
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	promptBuild func(req *model.CommandRequest) string

	mu              sync.Mutex
	consecutiveFail int
	coolUntil       time.Time
}

// NewRemoteLLMEngine constructs a RemoteLLMEngine. When genaiClient is
// non-nil, generation goes through the Gemini SDK; otherwise it uses
// httpClient against baseURL as an OpenAI/Ollama-compatible chat endpoint.
func NewRemoteLLMEngine(genaiClient *genai.Client, httpClient *http.Client, baseURL, apiKey, modelName string, promptBuild func(*model.CommandRequest) string) *RemoteLLMEngine {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteLLMEngine{
		genaiClient: genaiClient,
		httpClient:  httpClient,
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       modelName,
		promptBuild: promptBuild,
	}
}

// NewGeminiRemoteLLMEngine constructs the Gemini-backed variant.
func NewGeminiRemoteLLMEngine(ctx context.Context, apiKey, modelName string, promptBuild func(*model.CommandRequest) string) (*RemoteLLMEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return NewRemoteLLMEngine(client, nil, "", apiKey, modelName, promptBuild), nil
}

func (e *RemoteLLMEngine) ID() model.EngineID { return model.EngineRemoteLLM }
func (e *RemoteLLMEngine) Priority() uint8    { return 3 }

func (e *RemoteLLMEngine) CanHandle(req *model.CommandRequest) bool {
	e.mu.Lock()
	cooling := e.coolUntil.After(time.Now())
	e.mu.Unlock()
	return !cooling
}

func (e *RemoteLLMEngine) TryGenerate(ctx context.Context, req *model.CommandRequest) (model.GeneratedCommand, error) {
	log := logging.Get(logging.CategoryRouter)
	prompt := e.promptBuild(req)

	start := time.Now()
	raw, err := e.callWithRetry(ctx, prompt)
	latency := time.Since(start)

	if err != nil {
		e.recordFailure()
		return model.GeneratedCommand{}, &EngineFailure{Kind: FailureUnavailable, Engine: e.ID(), Reason: err.Error()}
	}
	e.recordSuccess()

	reply, perr := parseLLMReply(raw)
	if perr != nil {
		log.Warn("remote-llm reply failed to parse: %v", perr)
		return model.GeneratedCommand{}, &EngineFailure{Kind: FailureMalformed, Engine: e.ID(), Reason: perr.Error()}
	}

	confidence := reply.Confidence
	if confidence <= 0 {
		confidence = 0.7
	}
	if confidence > 1 {
		confidence = 1
	}

	return model.GeneratedCommand{
		Command:     reply.Cmd,
		Explanation: reply.Explanation,
		Backend:     e.ID(),
		Confidence:  confidence,
		Latency:     latency,
	}, nil
}

func (e *RemoteLLMEngine) callWithRetry(ctx context.Context, prompt string) (string, error) {
	backoff := remoteInitialBackoff
	deadline := time.Now().Add(remoteMaxTotalBudget)
	var lastErr error

	for attempt := 1; attempt <= remoteMaxAttempts; attempt++ {
		if time.Now().After(deadline) {
			break
		}

		raw, err := e.call(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if attempt < remoteMaxAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= remoteBackoffFactor
		}
	}
	return "", lastErr
}

func (e *RemoteLLMEngine) call(ctx context.Context, prompt string) (string, error) {
	if e.genaiClient != nil {
		return e.callGemini(ctx, prompt)
	}
	return e.callHTTP(ctx, prompt)
}

func (e *RemoteLLMEngine) callGemini(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	result, err := e.genaiClient.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}
	return result.Text(), nil
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// callHTTP speaks an OpenAI/Ollama-compatible chat-completions API over
// stdlib net/http; no example repo in the pack carries an HTTP client
// library beyond stdlib for plain JSON REST calls.
func (e *RemoteLLMEngine) callHTTP(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:    e.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("remote backend returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(data, &parsed); err != nil || len(parsed.Choices) == 0 {
		return "", fmt.Errorf("unexpected response shape")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (e *RemoteLLMEngine) recordFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.consecutiveFail++
	if e.consecutiveFail >= unavailableThreshold {
		e.coolUntil = time.Now().Add(unavailableCoolDown)
	}
}

func (e *RemoteLLMEngine) recordSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.consecutiveFail = 0
	e.coolUntil = time.Time{}
}
