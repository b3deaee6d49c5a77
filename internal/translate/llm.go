package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"transmux/internal/services"
)

const (
	defaultLLMTimeout     = 60 * time.Second
	defaultLLMRetries     = 3
	defaultLLMRetryDelay  = 1 * time.Second
	defaultLLMRetryMaxCap = 10 * time.Second
)

// LLMConfig captures the runtime settings for the creative engine.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// LLMEngine wraps a chat-completions API for creative segments: idiom, humor,
// register shifts that literal machine translation flattens.
type LLMEngine struct {
	cfg        LLMConfig
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// LLMOption customizes the engine.
type LLMOption func(*LLMEngine)

// WithLLMHTTPClient overrides the default HTTP client.
func WithLLMHTTPClient(client *http.Client) LLMOption {
	return func(e *LLMEngine) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// WithLLMRetryMaxAttempts overrides the default retry count.
func WithLLMRetryMaxAttempts(attempts int) LLMOption {
	return func(e *LLMEngine) {
		e.retryMaxAttempts = attempts
	}
}

// WithLLMSleeper overrides how retry sleeps are performed (useful for tests).
func WithLLMSleeper(sleeper func(time.Duration)) LLMOption {
	return func(e *LLMEngine) {
		e.sleeper = sleeper
	}
}

// NewLLMEngine constructs the creative engine from configuration.
func NewLLMEngine(cfg LLMConfig, opts ...LLMOption) *LLMEngine {
	timeout := defaultLLMTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	engine := &LLMEngine{
		cfg: LLMConfig{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultLLMRetries,
		retryBaseDelay:   defaultLLMRetryDelay,
		retryMaxDelay:    defaultLLMRetryMaxCap,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Name identifies the engine in routing decisions and logs.
func (e *LLMEngine) Name() string { return "llm" }

const translateSystemPrompt = `You are a subtitle translator. Translate the user's text from %s to %s.
Keep the register, idiom, and humor of the original. Respond with the translation only, no commentary.`

// Translate sends one segment through the chat-completions API, retrying
// transient failures with exponential backoff.
func (e *LLMEngine) Translate(ctx context.Context, req Request) (Result, error) {
	var empty Result
	if strings.TrimSpace(req.Text) == "" {
		return Result{Text: "", Engine: e.Name()}, nil
	}
	if e.cfg.APIKey == "" || e.cfg.BaseURL == "" {
		return empty, services.Wrap(services.ErrEngineUnavailable, "translate", "llm", "engine not configured", errors.New("api key and base url required"))
	}

	system := fmt.Sprintf(translateSystemPrompt, req.SourceLang, req.TargetLang)
	user := req.Text
	if len(req.Hints) > 0 {
		var hints strings.Builder
		hints.WriteString("Use these exact term translations:\n")
		for _, hint := range req.Hints {
			fmt.Fprintf(&hints, "- %q -> %q\n", hint.Source, hint.Translation)
		}
		system = system + "\n" + hints.String()
	}

	attempts := e.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	delay := e.retryBaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := e.completeOnce(ctx, system, user)
		if err == nil {
			return Result{Text: text, Engine: e.Name()}, nil
		}
		lastErr = err
		if !services.IsRetryable(err) || attempt == attempts {
			return empty, err
		}
		if err := e.sleep(ctx, delay); err != nil {
			return empty, err
		}
		if next := delay * 2; next <= e.retryMaxDelay {
			delay = next
		}
	}
	return empty, lastErr
}

type llmChatRequest struct {
	Model       string           `json:"model"`
	Messages    []llmChatMessage `json:"messages"`
	Temperature float64          `json:"temperature"`
}

type llmChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type llmChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (e *LLMEngine) completeOnce(ctx context.Context, system, user string) (string, error) {
	encoded, err := json.Marshal(llmChatRequest{
		Model: e.cfg.Model,
		Messages: []llmChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("llm translate: encode body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("llm translate: new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyTransportError("llm", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "translate", "llm", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus("llm", resp.StatusCode, body)
	}

	var payload llmChatResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", services.Wrap(services.ErrTransient, "translate", "llm", "decode response", err)
	}
	if payload.Error != nil {
		return "", services.Wrap(services.ErrTransient, "translate", "llm", "api error", errors.New(payload.Error.Message))
	}
	if len(payload.Choices) == 0 {
		return "", services.Wrap(services.ErrTransient, "translate", "llm", "empty choices", nil)
	}
	content := strings.TrimSpace(payload.Choices[0].Message.Content)
	return content, nil
}

func (e *LLMEngine) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if e.sleeper != nil {
		e.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
