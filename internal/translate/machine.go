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

const defaultMachineTimeout = 15 * time.Second

// MachineConfig captures the runtime settings for the fast machine engine.
type MachineConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// MachineEngine wraps the fast machine-translation HTTP API. It is the
// primary engine for literal segments and the fallback target when the
// creative engine underperforms.
type MachineEngine struct {
	cfg        MachineConfig
	httpClient *http.Client
}

// MachineOption customizes the engine.
type MachineOption func(*MachineEngine)

// WithMachineHTTPClient overrides the default HTTP client.
func WithMachineHTTPClient(client *http.Client) MachineOption {
	return func(e *MachineEngine) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// NewMachineEngine constructs the fast engine from configuration.
func NewMachineEngine(cfg MachineConfig, opts ...MachineOption) *MachineEngine {
	timeout := defaultMachineTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	engine := &MachineEngine{
		cfg: MachineConfig{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Name identifies the engine in routing decisions and logs.
func (e *MachineEngine) Name() string { return "machine" }

type machineRequest struct {
	Text   string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	Model  string `json:"model,omitempty"`
}

type machineResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

// Translate sends one segment to the machine-translation service.
func (e *MachineEngine) Translate(ctx context.Context, req Request) (Result, error) {
	var empty Result
	if strings.TrimSpace(req.Text) == "" {
		return Result{Text: "", Engine: e.Name()}, nil
	}
	if e.cfg.BaseURL == "" {
		return empty, services.Wrap(services.ErrEngineUnavailable, "translate", "machine", "engine not configured", errors.New("base url required"))
	}

	encoded, err := json.Marshal(machineRequest{
		Text:   req.Text,
		Source: req.SourceLang,
		Target: req.TargetLang,
		Format: "text",
		Model:  e.cfg.Model,
	})
	if err != nil {
		return empty, fmt.Errorf("machine translate: encode body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/translate", bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("machine translate: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return empty, classifyTransportError("machine", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "translate", "machine", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return empty, classifyStatus("machine", resp.StatusCode, body)
	}

	var payload machineResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return empty, services.Wrap(services.ErrTransient, "translate", "machine", "decode response", err)
	}
	if payload.Error != "" {
		return empty, services.Wrap(services.ErrTransient, "translate", "machine", "api error", errors.New(payload.Error))
	}
	return Result{Text: payload.TranslatedText, Engine: e.Name()}, nil
}

// classifyStatus maps HTTP status codes onto the error taxonomy. Auth and
// addressing failures are authoritative unavailability; throttling and server
// errors are transient.
func classifyStatus(engine string, status int, body []byte) error {
	detail := fmt.Errorf("http %d: %s", status, strings.TrimSpace(string(body)))
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusNotFound:
		return services.Wrap(services.ErrEngineUnavailable, "translate", engine, "engine rejected request", detail)
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return services.Wrap(services.ErrTransient, "translate", engine, "engine throttled request", detail)
	case status >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "translate", engine, "engine server error", detail)
	default:
		return services.Wrap(services.ErrValidation, "translate", engine, "engine rejected payload", detail)
	}
}

func classifyTransportError(engine string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "translate", engine, "request timed out", err)
	}
	return services.Wrap(services.ErrTransient, "translate", engine, "http error", err)
}
