// Package codegen talks to the external code-generation service.
//
// The service is an OpenAI-style chat/completions endpoint. Two operations
// exist: synthesize a complete transformation script from an input sample
// and a target line contract, and directly transform a small record sample
// onto a target schema (no code). Failures are typed network/service/parse
// so callers can retry with backoff where it makes sense.
package codegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config configures the service client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// RequestsPerSecond throttles outbound calls; <= 0 means unlimited.
	RequestsPerSecond float64

	// ServiceRetries is how many times a retryable failure (network, 5xx,
	// 429) is retried with exponential backoff before surfacing.
	ServiceRetries int
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		Model:          "gpt-4o-mini",
		Timeout:        60 * time.Second,
		ServiceRetries: 2,
	}
}

// Client is a code-generation service client. Safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

// New creates a client. logger may be nil.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// ScriptRequest asks for a complete transformation script.
type ScriptRequest struct {
	// SampleText is a bounded sample of the raw input.
	SampleText string

	// DataTypeHint names the suspected data type (e.g. "gnss", "imu").
	DataTypeHint string

	// TargetContract describes the required output line format.
	TargetContract string

	// PriorErrorContext carries the structured error from the previous
	// attempt, empty on the first try.
	PriorErrorContext string
}

// GenerateScript requests a transformation script and returns its text.
func (c *Client) GenerateScript(ctx context.Context, req ScriptRequest) (string, error) {
	content, err := c.complete(ctx, "generate_script",
		scriptSystemPrompt(req.DataTypeHint),
		scriptUserPrompt(req))
	if err != nil {
		return "", err
	}
	script := stripCodeFence(content)
	if strings.TrimSpace(script) == "" {
		return "", &ServiceError{Kind: KindParse, Op: "generate_script", Err: fmt.Errorf("empty script in response")}
	}
	return script, nil
}

// TransformRequest asks for a direct sample transform (no code).
type TransformRequest struct {
	// SampleJSONL is the input records, one JSON object per line.
	SampleJSONL string

	// TargetSchema is the target schema document text.
	TargetSchema string

	// SchemaKind names the target array key (gnss_data / imu_data).
	SchemaKind string

	// PriorErrorContext carries violations from the previous attempt.
	PriorErrorContext string
}

// TransformSample requests transformed example output for a record sample.
// The returned bytes are the candidate document (a JSON object holding the
// target array).
func (c *Client) TransformSample(ctx context.Context, req TransformRequest) ([]byte, error) {
	content, err := c.complete(ctx, "transform_sample",
		transformSystemPrompt(req.SchemaKind),
		transformUserPrompt(req))
	if err != nil {
		return nil, err
	}
	doc := []byte(stripCodeFence(content))
	if !json.Valid(doc) {
		return nil, &ServiceError{Kind: KindParse, Op: "transform_sample", Err: fmt.Errorf("response is not valid JSON")}
	}
	return doc, nil
}

// complete performs one chat completion with retry on retryable failures.
func (c *Client) complete(ctx context.Context, op, system, user string) (string, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.ServiceRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			c.log.Warn("codegen retrying after failure",
				zap.String("req_id", reqID),
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", &ServiceError{Kind: KindNetwork, Op: op, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		content, err := c.completeOnce(ctx, op, reqID, system, user)
		if err == nil {
			c.log.Info("codegen request ok",
				zap.String("req_id", reqID),
				zap.String("op", op),
				zap.Int("content_length", len(content)),
				zap.Duration("elapsed", time.Since(start)))
			return content, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}
	return "", lastErr
}

func (c *Client) completeOnce(ctx context.Context, op, reqID, system, user string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &ServiceError{Kind: KindNetwork, Op: op, Err: err}
		}
	}

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", &ServiceError{Kind: KindParse, Op: op, Err: fmt.Errorf("marshal request: %w", err)}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", &ServiceError{Kind: KindNetwork, Op: op, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	c.log.Debug("codegen request",
		zap.String("req_id", reqID),
		zap.String("op", op),
		zap.String("model", c.cfg.Model),
		zap.Int("content_length", len(b)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &ServiceError{Kind: KindNetwork, Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ServiceError{Kind: KindNetwork, Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ServiceError{
			Kind:       KindService,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("non-2xx status: %s", strings.TrimSpace(string(raw))),
		}
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", &ServiceError{Kind: KindParse, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(cc.Choices) == 0 {
		return "", &ServiceError{Kind: KindParse, Op: op, Err: fmt.Errorf("no choices in response")}
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

// stripCodeFence removes a single surrounding markdown code fence, with or
// without a language tag.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the language tag line.
		if lang := strings.TrimSpace(s[:nl]); lang == "" || !strings.ContainsAny(lang, " \t") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
