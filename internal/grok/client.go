// Package grok invokes the xAI chat completion API with structured output,
// retrying throttled and transient failures and validating every response.
package grok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"lead-orchestrator/internal/common/config"
	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/common/metrics"
	"lead-orchestrator/internal/common/validation"
)

const (
	DefaultBaseURL     = "https://api.x.ai/v1"
	DefaultModel       = "grok-4"
	DefaultTimeout     = time.Hour
	DefaultBackoffBase = time.Second

	APIKeyEnv = "XAI_API_KEY"
)

var tracer = otel.GetTracerProvider().Tracer("lead-orchestrator/grok")

// ChatAPI is the subset of the OpenAI-compatible client used for invocation.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Result is a decoded model response that can check its own invariants.
type Result interface {
	Validate() error
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// InvocationRecorder receives one call per finished Invoke.
type InvocationRecorder interface {
	RecordInvocation(ctx context.Context, shape, status string, duration time.Duration)
}

type Client struct {
	api         ChatAPI
	model       string
	timeout     time.Duration
	maxRetries  int
	backoffBase time.Duration
	limiter     *rate.Limiter
	sleep       Sleeper
	httpClient  *http.Client
	recorder    InvocationRecorder
	logger      logger.Logger
}

type Option func(*Client)

func WithChatAPI(api ChatAPI) Option {
	return func(c *Client) { c.api = api }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient builds a client from cfg. The API key is taken from cfg, falling
// back to XAI_API_KEY after loading any .env file; without one construction fails.
func WithRecorder(r InvocationRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

func NewClient(cfg config.GrokConfig, log logger.Logger, opts ...Option) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		config.LoadEnvFile()
		apiKey = os.Getenv(APIKeyEnv)
	}
	if apiKey == "" {
		return nil, apperrors.NewConfigurationError(APIKeyEnv + " environment variable not set")
	}

	c := &Client{
		model:       cfg.Model,
		timeout:     config.GetDuration(cfg.Timeout),
		maxRetries:  cfg.MaxRetries,
		backoffBase: config.GetDuration(cfg.BackoffBase),
		sleep:       sleepContext,
		logger:      log.WithFields(map[string]interface{}{"component": "grok"}),
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.backoffBase <= 0 {
		c.backoffBase = DefaultBackoffBase
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.api == nil {
		oc := openai.DefaultConfig(apiKey)
		oc.BaseURL = cfg.BaseURL
		if oc.BaseURL == "" {
			oc.BaseURL = DefaultBaseURL
		}
		if c.httpClient != nil {
			oc.HTTPClient = c.httpClient
		}
		c.api = openai.NewClientWithConfig(oc)
	}

	c.logger.Info("Initialized model client", map[string]interface{}{
		"model":      c.model,
		"timeout":    c.timeout.String(),
		"maxRetries": c.maxRetries,
	})
	return c, nil
}

func (c *Client) Model() string { return c.model }

// Invoke sends one system and one user message constrained to shape and
// decodes the reply into out. Rate-limited and 5xx failures are retried with
// exponential backoff; every other failure, including a malformed reply, is
// returned at once.
func (c *Client) Invoke(ctx context.Context, systemPrompt, userPrompt string, shape validation.Shape, out Result) error {
	ctx, span := tracer.Start(ctx, "grok.invoke", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", c.model),
		attribute.String("llm.shape", shape.Name),
	)

	start := time.Now()
	err := c.invoke(ctx, systemPrompt, userPrompt, shape, out)
	elapsed := time.Since(start)
	metrics.LLMInvocationDuration.WithLabelValues(shape.Name).Observe(elapsed.Seconds())

	if c.recorder != nil {
		status := "success"
		if err != nil {
			status = string(apperrors.CodeOf(err))
		}
		c.recorder.RecordInvocation(ctx, shape.Name, status, elapsed)
	}

	if err != nil {
		code := apperrors.CodeOf(err)
		metrics.LLMFailures.WithLabelValues(shape.Name, string(code)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		return err
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, systemPrompt, userPrompt string, shape validation.Shape, out Result) error {
	req, err := c.buildRequest(systemPrompt, userPrompt, shape)
	if err != nil {
		return apperrors.NewServiceFailureError(err)
	}

	var resp openai.ChatCompletionResponse
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return apperrors.NewServiceFailureError(err)
			}
		}

		resp, err = c.attempt(ctx, req, attempt)
		if err == nil {
			metrics.LLMAttempts.WithLabelValues(shape.Name, "success").Inc()
			break
		}

		if ctx.Err() != nil {
			metrics.LLMAttempts.WithLabelValues(shape.Name, "cancelled").Inc()
			return apperrors.NewServiceFailureError(ctx.Err())
		}
		if errors.Is(err, errAttemptTimeout) {
			metrics.LLMAttempts.WithLabelValues(shape.Name, "timeout").Inc()
			return apperrors.NewLLMTimeoutError(c.timeout, err)
		}

		kind := classify(err)
		metrics.LLMAttempts.WithLabelValues(shape.Name, kind.String()).Inc()
		if kind == failureOther {
			return apperrors.NewServiceFailureError(err)
		}
		if attempt >= c.maxRetries {
			if kind == failureRateLimit {
				return apperrors.NewRateLimitExceededError(attempt+1, err)
			}
			return apperrors.NewTransientServiceError(attempt+1, err)
		}

		wait := c.backoffBase * time.Duration(1<<attempt)
		metrics.LLMRetries.WithLabelValues(shape.Name, kind.String()).Inc()
		c.logger.Warn("Model call failed, retrying", map[string]interface{}{
			"shape":       shape.Name,
			"reason":      kind.String(),
			"attempt":     attempt + 1,
			"maxAttempts": c.maxRetries + 1,
			"wait":        wait.String(),
			"error":       err.Error(),
		})
		if err := c.sleep(ctx, wait); err != nil {
			return apperrors.NewServiceFailureError(err)
		}
	}

	if err := decode(resp, shape, out); err != nil {
		return err
	}
	c.logger.Info("Parsed structured model response", map[string]interface{}{"shape": shape.Name})
	return nil
}

var errAttemptTimeout = errors.New("attempt timed out")

func (c *Client) attempt(ctx context.Context, req openai.ChatCompletionRequest, attempt int) (openai.ChatCompletionResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	attemptCtx, span := tracer.Start(attemptCtx, "grok.attempt")
	defer span.End()
	span.SetAttributes(attribute.Int("llm.attempt", attempt))

	resp, err := c.api.CreateChatCompletion(attemptCtx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return resp, fmt.Errorf("%w: %v", errAttemptTimeout, err)
		}
		return resp, err
	}
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp, nil
}

func (c *Client) buildRequest(systemPrompt, userPrompt string, shape validation.Shape) (openai.ChatCompletionRequest, error) {
	schema, err := json.Marshal(shape.Schema)
	if err != nil {
		return openai.ChatCompletionRequest{}, fmt.Errorf("marshal schema %s: %w", shape.Name, err)
	}
	return openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   shape.Name,
				Schema: json.RawMessage(schema),
				Strict: true,
			},
		},
	}, nil
}

func decode(resp openai.ChatCompletionResponse, shape validation.Shape, out Result) error {
	if len(resp.Choices) == 0 {
		return apperrors.NewValidationError("response contained no choices", nil)
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return apperrors.NewValidationError("response content was empty", nil)
	}

	result, err := validation.ValidateJSON(shape.Schema, []byte(content))
	if err != nil {
		return apperrors.NewValidationError("schema check failed", err)
	}
	if !result.Valid || len(result.Errors) > 0 {
		return apperrors.NewValidationError(
			fmt.Sprintf("response does not match %s: %s", shape.Name, result.Error()), result)
	}

	if err := json.Unmarshal([]byte(content), out); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("decode %s", shape.Name), err)
	}
	if err := out.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
