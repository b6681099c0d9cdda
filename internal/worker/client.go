// Package worker talks to the chat-completion proxy that generates routines.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"RoutineBuilder/internal/backend"
	"RoutineBuilder/internal/cache"
	"RoutineBuilder/internal/errs"
	"RoutineBuilder/internal/session"
)

const instrumentationName = "routinebuilder/worker"

// Client posts conversations to the worker. Each call is a single attempt.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	cache      *cache.Cache
	duration   metric.Float64Histogram
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithMeter sets the meter.
func WithMeter(m metric.Meter) Option {
	return func(c *Client) { c.meter = m }
}

// WithCache enables reply caching.
func WithCache(rc *cache.Cache) Option {
	return func(c *Client) { c.cache = rc }
}

// New creates a worker client for url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.GetMeterProvider().Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}

	histogram, err := c.meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		c.logger.Warn("failed to create duration histogram", "error", err)
	} else {
		c.duration = histogram
	}
	return c
}

// URL returns the worker endpoint.
func (c *Client) URL() string {
	return c.url
}

// Complete sends messages with a max_tokens hint and returns the reply text.
func (c *Client) Complete(ctx context.Context, messages []session.Message, maxTokens int) (string, error) {
	ctx, span := c.tracer.Start(ctx, "worker.complete")
	defer span.End()
	span.SetAttributes(
		attribute.Int("chat.messages", len(messages)),
		attribute.Int("chat.max_tokens", maxTokens),
	)

	var cacheKey string
	if c.cache != nil {
		cacheKey = cache.GenerateCacheKey(messages, maxTokens)
		if cached, ok := c.cache.Get(cacheKey); ok {
			c.logger.Info("cache hit", "key", cacheKey[:16])
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached.Response, nil
		}
	}

	reply, err := c.post(ctx, messages, maxTokens)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if c.cache != nil {
		c.cache.Store(cacheKey, reply)
		c.logger.Debug("cached response", "key", cacheKey[:16])
	}
	return reply, nil
}

func (c *Client) post(ctx context.Context, messages []session.Message, maxTokens int) (string, error) {
	start := time.Now()

	reqMessages := make([]backend.WorkerMessage, len(messages))
	for i, msg := range messages {
		reqMessages[i] = backend.WorkerMessage{Role: msg.Role, Content: msg.Content}
	}

	jsonData, err := json.Marshal(backend.WorkerRequest{Messages: reqMessages, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &errs.APIError{Endpoint: c.url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &errs.APIError{Endpoint: c.url, StatusCode: resp.StatusCode, Err: err}
	}

	c.recordDuration(ctx, start, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &errs.APIError{Endpoint: c.url, StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var apiResp backend.WorkerResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	c.recordUsage(ctx, apiResp.Usage)

	text, ok := apiResp.Text()
	if !ok {
		return "", errs.ErrEmptyResponse
	}
	c.logger.Info("worker replied", "status", resp.StatusCode, "chars", len(text), "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

func (c *Client) recordDuration(ctx context.Context, start time.Time, status int) {
	if c.duration == nil {
		return
	}
	c.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.Int("http.response.status_code", status)))
}

// recordUsage records OpenTelemetry counters from the worker's usage block
func (c *Client) recordUsage(ctx context.Context, usage map[string]interface{}) {
	for key, value := range usage {
		n, ok := value.(float64)
		if !ok {
			continue
		}
		counter, err := c.meter.Int64Counter(
			fmt.Sprintf("llm.usage.%s", key),
			metric.WithDescription(fmt.Sprintf("LLM usage metric: %s", key)),
		)
		if err != nil {
			c.logger.Warn("failed to create counter", "key", key, "error", err)
			continue
		}
		counter.Add(ctx, int64(n))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
