package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"gobarber/client/internal/observability/metrics"
)

const (
	defaultTimeout  = 15 * time.Second
	maxErrorBodyLog = 300
)

var tracer = otel.Tracer("gobarber.internal.api")

type Options struct {
	BaseURL string
	Timeout time.Duration

	// RateLimit is the sustained requests per second. Zero disables limiting.
	RateLimit float64
	Burst     int

	HTTPClient *http.Client
	Metrics    *metrics.ClientMetrics
	Logger     *slog.Logger
}

// Client talks to the GoBarber REST API. It carries its own authorization
// header value; SetAuthorization and ClearAuthorization are safe to call
// while requests are in flight.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *metrics.ClientMetrics
	logger     *slog.Logger

	mu    sync.RWMutex
	token string
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: invalid base URL %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		limiter:    limiter,
		metrics:    opts.Metrics,
		logger:     logger.With(slog.String("component", "api")),
	}, nil
}

// SetAuthorization makes every following request carry "Bearer <token>".
func (c *Client) SetAuthorization(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) ClearAuthorization() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// Authorization returns the header value requests currently carry, or "".
func (c *Client) Authorization() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return ""
	}
	return "Bearer " + c.token
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		payload = b
	}

	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, query, contentType, payload, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, contentType string, payload []byte, out any) error {
	ctx, span := tracer.Start(ctx, "gobarber.api."+op)
	defer span.End()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	span.SetAttributes(
		attribute.String("gobarber.operation", op),
		attribute.String("gobarber.request_id", requestID),
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)

	if err := c.limiter.Wait(ctx); err != nil {
		return c.fail(span, op, &NetworkError{Op: op, Err: err}, "error", 0)
	}
	// read after the wait so a sign-out during it is honored
	if auth := c.Authorization(); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		return c.fail(span, op, &NetworkError{Op: op, Err: err}, "error", elapsed)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(span, op, &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}, strconv.Itoa(resp.StatusCode), elapsed)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(respBody, &eb)
		msg := string(respBody)
		if len(msg) > maxErrorBodyLog {
			msg = msg[:maxErrorBodyLog]
		}
		c.logger.Warn("api non-2xx response",
			"operation", op,
			"status", resp.StatusCode,
			"request_id", requestID,
			"body", msg,
		)
		return c.fail(span, op, &StatusError{Op: op, StatusCode: resp.StatusCode, Message: eb.Message}, strconv.Itoa(resp.StatusCode), elapsed)
	}

	c.metrics.ObserveRequest(op, strconv.Itoa(resp.StatusCode), elapsed)
	c.logger.Debug("api request completed", "operation", op, "status", resp.StatusCode, "request_id", requestID)

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		err = fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode response")
		return err
	}
	return nil
}

func (c *Client) fail(span trace.Span, op string, err error, status string, seconds float64) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.metrics.ObserveRequest(op, status, seconds)
	return err
}
