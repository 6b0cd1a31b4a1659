package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amaumene/vortex/internal/config"
	"github.com/amaumene/vortex/internal/metrics"
	"github.com/amaumene/vortex/internal/models"
)

const (
	userAgent       = "vortex/1.0"
	tracerName      = "github.com/amaumene/vortex/internal/services/backend"
	maxResponseSize = 10 * 1024 * 1024
)

type requestIDKey struct{}

// WithRequestID attaches an id sent as X-Request-ID on every request made with ctx
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Client talks to the extraction/conversion backend
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	tracer     trace.Tracer
	metrics    *metrics.Collector
	logger     *logrus.Logger
}

// NewClient creates a new backend client. collector may be nil.
func NewClient(cfg *config.Config, collector *metrics.Collector, logger *logrus.Logger) (*Client, error) {
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BackendURL, "/"),
		timeout:    cfg.RequestTimeout,
		httpClient: &http.Client{},
		tracer:     otel.Tracer(tracerName),
		metrics:    collector,
		logger:     logger,
	}, nil
}

// BaseURL returns the backend root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doJSON performs a JSON request and decodes a 2xx body into result.
// Network failures become TransportError, non-2xx become BackendError
// carrying the backend detail or fallback.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body interface{}, result interface{}, fallback string) error {
	ctx, span := c.tracer.Start(ctx, "backend."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		))
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	err := c.roundTrip(ctx, op, method, path, body, result, fallback, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body interface{}, result interface{}, fallback string, span trace.Span) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	fullURL := c.baseURL + path
	c.logger.WithFields(logrus.Fields{
		"method": method,
		"url":    fullURL,
	}).Debug("Making backend request")

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if id := requestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveRequest(op, time.Since(start).Seconds())
	if err != nil {
		return &models.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &models.TransportError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := extractDetail(bodyBytes)
		if message == "" {
			message = fallback
		}
		c.logger.WithFields(logrus.Fields{
			"op":          op,
			"status_code": resp.StatusCode,
			"detail":      message,
		}).Debug("Backend returned non-success status")
		return &models.BackendError{Op: op, StatusCode: resp.StatusCode, Message: message}
	}

	if result != nil {
		if err := json.Unmarshal(bodyBytes, result); err != nil {
			c.logger.WithError(err).WithField("op", op).Warn("Failed to decode backend response")
			return &models.BackendError{Op: op, StatusCode: resp.StatusCode, Message: fallback}
		}
	}

	return nil
}

// extractDetail reads the error message from a {detail} payload. The
// detail is either a string or a list of {msg} validation items.
func extractDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return text
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}
