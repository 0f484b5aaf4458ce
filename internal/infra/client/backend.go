// Package client implements the CRM backend REST API, one file per resource.
// Every exported method issues exactly one logical HTTP call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/infra/observability"
	"github.com/boddenberg/insurance-crm-web/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

// maxDownloadBytes caps binary downloads held in memory.
const maxDownloadBytes = 32 << 20

type tokenKey struct{}

// WithToken returns a context carrying the bearer token for backend calls.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token set by WithToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Backend is the shared HTTP core used by every resource client.
type Backend struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewBackend creates the shared backend core. GET requests are retried
// cfg.MaxRetries times on transport errors and 5xx; mutations never are.
func NewBackend(httpClient *http.Client, baseURL string, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *Backend {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 64
	}
	return &Backend{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         resilience.NewCircuitBreaker("crm-backend", countsAsHealthy),
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics:    metrics,
		logger:     logger,
	}
}

// BreakerState exposes the circuit breaker state for health checks.
func (b *Backend) BreakerState() gobreaker.State {
	return b.cb.State()
}

// countsAsHealthy keeps client errors and caller cancellations from tripping the breaker.
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *domain.APIError
	return errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError
}

// call describes one backend request.
type call struct {
	resource string
	op       string
	method   string
	path     string
	query    url.Values
	body     any
	file     *domain.Upload
	raw      bool
}

func (c call) name() string {
	return c.resource + "." + c.op
}

// do executes c and decodes the JSON response into out (which may be nil).
func (b *Backend) do(ctx context.Context, c call, out any) error {
	_, err := b.execute(ctx, c, out)
	return err
}

// download executes c and returns the raw response body.
func (b *Backend) download(ctx context.Context, c call) (*domain.Download, error) {
	c.raw = true
	return b.execute(ctx, c, nil)
}

func (b *Backend) execute(ctx context.Context, c call, out any) (*domain.Download, error) {
	ctx, span := tracer.Start(ctx, "Backend."+c.name())
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", c.method),
		attribute.String("backend.path", c.path),
	)

	if err := b.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer b.bulkhead.Release()

	cfg := b.cfg
	if c.method != http.MethodGet {
		cfg.MaxRetries = 0
	}

	start := time.Now()
	var dl *domain.Download

	_, err := b.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, cfg, func() error {
			var attemptErr error
			dl, attemptErr = b.attempt(ctx, c, out)
			return attemptErr
		})
	})

	b.metrics.RecordBackendCall(c.resource, c.name(), time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		err = b.classify(c, err)
		b.logger.Warn("backend call failed",
			zap.String("operation", c.name()),
			zap.String("method", c.method),
			zap.String("path", c.path),
			zap.Error(err),
		)
		return nil, err
	}

	b.logger.Debug("backend call",
		zap.String("operation", c.name()),
		zap.Duration("latency", time.Since(start)),
	)
	return dl, nil
}

// classify maps breaker and transport failures onto the domain taxonomy.
// APIErrors pass through untouched.
func (b *Backend) classify(c call, err error) error {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "crm-backend"}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.ErrExternalService{Service: c.resource, Err: err}
}

// attempt performs a single HTTP round trip. Client errors and decode
// failures are permanent; transport errors and 5xx may be retried.
func (b *Backend) attempt(ctx context.Context, c call, out any) (*domain.Download, error) {
	req, err := b.newRequest(ctx, c)
	if err != nil {
		return nil, resilience.Permanent(err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeAPIError(resp, c.path)
		if resp.StatusCode < http.StatusInternalServerError {
			return nil, resilience.Permanent(apiErr)
		}
		return nil, apiErr
	}

	if c.raw {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
		if err != nil {
			return nil, err
		}
		return &domain.Download{
			ContentType: resp.Header.Get("Content-Type"),
			Disposition: resp.Header.Get("Content-Disposition"),
			Body:        body,
		}, nil
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decode %s response: %w", c.name(), err))
	}
	return nil, nil
}

func (b *Backend) newRequest(ctx context.Context, c call) (*http.Request, error) {
	u := b.baseURL + c.path
	if len(c.query) > 0 {
		u += "?" + c.query.Encode()
	}

	var body io.Reader
	var contentType string
	switch {
	case c.file != nil:
		payload, ct, err := multipartBody(c.file)
		if err != nil {
			return nil, fmt.Errorf("encode %s upload: %w", c.name(), err)
		}
		body, contentType = bytes.NewReader(payload), ct
	case c.body != nil:
		payload, err := json.Marshal(c.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", c.name(), err)
		}
		body, contentType = bytes.NewReader(payload), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, c.method, u, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if !c.raw {
		req.Header.Set("Accept", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody encodes f as the single "file" part of a multipart form.
func multipartBody(f *domain.Upload) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(f.Filename)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(f.Body); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

// decodeAPIError reads the backend error body: {"message": ...} or {"error": ...}.
func decodeAPIError(resp *http.Response, path string) *domain.APIError {
	apiErr := &domain.APIError{Status: resp.StatusCode, Path: path}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	return apiErr
}

// ============================================================
// Helpers shared by the resource clients
// ============================================================

func get[T any](ctx context.Context, b *Backend, c call) (*T, error) {
	c.method = http.MethodGet
	var out T
	if err := b.do(ctx, c, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func getList[T any](ctx context.Context, b *Backend, c call) ([]T, error) {
	c.method = http.MethodGet
	out := []T{}
	if err := b.do(ctx, c, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func send[T any](ctx context.Context, b *Backend, c call) (*T, error) {
	var out T
	if err := b.do(ctx, c, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func idPath(format string, ids ...any) string {
	escaped := make([]any, len(ids))
	for i, id := range ids {
		switch v := id.(type) {
		case string:
			escaped[i] = url.PathEscape(v)
		default:
			escaped[i] = v
		}
	}
	return fmt.Sprintf(format, escaped...)
}

func pageQuery(page, size int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	return q
}
