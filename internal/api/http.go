package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"posadmin/internal/logging"
	"posadmin/internal/metrics"
	"posadmin/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	maxResponseBytes = 8 << 20
	maxErrorBytes    = 64 << 10
)

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	BaseURL string
	// DB is the tenant database url used as a path prefix for scoped kinds.
	DB    string
	Token string

	Timeout    time.Duration
	MaxRetries int
	// RequestsPerSecond paces calls client-side; 0 disables pacing.
	RequestsPerSecond float64

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// HTTPClient talks JSON to the admin backend.
type HTTPClient struct {
	baseURL    string
	db         string
	token      string
	maxRetries int
	http       *http.Client
	limiter    *rate.Limiter
	log        logrus.FieldLogger
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api base url is empty (set apiBaseUrl in config or POSADMIN_API_URL)")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &HTTPClient{
		baseURL:    base,
		db:         strings.Trim(strings.TrimSpace(cfg.DB), "/"),
		token:      strings.TrimSpace(cfg.Token),
		maxRetries: maxRetries,
		http:       hc,
		limiter:    limiter,
		log:        logging.OrDiscard(cfg.Logger),
	}, nil
}

func (c *HTTPClient) collectionPath(kind model.Kind) (string, error) {
	if !kind.Scoped {
		return "/" + kind.Path, nil
	}
	if c.db == "" {
		return "", fmt.Errorf("%s are database-scoped; no current database selected (use `posadmin db use <url>`)", kind.Plural())
	}
	return "/" + url.PathEscape(c.db) + "/" + kind.Path, nil
}

func (c *HTTPClient) itemPath(kind model.Kind, id string) (string, error) {
	p, err := c.collectionPath(kind)
	if err != nil {
		return "", err
	}
	return p + "/" + url.PathEscape(id), nil
}

func (c *HTTPClient) ListAll(ctx context.Context, kind model.Kind) (out []model.Entity, err error) {
	defer func() { metrics.ObserveAPI(kind.Slug, "list", err) }()
	p, err := c.collectionPath(kind)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}
	return decodeList(body)
}

func (c *HTTPClient) Get(ctx context.Context, kind model.Kind, id string) (out model.Entity, err error) {
	defer func() { metrics.ObserveAPI(kind.Slug, "get", err) }()
	p, err := c.itemPath(kind, id)
	if err != nil {
		return model.Entity{}, err
	}
	body, err := c.do(ctx, http.MethodGet, p, nil)
	if err != nil {
		return model.Entity{}, err
	}
	return decodeOne(body)
}

func (c *HTTPClient) Create(ctx context.Context, kind model.Kind, draft model.Draft) (out model.Entity, err error) {
	defer func() { metrics.ObserveAPI(kind.Slug, "create", err) }()
	p, err := c.collectionPath(kind)
	if err != nil {
		return model.Entity{}, err
	}
	body, err := c.do(ctx, http.MethodPost, p, map[string]any(draft))
	if err != nil {
		return model.Entity{}, err
	}
	return decodeOne(body)
}

func (c *HTTPClient) Update(ctx context.Context, kind model.Kind, id string, patch model.Patch) (out model.Entity, err error) {
	defer func() { metrics.ObserveAPI(kind.Slug, "update", err) }()
	p, err := c.itemPath(kind, id)
	if err != nil {
		return model.Entity{}, err
	}
	body, err := c.do(ctx, http.MethodPatch, p, map[string]any(patch))
	if err != nil {
		return model.Entity{}, err
	}
	return decodeOne(body)
}

func (c *HTTPClient) Delete(ctx context.Context, kind model.Kind, id string) (ok bool, err error) {
	defer func() { metrics.ObserveAPI(kind.Slug, "delete", err) }()
	p, err := c.itemPath(kind, id)
	if err != nil {
		return false, err
	}
	body, err := c.do(ctx, http.MethodDelete, p, nil)
	if err != nil {
		return false, err
	}
	return decodeDeleted(body), nil
}

// do executes one request, retrying idempotent reads on gateway errors.
func (c *HTTPClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var raw []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		raw = b
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 200 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		body, retry, err := c.doOnce(ctx, method, path, raw)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
		c.log.WithFields(logrus.Fields{"method": method, "path": path, "attempt": attempt + 1}).WithError(err).Warn("retrying request")
	}
	return nil, lastErr
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, raw []byte) ([]byte, bool, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, false, err
		}
	}

	var bodyReader io.Reader
	if raw != nil {
		bodyReader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	log := c.log.WithFields(logrus.Fields{"method": method, "path": path, "status": resp.StatusCode, "request_id": reqID})

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBytes))
		log.Debug("not found")
		return nil, false, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode >= 400:
		msg := errorMessage(io.LimitReader(resp.Body, maxErrorBytes))
		log.WithField("message", msg).Debug("request failed")
		retry := resp.StatusCode == http.StatusBadGateway ||
			resp.StatusCode == http.StatusServiceUnavailable ||
			resp.StatusCode == http.StatusGatewayTimeout
		return nil, retry, &StatusError{Code: resp.StatusCode, Message: msg}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, false, fmt.Errorf("read response body: %w", err)
	}
	if len(body) > maxResponseBytes {
		return nil, false, fmt.Errorf("response body exceeds %d bytes", maxResponseBytes)
	}
	log.Debug("request ok")
	return body, false, nil
}

// errorMessage extracts {"error": {"message": ...}}, {"error": "..."} or {"message": "..."}
// bodies, falling back to the raw text.
func errorMessage(r io.Reader) string {
	b, _ := io.ReadAll(r)
	text := strings.TrimSpace(string(b))
	var env struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return text
	}
	if env.Message != "" {
		return env.Message
	}
	if len(env.Error) > 0 {
		var s string
		if json.Unmarshal(env.Error, &s) == nil {
			return s
		}
		var inner struct {
			Message any `json:"message"`
		}
		if json.Unmarshal(env.Error, &inner) == nil && inner.Message != nil {
			return fmt.Sprint(inner.Message)
		}
	}
	return text
}
