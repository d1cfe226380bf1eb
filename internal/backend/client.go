package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mockdesk/dashboard/internal/cache"
	"mockdesk/dashboard/internal/metrics"
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method   string
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s: status %d: %s", e.Method, e.Endpoint, e.Status, e.Body)
}

// IsStatus reports whether err wraps a StatusError with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RPS        float64
	Burst      int
	CacheTTL   time.Duration
	PageLimit  int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the booking REST backend on behalf of the caller whose bearer
// token travels in the request context.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	cache     *cache.TTL[[]byte]
	log       *zap.Logger
	pageLimit int
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	pageLimit := opts.PageLimit
	if pageLimit <= 0 {
		pageLimit = 1000
	}
	c := cache.New[[]byte](opts.CacheTTL)
	c.OnHit = metrics.CacheHits.Inc
	c.OnMiss = metrics.CacheMisses.Inc
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		http:      httpClient,
		limiter:   limiter,
		cache:     c,
		log:       log,
		pageLimit: pageLimit,
	}
}

// Cache exposes the response cache so a background job can sweep it.
func (c *Client) Cache() *cache.TTL[[]byte] { return c.cache }

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx for upstream requests.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

func (c *Client) endpointURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func cacheKey(u, token string) string {
	if token == "" {
		return u
	}
	sum := sha256.Sum256([]byte(token))
	return u + "#" + hex.EncodeToString(sum[:8])
}

// get performs a cached GET and returns the raw body.
func (c *Client) get(ctx context.Context, name, path string, query url.Values) ([]byte, error) {
	u := c.endpointURL(path, query)
	return c.cache.GetOrLoad(ctx, cacheKey(u, TokenFrom(ctx)), func(ctx context.Context) ([]byte, error) {
		return c.send(ctx, name, http.MethodGet, u, "", nil)
	})
}

// getFresh bypasses the cache; used for state that gates a mutation.
func (c *Client) getFresh(ctx context.Context, name, path string, query url.Values) ([]byte, error) {
	return c.send(ctx, name, http.MethodGet, c.endpointURL(path, query), "", nil)
}

func (c *Client) sendJSON(ctx context.Context, name, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "encode %s", name)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, name, method, c.endpointURL(path, nil), contentType, body)
}

func (c *Client) send(ctx context.Context, name, method, u, contentType string, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, name)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, name)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(name, "error").Inc()
		c.log.Warn("backend request failed", zap.String("endpoint", name), zap.String("method", method), zap.Error(err))
		return nil, errors.Wrapf(err, "%s %s", method, name)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	metrics.UpstreamRequests.WithLabelValues(name, strconv.Itoa(resp.StatusCode)).Inc()
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("backend request rejected",
			zap.String("endpoint", name),
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &StatusError{Method: method, Endpoint: name, Status: resp.StatusCode, Body: truncate(string(data), 512)}
	}
	return data, nil
}

// invalidate drops cached responses whose URL contains any of the path fragments.
func (c *Client) invalidate(parts ...string) {
	for _, part := range parts {
		c.cache.DeleteContaining(part)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
