// Package httpclient is the HTTP layer shared by bookmaker adapters.
// It paces requests per book and turns every failure into a typed *models.FetchFailure.
package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/time/rate"

	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

const (
	defaultTimeout   = 15 * time.Second
	errPreviewLength = 300
)

var maxBodyBytes int64 = 32 << 20

var errBodyTooLarge = errors.New("response body too large")

type Client struct {
	book       string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	headers    map[string]string
}

type Option func(*Client)

// WithRateLimit caps requests per second. A non-positive rps leaves the client unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeaders adds headers sent on every request. Credentials live here, never in the core.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			if v != "" {
				c.headers[k] = v
			}
		}
	}
}

func New(book string, opts ...Option) *Client {
	c := &Client{
		book:       book,
		httpClient: &http.Client{Timeout: defaultTimeout},
		headers:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Book() string {
	return c.book
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.NewFetchFailure(models.FailureNetwork, c.book, "create request", err)
	}
	return c.Do(req, out)
}

// PostJSON sends body as JSON and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return models.NewFetchFailure(models.FailureNetwork, c.book, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req, out)
}

// Do waits for the limiter, sends req and classifies the outcome.
func (c *Client) Do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return models.NewFetchFailure(models.FailureNetwork, c.book, "rate limiter wait", err)
		}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br, zstd")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.NewFetchFailure(models.FailureNetwork, c.book, "request "+req.URL.Path, err)
	}
	defer resp.Body.Close()

	if failure := c.classifyStatus(resp); failure != nil {
		return failure
	}

	body, err := readBodyDecode(resp)
	if err != nil {
		var te *transportError
		if errors.As(err, &te) {
			return models.NewFetchFailure(models.FailureNetwork, c.book, "read body", te.err)
		}
		f := models.NewFetchFailure(models.FailureMalformed, c.book, "decode body", err)
		f.StatusCode = resp.StatusCode
		return f
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		detail := "decode json"
		if looksLikeHTML(body) {
			detail = "received HTML instead of JSON"
		}
		f := models.NewFetchFailure(models.FailureMalformed, c.book, detail, err)
		f.StatusCode = resp.StatusCode
		return f
	}
	return nil
}

// classifyStatus maps non-2xx responses: 429 or any Retry-After is RATE_LIMITED,
// 401 and 403 are AUTH, everything else is HTTP_STATUS.
func (c *Client) classifyStatus(resp *http.Response) *models.FetchFailure {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	preview, _ := io.ReadAll(io.LimitReader(resp.Body, errPreviewLength))
	f := &models.FetchFailure{
		Book:       c.book,
		StatusCode: resp.StatusCode,
		Detail:     strings.TrimSpace(string(preview)),
	}

	retryAfter, hasRetryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || hasRetryAfter:
		f.Kind = models.FailureRateLimited
		f.RetryAfter = retryAfter
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		f.Kind = models.FailureAuth
	default:
		f.Kind = models.FailureHTTPStatus
	}
	return f
}

// parseRetryAfter accepts delay-seconds or an HTTP date. The bool reports whether the header was present.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, true
}

// readBodyDecode reads the body and decompresses it based on Content-Encoding (gzip, br, zstd).
// transportError marks a failure of the connection itself, as opposed to a body that does not decode.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

// sourceReader remembers the last non-EOF error of the raw body.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

// readBodyDecode returns a *transportError when the connection failed and a plain error when
// the payload is corrupt, oversized or in an unknown encoding.
func readBodyDecode(resp *http.Response) ([]byte, error) {
	src := &sourceReader{r: resp.Body}
	body, err := decodeBody(src, resp.Header.Get("Content-Encoding"))
	if src.err != nil {
		return nil, &transportError{err: src.err}
	}
	return body, err
}

func decodeBody(src io.Reader, encoding string) ([]byte, error) {
	var r io.Reader = src
	switch enc := strings.ToLower(strings.TrimSpace(encoding)); enc {
	case "", "identity":
	case "br":
		r = brotli.NewReader(src)
	case "zstd":
		zr, err := zstd.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	case "gzip":
		gz, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}

	body, err := io.ReadAll(io.LimitReader(r, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > maxBodyBytes {
		return nil, fmt.Errorf("%w: over %d bytes", errBodyTooLarge, maxBodyBytes)
	}
	return body, nil
}

func looksLikeHTML(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] == '<' {
		return true
	}
	head := trimmed
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<html"))
}
