package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

// maxResponseBytes caps how much of a response body is read. Snippet
// payloads are small; anything beyond this is a misbehaving endpoint.
const maxResponseBytes int64 = 32 * 1024 * 1024

// ErrBodyTooLarge indicates a response body exceeded the read limit.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPError represents a non-2xx response. Calls failing with it are
// transient from the engine's point of view: recorded, never fatal.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error %d: %s", e.StatusCode, e.Status)
}

// IsNotFound reports whether err is an HTTP 404.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

// RequestOptions describes one HTTP exchange.
type RequestOptions struct {
	Method  string
	URL     string
	Token   string            // sent as "Authorization: <TokenScheme> <Token>" when non-empty
	Scheme  string            // auth scheme, defaults to "Bearer"
	Body    []byte
	Headers map[string]string
}

// Response is the status+body outcome of a request.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Client executes HTTP requests with a per-call timeout. It is the
// only transport capability adapters and the source lister use.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	userAgent  string
}

// NewClient creates a hardened client. timeout bounds every call;
// zero or negative selects 30s.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 15 * time.Second}).DialContext,
				TLSHandshakeTimeout:   15 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
			},
		},
		timeout:   timeout,
		logger:    logger,
		userAgent: "gistmirror/1.0",
	}
}

// Do executes one request and returns the response regardless of
// status code when it is 2xx; non-2xx statuses are returned as
// *HTTPError with the body attached for context.
func (c *Client) Do(ctx context.Context, opts RequestOptions) (*Response, error) {
	if _, err := ValidateHTTPURL(opts.URL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if len(opts.Body) > 0 {
		bodyReader = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if opts.Token != "" {
		scheme := opts.Scheme
		if scheme == "" {
			scheme = "Bearer"
		}
		req.Header.Set("Authorization", scheme+" "+opts.Token)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", opts.Method, opts.URL, err)
	}
	defer resp.Body.Close()

	body, err := readAllWithLimit(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", opts.URL, err)
	}

	c.logger.Debug("http request",
		"method", opts.Method,
		"url", opts.URL,
		"status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
	}, nil
}

// readAllWithLimit reads from r and fails if content exceeds limit bytes.
func readAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// ValidateHTTPURL ensures the URL parses as HTTP(S) and contains no userinfo.
func ValidateHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("URL host is required")
	}
	if u.User != nil {
		return nil, fmt.Errorf("URL userinfo is not allowed")
	}
	return u, nil
}
