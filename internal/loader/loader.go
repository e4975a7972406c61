// Package loader fetches map images from map servers.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kiesman99/arcprint/internal/logging"
)

const (
	DefaultUserAgent   = "arcprint/1.0.0"
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
)

// FetchError is returned when a map server answers with something other
// than an image.
type FetchError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

// Options configures a Loader. Zero values pick the defaults.
type Options struct {
	UserAgent   string
	Headers     map[string]string
	Timeout     time.Duration
	Concurrency int
	Client      *http.Client
}

// Loader downloads request URLs over HTTP.
type Loader struct {
	client      *http.Client
	userAgent   string
	headers     map[string]string
	concurrency int
}

// New creates a new loader
func New(opts Options) *Loader {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Loader{
		client:      client,
		userAgent:   userAgent,
		headers:     opts.Headers,
		concurrency: concurrency,
	}
}

// Fetch downloads one URL. ArcGIS Server reports request errors as a JSON
// body with status 200; those are turned into a FetchError too.
func (l *Loader) Fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", l.userAgent)
	for key, value := range l.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u.Redacted(), err)
	}

	logging.Debug("map request", "url", u.Redacted(), "status", resp.StatusCode,
		"bytes", len(data), "elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: u.Redacted(), StatusCode: resp.StatusCode, Message: resp.Status}
	}
	if msg, ok := serverError(data); ok {
		return nil, &FetchError{URL: u.Redacted(), Message: msg}
	}

	return data, nil
}

// FetchAll downloads uris in parallel and returns the bodies in the same
// order. The first failure cancels the rest.
func (l *Loader) FetchAll(ctx context.Context, uris []*url.URL) ([][]byte, error) {
	out := make([][]byte, len(uris))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, u := range uris {
		g.Go(func() error {
			data, err := l.Fetch(ctx, u)
			if err != nil {
				return err
			}
			out[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// serverError extracts the message of an ArcGIS JSON error body.
func serverError(data []byte) (string, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}

	var body struct {
		Error *struct {
			Code    int      `json:"code"`
			Message string   `json:"message"`
			Details []string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &body); err != nil || body.Error == nil {
		return "unexpected JSON response", true
	}
	if body.Error.Code != 0 {
		return fmt.Sprintf("%d %s", body.Error.Code, body.Error.Message), true
	}
	return body.Error.Message, true
}
