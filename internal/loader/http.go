package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/logging"
)

// ClientOptions configures HTTP loading. Zero values take the defaults.
type ClientOptions struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// MaxBytes caps the response body; 0 means DefaultMaxFileSize.
	MaxBytes int64
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
	Parse      Options
}

// DefaultClientOptions mirrors the api settings: 30s timeout, 3 attempts, 1s backoff.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    8 * time.Second,
	}
}

// HTTPError is a non-2xx response from a data endpoint.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("http error: status=%d url=%s body=%s", e.StatusCode, e.URL, e.Body)
	}
	return fmt.Sprintf("http error: status=%d url=%s", e.StatusCode, e.URL)
}

// Retryable reports whether the status is worth another attempt.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || (e.StatusCode >= 500 && e.StatusCode <= 599)
}

// FromURL fetches a dataset with GET. JSON payloads (an array of records, or
// an object wrapping one) and CSV payloads are supported; the format comes
// from the Content-Type, falling back to the URL path. 429 and 5xx responses
// and network timeouts are retried with exponential backoff and jitter,
// honoring Retry-After.
func FromURL(ctx context.Context, rawURL string, opt ClientOptions) (*dataset.Dataset, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}
	d := DefaultClientOptions()
	if opt.Timeout <= 0 {
		opt.Timeout = d.Timeout
	}
	if opt.MaxAttempts <= 0 {
		opt.MaxAttempts = d.MaxAttempts
	}
	if opt.BaseDelay <= 0 {
		opt.BaseDelay = d.BaseDelay
	}
	if opt.MaxDelay <= 0 {
		opt.MaxDelay = d.MaxDelay
	}
	if opt.MaxBytes <= 0 {
		opt.MaxBytes = DefaultMaxFileSize
	}
	client := opt.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opt.Timeout}
	}

	backoff := opt.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= opt.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		body, ctype, err := fetch(ctx, client, rawURL, opt.MaxBytes)
		if err == nil {
			name := payloadName(ctype, u.Path)
			ds, err := Load(bytes.NewReader(body), name, opt.Parse)
			if err != nil {
				return nil, fmt.Errorf("parse response: %w", err)
			}
			logging.Debug().Str("url", rawURL).Int("attempt", attempt).Int("rows", ds.Rows()).Msg("dataset fetched")
			return ds, nil
		}
		lastErr = err
		if attempt == opt.MaxAttempts || !retryable(err) {
			break
		}
		sleep := withJitter(backoff)
		var he *HTTPError
		if errors.As(err, &he) && he.RetryAfter > 0 {
			sleep = he.RetryAfter
		}
		if sleep > opt.MaxDelay {
			sleep = opt.MaxDelay
		}
		logging.Warn().Err(err).Int("attempt", attempt).Dur("sleep", sleep).Msg("retrying dataset fetch")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
		backoff *= 2
	}
	return nil, lastErr
}

func fetch(ctx context.Context, client *http.Client, rawURL string, limit int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/csv;q=0.9")
	req.Header.Set("User-Agent", "dataprep-cli")
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		he := &HTTPError{StatusCode: resp.StatusCode, URL: rawURL, Body: strings.TrimSpace(string(snippet))}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := parseRetryAfterSeconds(ra); err == nil && secs > 0 {
				he.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return nil, "", he
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, "", fmt.Errorf("%w: response exceeds %d bytes", ErrFileTooLarge, limit)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// payloadName maps the response type to a file name the registry resolves.
func payloadName(contentType, urlPath string) string {
	mt, _, _ := mime.ParseMediaType(contentType)
	switch {
	case strings.Contains(mt, "csv"):
		return "response.csv"
	case strings.Contains(mt, "tab-separated"):
		return "response.tsv"
	case strings.Contains(mt, "json"):
		return "response.json"
	}
	if base := path.Base(urlPath); Supported(base) {
		return base
	}
	return "response.json"
}

func retryable(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Retryable()
	}
	return isRetryableNetErr(err)
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return false
}

// parseRetryAfterSeconds interprets Retry-After as seconds or an HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// withJitter spreads retries by +/-20%.
func withJitter(d time.Duration) time.Duration {
	f := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(d) * f)
}
