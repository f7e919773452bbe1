// Package fetch reads RAML sources from disk or over http(s).
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"raml-toolkit/internal/config"
	"raml-toolkit/internal/parsers/raml"
	"raml-toolkit/internal/redact"
)

// Fetcher implements raml.Reader. Remote locations are downloaded with the
// configured credentials and local ones are read from disk.
type Fetcher struct {
	client   *http.Client
	auth     *config.AuthConfig
	retries  int
	logger   *slog.Logger
	redactor *redact.Redactor
}

// StatusError reports a non-2xx response. URL is already redacted.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

var errInvalidRequest = errors.New("invalid request")

// retryable reports whether a failed fetch is worth repeating: transport
// failures and 5xx responses are, client errors are not.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return !errors.Is(err, errInvalidRequest)
}

type Option func(*Fetcher)

func WithAuth(auth *config.AuthConfig) Option { return func(f *Fetcher) { f.auth = auth } }

func WithRetries(n int) Option { return func(f *Fetcher) { f.retries = n } }

func WithLogger(l *slog.Logger) Option { return func(f *Fetcher) { f.logger = l } }

func WithRedactor(r *redact.Redactor) Option { return func(f *Fetcher) { f.redactor = r } }

func NewFetcher(timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{client: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.redactor == nil {
		f.redactor = redact.NewRedactor()
	}
	f.logger = f.logger.With("component", "fetch")
	return f
}

// FromConfig builds a Fetcher from the fetch section of cfg.
func FromConfig(cfg *config.Config, logger *slog.Logger, redactor *redact.Redactor) *Fetcher {
	return NewFetcher(time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second,
		WithAuth(cfg.Fetch.Auth),
		WithRetries(cfg.Fetch.Retries),
		WithLogger(logger),
		WithRedactor(redactor),
	)
}

func (f *Fetcher) Read(ctx context.Context, location string) ([]byte, error) {
	if !raml.IsURL(location) {
		return raml.FileReader{}.Read(ctx, location)
	}
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			f.logger.Warn("retrying fetch", "url", f.redactor.URL(location), "attempt", attempt, "error", f.redactor.Redact(lastErr.Error()))
		}
		data, err := f.Fetch(ctx, location)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.logger.Debug("fetching", "url", f.redactor.URL(url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w: %w", errInvalidRequest, err)
	}
	req.Header.Set("Accept", "application/raml+yaml, application/yaml, text/yaml, application/json, */*")
	applyAuth(req, f.auth)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", f.redactor.URL(url), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: f.redactor.URL(url), Code: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.redactor.URL(url), err)
	}
	return data, nil
}

func applyAuth(req *http.Request, auth *config.AuthConfig) {
	if auth == nil {
		return
	}
	switch auth.Type {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case "basic":
		cred := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
		req.Header.Set("Authorization", "Basic "+cred)
	case "api-key":
		req.Header.Set(auth.Header, auth.Value)
	}
}
