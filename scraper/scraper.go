// Package scraper fetches live forum pages for the builder.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"
)

// HTTP403Error indicates a 403 Forbidden response (the board wants a login).
type HTTP403Error struct {
	URL string
}

func (e *HTTP403Error) Error() string {
	return fmt.Sprintf("HTTP 403 Forbidden: %s", e.URL)
}

// IsHTTP403Error checks if an error is an HTTP 403 error.
func IsHTTP403Error(err error) bool {
	var forbidden *HTTP403Error
	return errors.As(err, &forbidden)
}

// Scraper fetches and parses forum pages.
type Scraper struct {
	client   *http.Client
	logger   *slog.Logger
	attempts uint
	delay    time.Duration
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithRetry overrides the retry budget.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(s *Scraper) {
		s.attempts = attempts
		s.delay = delay
	}
}

// New creates a new scraper.
func New(client *http.Client, logger *slog.Logger, opts ...Option) *Scraper {
	s := &Scraper{
		client:   client,
		logger:   logger,
		attempts: 5,
		delay:    time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// browserHeaders are sent with every request. Jcink boards behind Cloudflare
// reject bare Go clients.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Upgrade-Insecure-Requests": "1",
}

// Fetch downloads a page and parses it into a document. Transport errors and
// non-200 responses are retried; a 403 or an unparseable body is not.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := retry.Do(
		func() error {
			var err error
			doc, err = s.get(ctx, pageURL)
			return err
		},
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(s.delay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Info("Retrying forum page", "url", pageURL, "attempt", n, "error", err)
		}),
		retry.RetryIf(func(err error) bool {
			return !IsHTTP403Error(err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	return doc, nil
}

// get makes a single attempt.
func (s *Scraper) get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("create request: %w", err))
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("Forum page request failed", "url", pageURL, "error", err)
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	s.logger.Debug("Forum page response",
		"url", pageURL,
		"status_code", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds())

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, &HTTP403Error{URL: pageURL}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := Parse(resp.Body)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	s.logger.Info("Fetched forum page", "url", pageURL)
	return doc, nil
}

// Parse reads a page from r.
func Parse(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
