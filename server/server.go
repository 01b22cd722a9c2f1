// Package server exposes the page builder over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"skinbuilder/builder"
	"skinbuilder/extract"
	"skinbuilder/render"
	"skinbuilder/scraper"
)

// maxBodyBytes caps uploaded pages.
const maxBodyBytes = 8 << 20

// Fetcher downloads live forum pages.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// Server handles HTTP requests.
type Server struct {
	builder      *builder.Builder
	fetcher      Fetcher
	logger       *slog.Logger
	forumBaseURL string
}

// Config holds server configuration.
type Config struct {
	Builder *builder.Builder
	Fetcher Fetcher
	Logger  *slog.Logger
	// ForumBaseURL is the only origin GET requests may fetch from. Empty
	// disables fetching.
	ForumBaseURL string
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		builder:      cfg.Builder,
		fetcher:      cfg.Fetcher,
		logger:       cfg.Logger,
		forumBaseURL: cfg.ForumBaseURL,
	}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/render", s.handleRender)
	mux.HandleFunc("/extract", s.handleExtract)
	mux.Handle("/metrics", promhttp.Handler())
	return metricsMiddleware(mux)
}

// ListenAndServe starts the server and blocks until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "port", port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"healthy"}`); err != nil {
		s.logger.Warn("Failed to write health response", "error", err)
	}
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	page, doc, ok := s.request(w, r)
	if !ok {
		return
	}

	fragments, err := s.builder.Build(doc.Selection, page)
	if err != nil {
		s.buildFailed(w, page, err)
		return
	}
	pagesTotal.WithLabelValues(string(page), "ok").Inc()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if err := writeFragments(w, fragments); err != nil {
		s.logger.Warn("Failed to write render response", "page", string(page), "error", err)
	}
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	page, doc, ok := s.request(w, r)
	if !ok {
		return
	}

	records, err := s.builder.Records(doc.Selection, page)
	if err != nil {
		s.buildFailed(w, page, err)
		return
	}
	pagesTotal.WithLabelValues(string(page), "ok").Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(records); err != nil {
		s.logger.Warn("Failed to write extract response", "page", string(page), "error", err)
	}
}

// request validates the page parameter and obtains the document, either from
// the POST body or, for GET, by fetching the url parameter. It writes the
// error response itself and reports whether the caller should continue.
func (s *Server) request(w http.ResponseWriter, r *http.Request) (builder.Page, *goquery.Document, bool) {
	page, err := builder.ParsePage(r.URL.Query().Get("page"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", nil, false
	}

	switch r.Method {
	case http.MethodPost:
		doc, err := scraper.Parse(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			s.logger.Warn("Failed to parse uploaded page", "page", string(page), "error", err)
			http.Error(w, "Could not read page body", http.StatusBadRequest)
			return "", nil, false
		}
		return page, doc, true

	case http.MethodGet:
		pageURL := r.URL.Query().Get("url")
		if err := s.allowedURL(pageURL); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return "", nil, false
		}
		doc, err := s.fetcher.Fetch(r.Context(), pageURL)
		if err != nil {
			s.logger.Error("Failed to fetch forum page", "url", pageURL, "error", err)
			pagesTotal.WithLabelValues(string(page), "fetch_failed").Inc()
			msg := "Could not fetch forum page"
			if scraper.IsHTTP403Error(err) {
				msg = "Forum page requires login"
			}
			http.Error(w, msg, http.StatusBadGateway)
			return "", nil, false
		}
		return page, doc, true

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return "", nil, false
	}
}

func (s *Server) allowedURL(pageURL string) error {
	if s.fetcher == nil || s.forumBaseURL == "" {
		return errors.New("url fetching is disabled")
	}
	if pageURL == "" {
		return errors.New("missing url parameter")
	}
	return withinForum(s.forumBaseURL, pageURL)
}

// withinForum reports whether pageURL is an http(s) URL under base.
func withinForum(base, pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("invalid url")
	}
	base = strings.TrimSuffix(base, "/")
	if pageURL != base && !strings.HasPrefix(pageURL, base+"/") && !strings.HasPrefix(pageURL, base+"?") {
		return errors.New("url is outside the configured forum")
	}
	return nil
}

// RedirectPolicy is an http.Client CheckRedirect that only follows redirects
// staying under base.
func RedirectPolicy(base string) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		if err := withinForum(base, req.URL.String()); err != nil {
			return fmt.Errorf("redirect to %s: %w", req.URL.Redacted(), err)
		}
		return nil
	}
}

func (s *Server) buildFailed(w http.ResponseWriter, page builder.Page, err error) {
	reason := extract.Reason(err)
	pagesTotal.WithLabelValues(string(page), reason).Inc()

	if reason == "other" {
		s.logger.Error("Page build failed", "page", string(page), "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.logger.Warn("Page did not match layout", "page", string(page), "reason", reason, "error", err)
	http.Error(w, reason+": "+err.Error(), http.StatusUnprocessableEntity)
}

func writeFragments(w io.Writer, fragments []render.Fragment) error {
	for i, f := range fragments {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := f.Render(w); err != nil {
			return err
		}
	}
	return nil
}
