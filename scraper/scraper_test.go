package scraper

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestScraper() *Scraper {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(&http.Client{Timeout: 5 * time.Second}, logger, WithRetry(3, time.Millisecond))
}

func TestFetch(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		if _, err := io.WriteString(w, `<div id="topic-view"><span class="topic-title">Hello</span></div>`); err != nil {
			t.Errorf("write: %v", err)
		}
	}))
	defer srv.Close()

	doc, err := newTestScraper().Fetch(context.Background(), srv.URL+"/index.php?showtopic=99")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := doc.Find("#topic-view .topic-title").Text(); got != "Hello" {
		t.Errorf("title = %q, want %q", got, "Hello")
	}
	if !strings.HasPrefix(userAgent, "Mozilla/5.0") {
		t.Errorf("User-Agent = %q, want browser agent", userAgent)
	}
}

func TestFetchForbiddenIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestScraper().Fetch(context.Background(), srv.URL)
	if !IsHTTP403Error(err) {
		t.Fatalf("Fetch() error = %v, want HTTP403Error", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if _, err := io.WriteString(w, `<p>ok</p>`); err != nil {
			t.Errorf("write: %v", err)
		}
	}))
	defer srv.Close()

	doc, err := newTestScraper().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := doc.Find("p").Text(); got != "ok" {
		t.Errorf("body = %q, want %q", got, "ok")
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server called %d times, want 2", n)
	}
}

func TestParse(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<table class="tablebasic"><tr><td>x</td></tr></table>`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if n := doc.Find(".tablebasic td").Length(); n != 1 {
		t.Errorf("cells = %d, want 1", n)
	}
}
