package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestDemoServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Strategy = "crude"

	handler, err := newDemoServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newDemoServer() error = %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func postForm(t *testing.T, srv *httptest.Server, form url.Values) string {
	t.Helper()
	resp, err := http.PostForm(srv.URL+"/", form)
	if err != nil {
		t.Fatalf("PostForm() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(body)
}

func validForm() url.Values {
	return url.Values{
		"text":       {"One fish two fish. Red fish blue fish. Black fish blue fish."},
		"strategy":   {"crude"},
		"tokenizer":  {"punkt"},
		"joiner":     {"whitespace"},
		"ngram_size": {"2"},
		"count":      {"3"},
	}
}

func TestDemoFormRenders(t *testing.T) {
	srv := newTestDemoServer(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<form") {
		t.Error("expected the page to contain a form")
	}
}

func TestDemoGeneratesText(t *testing.T) {
	srv := newTestDemoServer(t)
	body := postForm(t, srv, validForm())

	if strings.Contains(body, `class="error"`) {
		t.Fatalf("unexpected error in response:\n%s", body)
	}
	if !strings.Contains(body, `class="result"`) {
		t.Errorf("expected a generated result in response:\n%s", body)
	}
	if !strings.Contains(body, "fish") {
		t.Error("generated text should echo the input vocabulary")
	}
}

func TestDemoFormValidation(t *testing.T) {
	srv := newTestDemoServer(t)

	testCases := []struct {
		name  string
		tweak func(url.Values)
	}{
		{name: "empty text", tweak: func(f url.Values) { f.Set("text", "") }},
		{name: "oversized text", tweak: func(f url.Values) { f.Set("text", strings.Repeat("a", maxInputTextLen+1)) }},
		{name: "ngram too small", tweak: func(f url.Values) { f.Set("ngram_size", "0") }},
		{name: "ngram too large", tweak: func(f url.Values) { f.Set("ngram_size", "7") }},
		{name: "ngram not a number", tweak: func(f url.Values) { f.Set("ngram_size", "lots") }},
		{name: "count too small", tweak: func(f url.Values) { f.Set("count", "0") }},
		{name: "count too large", tweak: func(f url.Values) { f.Set("count", "3001") }},
		{name: "unknown strategy", tweak: func(f url.Values) { f.Set("strategy", "markovify") }},
		{name: "unknown joiner", tweak: func(f url.Values) { f.Set("joiner", "bogus") }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			form := validForm()
			tc.tweak(form)
			body := postForm(t, srv, form)
			if !strings.Contains(body, `class="error"`) {
				t.Errorf("expected a validation error in response")
			}
			if strings.Contains(body, `class="result"`) {
				t.Errorf("invalid form should not produce a result")
			}
		})
	}
}

func TestDemoEscapesInput(t *testing.T) {
	srv := newTestDemoServer(t)
	form := validForm()
	form.Set("text", "<script>alert(1)</script> fish fish fish.")
	body := postForm(t, srv, form)

	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("form input must be HTML-escaped when echoed back")
	}
}
