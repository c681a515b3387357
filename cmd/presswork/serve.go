package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/presswork/presswork/pkg/grammar"
	"github.com/presswork/presswork/pkg/textmaker"
)

// Form limits. The demo is for local play, not production traffic, but a
// pasted novel or a mistyped count should fail cleanly rather than hang the
// process.
const (
	maxInputTextLen = 1000000
	maxCount        = 3000
)

//go:embed demo.tmpl.html
var demoFS embed.FS

// demoPage is everything the form template needs to re-render itself with
// the submitted values and any results.
type demoPage struct {
	Strategies []string
	Tokenizers []string
	Joiners    []string

	Text      string
	Strategy  string
	Tokenizer string
	Joiner    string
	NgramSize int
	Count     int

	Title string
	Body  string
	Error string
}

type demoServer struct {
	cfg    Config
	tmpl   *template.Template
	logger *slog.Logger
}

// newDemoServer builds the handler for the local demo form.
func newDemoServer(cfg Config, logger *slog.Logger) (http.Handler, error) {
	tmpl, err := template.ParseFS(demoFS, "demo.tmpl.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse demo template: %w", err)
	}
	s := &demoServer{cfg: cfg, tmpl: tmpl, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDemo)
	return mux, nil
}

func (s *demoServer) handleDemo(w http.ResponseWriter, r *http.Request) {
	page := &demoPage{
		Strategies: textmaker.StrategyNicknames,
		Tokenizers: grammar.TokenizerNicknames,
		Joiners:    grammar.JoinerNicknames,
		Strategy:   s.cfg.Strategy,
		Tokenizer:  s.cfg.Tokenizer,
		Joiner:     s.cfg.Joiner,
		NgramSize:  s.cfg.NgramSize,
		Count:      s.cfg.Count,
	}

	if r.Method == http.MethodPost {
		s.generate(r, page)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, page); err != nil {
		s.logger.Error("Failed to execute demo template", "error", err)
	}
}

// generate validates the form and fills in the page's Title/Body, or Error.
func (s *demoServer) generate(r *http.Request, page *demoPage) {
	if err := r.ParseForm(); err != nil {
		page.Error = "could not parse form"
		return
	}

	page.Text = r.PostFormValue("text")
	page.Strategy = r.PostFormValue("strategy")
	page.Tokenizer = r.PostFormValue("tokenizer")
	page.Joiner = r.PostFormValue("joiner")

	var err error
	if page.NgramSize, err = strconv.Atoi(r.PostFormValue("ngram_size")); err != nil {
		page.Error = "ngram size must be a number"
		return
	}
	if page.Count, err = strconv.Atoi(r.PostFormValue("count")); err != nil {
		page.Error = "count must be a number"
		return
	}

	switch {
	case page.Text == "":
		page.Error = "please paste some text to imitate"
	case len(page.Text) > maxInputTextLen:
		page.Error = fmt.Sprintf("input text is limited to %d characters", maxInputTextLen)
	case page.NgramSize < textmaker.MinNgramSize || page.NgramSize > textmaker.MaxNgramSize:
		page.Error = fmt.Sprintf("ngram size must be between %d and %d", textmaker.MinNgramSize, textmaker.MaxNgramSize)
	case page.Count < 1 || page.Count > maxCount:
		page.Error = fmt.Sprintf("count must be between 1 and %d", maxCount)
	}
	if page.Error != "" {
		return
	}

	joiner, err := grammar.NewJoiner(page.Joiner)
	if err != nil {
		page.Error = err.Error()
		return
	}

	reqCfg := s.cfg
	reqCfg.Strategy = page.Strategy
	reqCfg.Tokenizer = page.Tokenizer
	reqCfg.NgramSize = page.NgramSize

	tm, cleanup, err := newTextMakerFromConfig(reqCfg)
	if err != nil {
		page.Error = err.Error()
		return
	}
	defer cleanup()

	ctx := r.Context()
	if err := tm.InputText(ctx, page.Text); err != nil {
		page.Error = err.Error()
		return
	}

	body, err := textmaker.MakeText(ctx, tm, joiner, page.Count)
	if err != nil {
		page.Error = err.Error()
		return
	}
	title, err := textmaker.MakeText(ctx, tm, grammar.NewWhitespaceJoiner(), 1)
	if err != nil {
		page.Error = err.Error()
		return
	}

	page.Title = title
	page.Body = body
	s.logger.Info("Generated text for demo form",
		"strategy", page.Strategy,
		"ngram_size", page.NgramSize,
		"count", page.Count,
		"input_chars", len(page.Text),
	)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the local demo web form",
		Long: `Serve a small web form for playing with text generation in a browser.
The demo binds to localhost by default and has no authentication; do not
expose it to the open internet.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handler, err := newDemoServer(activeCfg, slog.Default())
			if err != nil {
				return err
			}

			httpServer := &http.Server{
				Addr:    activeCfg.ListenAddr,
				Handler: handler,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errChan := make(chan error, 1)
			go func() {
				slog.Info("Starting demo server", "address", httpServer.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errChan <- err
				}
			}()

			select {
			case err := <-errChan:
				return err
			case <-ctx.Done():
			}

			slog.Info("Stopping demo server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}
