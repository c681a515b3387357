package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/presswork/presswork/pkg/grammar"
	"github.com/presswork/presswork/pkg/textmaker"
)

// newTextMakerFromConfig wires a TextMaker from the active configuration,
// opening the database when the sqlite strategy asks for one. The returned
// cleanup func must be called when done.
func newTextMakerFromConfig(cfg Config) (textmaker.TextMaker, func(), error) {
	tok, err := grammar.NewSentenceTokenizer(cfg.Tokenizer)
	if err != nil {
		return nil, nil, err
	}

	opts := []textmaker.Option{
		textmaker.WithNgramSize(cfg.NgramSize),
		textmaker.WithSentenceTokenizer(tok),
		textmaker.WithModelName(cfg.ModelName),
	}

	var db *sql.DB
	if cfg.Strategy == textmaker.StrategySQLite {
		db, err = initDB(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database %s: %w", cfg.DBPath, err)
		}
		opts = append(opts, textmaker.WithDB(db))
	}

	tm, err := textmaker.New(cfg.Strategy, opts...)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		_ = tm.Close()
		if db != nil {
			_ = db.Close()
		}
	}
	return tm, cleanup, nil
}

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate [file...]",
		Short: "Train on input text and print generated text",
		Long: `Train a model on the given text files (or stdin when no files are
given), then generate sentences in the same style and print them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tm, cleanup, err := newTextMakerFromConfig(activeCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			joiner, err := grammar.NewJoiner(activeCfg.Joiner)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				if err := tm.InputText(ctx, string(data)); err != nil {
					return err
				}
			}
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				if err := tm.InputText(ctx, string(data)); err != nil {
					return err
				}
			}

			text, err := textmaker.MakeText(ctx, tm, joiner, activeCfg.Count)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
}
