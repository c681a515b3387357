package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/presswork/presswork/pkg/grammar"
	"github.com/presswork/presswork/pkg/markov"
)

// openStore opens the configured database and wraps it in a chain store.
// The returned cleanup func must be called when done.
func openStore(cfg Config) (*markov.Store, func(), error) {
	db, err := initDB(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %s: %w", cfg.DBPath, err)
	}
	if err := markov.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to set up schema: %w", err)
	}
	store, err := markov.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	store.SetLogger(slog.Default())

	cleanup := func() {
		store.Close()
		_ = db.Close()
	}
	return store, cleanup, nil
}

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage models in the database",
	}
	cmd.AddCommand(newModelCreateCmd())
	cmd.AddCommand(newModelListCmd())
	cmd.AddCommand(newModelGenerateCmd())
	cmd.AddCommand(newModelStatsCmd())
	cmd.AddCommand(newModelTrainCmd())
	cmd.AddCommand(newModelPruneCmd())
	cmd.AddCommand(newModelVocabPruneCmd())
	cmd.AddCommand(newModelExportCmd())
	cmd.AddCommand(newModelImportCmd())
	cmd.AddCommand(newModelDeleteCmd())
	return cmd
}

func newModelCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the configured model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cleanup, err := openStore(activeCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			_, err = store.CreateModel(cmd.Context(), activeCfg.ModelName, activeCfg.NgramSize)
			return err
		},
	}
}

func newModelGenerateCmd() *cobra.Command {
	var (
		temperature float64
		topK        int
		maxTokens   int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate text from an already-trained model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cleanup, err := openStore(activeCfg)
			if err != nil {
				return err
			}
			defer cleanup()
			ctx := cmd.Context()

			model, err := store.ModelByName(ctx, activeCfg.ModelName)
			if err != nil {
				return err
			}
			joiner, err := grammar.NewJoiner(activeCfg.Joiner)
			if err != nil {
				return err
			}

			sentences, err := store.MakeSentences(ctx, model, activeCfg.Count,
				markov.WithTemperature(temperature),
				markov.WithTopK(topK),
				markov.WithMaxTokens(maxTokens),
			)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), joiner.Join(sentences))
			return err
		},
	}
	cmd.Flags().Float64Var(&temperature, "temperature", 1.0, "Sampling temperature (0 = always pick the most frequent token)")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Restrict sampling to the k most frequent tokens (0 = off)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 100, "Per-sentence token cap")
	return cmd
}

func newModelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List models in the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cleanup, err := openStore(activeCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			models, err := store.Models(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range models {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tngram_size=%d\n", m.Name, m.NgramSize)
			}
			return nil
		},
	}
}

func newModelStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database and per-model statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cleanup, err := openStore(activeCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "vocabulary: %d tokens, %d ngrams\n", stats.VocabSize, stats.NgramCount)
			for _, m := range stats.Models {
				ms := stats.Stats[m.ID]
				fmt.Fprintf(out, "%s\ttransitions=%d frequency=%d starters=%d\n",
					m.Name, ms.TotalTransitions, ms.TotalFrequency, ms.StartingTokens)
			}
			return nil
		},
	}
}

func newModelTrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train [file...]",
		Short: "Train the configured model on text files (or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openStore(activeCfg)
			if err != nil {
				return err
			}
			defer cleanup()
			ctx := cmd.Context()

			model, err := store.ModelByName(ctx, activeCfg.ModelName)
			if err != nil {
				model, err = store.CreateModel(ctx, activeCfg.ModelName, activeCfg.NgramSize)
				if err != nil {
					return err
				}
			}

			tok, err := grammar.NewSentenceTokenizer(activeCfg.Tokenizer)
			if err != nil {
				return err
			}

			train := func(text string) error {
				return store.Train(ctx, model, tok.Tokenize(grammar.CleanInput(text)))
			}

			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				return train(string(data))
			}
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				if err := train(string(data)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newModelPruneCmd() *cobra.Command {
	var minFreq int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop rare transitions from the configured model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cleanup, err := openStore(activeCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			model, err := store.ModelByName(cmd.Context(), activeCfg.ModelName)
			if err != nil {
				return err
			}
			return store.Prune(cmd.Context(), model, minFreq)
		},
	}
	cmd.Flags().IntVar(&minFreq, "min-freq", 1, "Remove transitions with frequency at or below this")
	return cmd
}

func newModelVocabPruneCmd() *cobra.Command {
	var minFreq int
	cmd := &cobra.Command{
		Use:   "vocab-prune",
		Short: "Drop rare tokens from the shared vocabulary (affects all models)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cleanup, err := openStore(activeCfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return store.VocabularyPrune(cmd.Context(), minFreq)
		},
	}
	cmd.Flags().IntVar(&minFreq, "min-freq", 2, "Remove tokens used fewer than this many times")
	return cmd
}

func newModelExportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the configured model as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cleanup, err := openStore(activeCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			model, err := store.ModelByName(cmd.Context(), activeCfg.ModelName)
			if err != nil {
				return err
			}

			if outPath == "" {
				return store.Export(cmd.Context(), model, cmd.OutOrStdout())
			}
			var buf bytes.Buffer
			if err := store.Export(cmd.Context(), model, &buf); err != nil {
				return err
			}
			return atomic.WriteFile(outPath, &buf)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newModelImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON model export, merging into any existing model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openStore(activeCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func(f *os.File) {
				_ = f.Close()
			}(f)
			return store.Import(cmd.Context(), f)
		},
	}
}

func newModelDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the configured model and its transitions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cleanup, err := openStore(activeCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			model, err := store.ModelByName(cmd.Context(), activeCfg.ModelName)
			if err != nil {
				return err
			}
			return store.DeleteModel(cmd.Context(), model)
		},
	}
}
