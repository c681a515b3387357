package markov

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx, src, model := setupTrainedStore(t)

	var buf bytes.Buffer
	if err := src.Export(ctx, model, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	_, dst := setupStore(t)
	if err := dst.Import(ctx, &buf); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	imported, err := dst.ModelByName(ctx, model.Name)
	if err != nil {
		t.Fatalf("ModelByName() after import error = %v", err)
	}
	if imported.NgramSize != model.NgramSize {
		t.Errorf("imported ngram size = %d, want %d", imported.NgramSize, model.NgramSize)
	}

	srcStats, err := src.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	dstStats, err := dst.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if srcStats.Stats[model.ID].TotalFrequency != dstStats.Stats[imported.ID].TotalFrequency {
		t.Errorf("imported frequency = %d, want %d",
			dstStats.Stats[imported.ID].TotalFrequency, srcStats.Stats[model.ID].TotalFrequency)
	}

	// The imported model should generate from the same vocabulary.
	vocab := fishSentences.Vocabulary()
	sentences, err := dst.MakeSentences(ctx, imported, 5)
	if err != nil {
		t.Fatalf("MakeSentences() after import error = %v", err)
	}
	for _, words := range sentences {
		for _, word := range words {
			if _, ok := vocab[word]; !ok {
				t.Errorf("generated word %q is not in the training vocabulary", word)
			}
		}
	}
}

func TestImportMergesFrequencies(t *testing.T) {
	ctx, src, model := setupTrainedStore(t)

	var buf bytes.Buffer
	if err := src.Export(ctx, model, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	// Importing into the store it came from merges with the existing model.
	if err := src.Import(ctx, bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	stats, err := src.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Stats[model.ID].TotalFrequency != 20 {
		t.Errorf("merged frequency = %d, want 20", stats.Stats[model.ID].TotalFrequency)
	}
}

func TestImportRejectsBadNgramSize(t *testing.T) {
	_, s := setupStore(t)
	err := s.Import(context.Background(), strings.NewReader(`{"name":"bad","ngram_size":0}`))
	if err == nil {
		t.Fatal("expected an error for ngram size 0")
	}
}
