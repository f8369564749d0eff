package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/signalpost/signalpost/internal/source"
)

func newTestExecutor(t *testing.T, extractor source.Extractor, opts ...Option) *Executor {
	t.Helper()
	registry := source.NewRegistry(extractor)
	return New(source.NewRouter(), registry, opts...)
}

func TestRunPreservesInputOrder(t *testing.T) {
	// Later links finish first; aggregation must still follow input order.
	extractor := source.ExtractorFunc(func(ctx context.Context, link string) (source.Extraction, error) {
		if strings.HasSuffix(link, "/0") {
			time.Sleep(30 * time.Millisecond)
		}
		return source.Extraction{SourceID: link, Text: "content for " + link}, nil
	})
	executor := newTestExecutor(t, extractor)

	links := []string{
		"https://a.example/0",
		"https://b.example/1",
		"https://c.example/2",
	}
	batch := executor.Run(context.Background(), links)
	if len(batch.Extractions) != len(links) {
		t.Fatalf("expected %d extractions, got %d", len(links), len(batch.Extractions))
	}
	for i, extraction := range batch.Extractions {
		if extraction.SourceID != links[i] {
			t.Fatalf("position %d: got %s, want %s", i, extraction.SourceID, links[i])
		}
	}
}

func TestRunToleratesTaskFailure(t *testing.T) {
	extractor := source.ExtractorFunc(func(ctx context.Context, link string) (source.Extraction, error) {
		if strings.Contains(link, "broken") {
			return source.Extraction{}, errors.New("boom")
		}
		return source.Extraction{SourceID: link, Text: "ok"}, nil
	})
	executor := newTestExecutor(t, extractor)

	batch := executor.Run(context.Background(), []string{
		"https://ok.example/a",
		"https://broken.example/b",
		"https://ok.example/c",
	})
	if len(batch.Extractions) != 2 {
		t.Fatalf("expected 2 extractions, got %d", len(batch.Extractions))
	}
	if len(batch.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(batch.Failures))
	}
	if batch.Failures[0].Link != "https://broken.example/b" {
		t.Fatalf("unexpected failure record: %+v", batch.Failures[0])
	}
	if batch.Extractions[0].SourceID != "https://ok.example/a" || batch.Extractions[1].SourceID != "https://ok.example/c" {
		t.Fatalf("order broken after filtering: %+v", batch.Extractions)
	}
}

func TestRunTimeoutIsTaskLocal(t *testing.T) {
	var completed atomic.Int64
	extractor := source.ExtractorFunc(func(ctx context.Context, link string) (source.Extraction, error) {
		if strings.Contains(link, "slow") {
			select {
			case <-ctx.Done():
				return source.Extraction{}, ctx.Err()
			case <-time.After(2 * time.Second):
				return source.Extraction{SourceID: link, Text: "late"}, nil
			}
		}
		completed.Add(1)
		return source.Extraction{SourceID: link, Text: "fast"}, nil
	})
	executor := newTestExecutor(t, extractor, WithTimeout(20*time.Millisecond))

	batch := executor.Run(context.Background(), []string{
		"https://slow.example/a",
		"https://fast.example/b",
	})
	if completed.Load() != 1 {
		t.Fatalf("fast task should have completed")
	}
	if len(batch.Extractions) != 1 || batch.Extractions[0].Text != "fast" {
		t.Fatalf("expected only the fast extraction, got %+v", batch.Extractions)
	}
	if len(batch.Failures) != 1 || !strings.Contains(batch.Failures[0].Err, "context deadline exceeded") {
		t.Fatalf("expected a timeout failure, got %+v", batch.Failures)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	extractor := source.ExtractorFunc(func(ctx context.Context, link string) (source.Extraction, error) {
		return source.Extraction{}, fmt.Errorf("always fails")
	})
	executor := newTestExecutor(t, extractor)
	batch := executor.Run(context.Background(), []string{"https://a.example", "https://b.example"})
	if !batch.Empty() {
		t.Fatalf("expected empty batch")
	}
	if len(batch.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(batch.Failures))
	}
	if got := executor.Run(context.Background(), nil); !got.Empty() || got.Failures != nil {
		t.Fatalf("expected zero-value batch for no links, got %+v", got)
	}
}
