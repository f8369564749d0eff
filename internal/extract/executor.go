// Package extract runs one extraction task per input link concurrently and
// folds the results back into input order. A failing task never fails the
// batch; it is recorded for diagnostics and excluded from the aggregate.
package extract

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/signalpost/signalpost/internal/source"
)

// TaskFailure records an extraction task that ended in error.
type TaskFailure struct {
	Link string `json:"link"`
	Kind string `json:"kind"`
	Err  string `json:"err"`
}

// Batch is the fan-in result. Extractions preserves the order of the input
// links with failed links removed.
type Batch struct {
	Extractions []source.Extraction
	Failures    []TaskFailure
}

// Empty reports whether no task produced content.
func (b Batch) Empty() bool {
	return len(b.Extractions) == 0
}

// Logger is the minimal logging surface the executor needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Executor fans a link batch out to kind-specific extractors.
type Executor struct {
	router   *source.Router
	registry *source.Registry
	timeout  time.Duration
	logger   Logger
}

// Option customizes the executor.
type Option func(*Executor)

// WithTimeout bounds each extraction task. Zero disables the per-task bound
// (the caller's context still applies).
func WithTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		e.timeout = timeout
	}
}

// WithLogger installs a diagnostics logger.
func WithLogger(logger Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New wires an executor to a router and extractor registry.
func New(router *source.Router, registry *source.Registry, opts ...Option) *Executor {
	executor := &Executor{
		router:   router,
		registry: registry,
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor
}

type taskResult struct {
	extraction source.Extraction
	kind       source.Kind
	err        error
}

// Run extracts every link concurrently and aggregates in input order. The
// group context is deliberately not used to cancel siblings: a task failure
// is local, and every task runs to its own terminal state.
func (e *Executor) Run(ctx context.Context, links []string) Batch {
	if len(links) == 0 {
		return Batch{}
	}

	results := make([]taskResult, len(links))
	var group errgroup.Group
	for i, link := range links {
		i, link := i, link
		group.Go(func() error {
			kind := e.router.Classify(link)
			taskCtx := ctx
			if e.timeout > 0 {
				var cancel context.CancelFunc
				taskCtx, cancel = context.WithTimeout(ctx, e.timeout)
				defer cancel()
			}
			extraction, err := e.registry.Resolve(kind).Extract(taskCtx, link)
			results[i] = taskResult{extraction: extraction, kind: kind, err: err}
			return nil
		})
	}
	// Worker funcs always return nil; Wait is purely the join barrier.
	_ = group.Wait()

	batch := Batch{}
	for i, result := range results {
		if result.err != nil {
			if e.logger != nil {
				e.logger.Printf("extract: %s (%s): %v", links[i], result.kind, result.err)
			}
			batch.Failures = append(batch.Failures, TaskFailure{
				Link: links[i],
				Kind: string(result.kind),
				Err:  result.err.Error(),
			})
			continue
		}
		extraction := result.extraction
		if extraction.SourceID == "" {
			extraction.SourceID = links[i]
		}
		batch.Extractions = append(batch.Extractions, extraction)
	}
	return batch
}
