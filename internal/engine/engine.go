// Package engine sequences the workflow stages for one instance: extract,
// gate, draft, asset selection, review suspension, and the commit that
// follows an approval. All state lives in the instance store so every step
// survives process restarts.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signalpost/signalpost/internal/asset"
	"github.com/signalpost/signalpost/internal/dedup"
	"github.com/signalpost/signalpost/internal/draft"
	"github.com/signalpost/signalpost/internal/extract"
	"github.com/signalpost/signalpost/internal/gate"
	"github.com/signalpost/signalpost/internal/instance"
	"github.com/signalpost/signalpost/internal/publish"
	"github.com/signalpost/signalpost/internal/source"
)

// ErrInvalidResumeState is returned when a resume targets an instance that is
// not awaiting review. A second resume of the same instance gets this too.
var ErrInvalidResumeState = instance.ErrNotSuspended

// ErrInvalidDecision is returned for resume decisions the router cannot route.
var ErrInvalidDecision = errors.New("engine: invalid decision")

// ErrAllPlatformsFailed is returned when every configured platform rejected
// an approved post. No dedup records are written in that case.
var ErrAllPlatformsFailed = errors.New("engine: all platforms failed")

// Logger is the minimal logging surface the engine needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Engine drives instances through the workflow.
type Engine struct {
	store      instance.Store
	extractor  *extract.Executor
	gate       *gate.Gate
	drafter    *draft.Loop
	selector   *asset.Selector
	publishers []publish.Publisher
	dedup      dedup.Store
	logger     Logger
	clock      func() time.Time
}

// Option customizes the engine instance.
type Option func(*Engine)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger installs a diagnostics logger.
func WithLogger(logger Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New wires an engine to its stages and stores.
func New(store instance.Store, extractor *extract.Executor, g *gate.Gate, drafter *draft.Loop, selector *asset.Selector, publishers []publish.Publisher, dedupStore dedup.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("engine: instance store is required")
	}
	if extractor == nil || g == nil || drafter == nil {
		return nil, fmt.Errorf("engine: extract, gate, and draft stages are required")
	}
	if dedupStore == nil {
		return nil, fmt.Errorf("engine: dedup store is required")
	}
	if len(publishers) == 0 {
		return nil, fmt.Errorf("engine: at least one publisher is required")
	}
	engine := &Engine{
		store:      store,
		extractor:  extractor,
		gate:       g,
		drafter:    drafter,
		selector:   selector,
		publishers: publishers,
		dedup:      dedupStore,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Start creates a new instance for the link batch and advances it until it
// suspends for review or reaches a terminal state.
func (e *Engine) Start(ctx context.Context, links []string, overrides instance.Overrides) (instance.Instance, error) {
	trimmed := make([]string, 0, len(links))
	for _, link := range links {
		if link = strings.TrimSpace(link); link != "" {
			trimmed = append(trimmed, link)
		}
	}
	if len(trimmed) == 0 {
		return instance.Instance{}, fmt.Errorf("engine: at least one link is required")
	}

	in := instance.New(trimmed, overrides, e.clock())
	if err := e.store.Save(in); err != nil {
		return instance.Instance{}, err
	}
	e.logf("instance %s started with %d link(s)", in.ID, len(trimmed))
	return e.advance(ctx, in)
}

// Run reloads a persisted instance and advances it from its current stage.
// Used after a restart interrupted a running instance.
func (e *Engine) Run(ctx context.Context, id string) (instance.Instance, error) {
	in, err := e.store.Load(id)
	if err != nil {
		return instance.Instance{}, err
	}
	if in.Status.Terminal() || in.Suspended() {
		return in, nil
	}
	return e.advance(ctx, in)
}

// advance executes stages until the instance suspends or terminates.
func (e *Engine) advance(ctx context.Context, in instance.Instance) (instance.Instance, error) {
	for {
		var err error
		switch in.Stage {
		case instance.StageExtract:
			in, err = e.runExtract(ctx, in)
		case instance.StageGate:
			in, err = e.runGate(ctx, in)
		case instance.StageDraft:
			in, err = e.runDraft(ctx, in)
		case instance.StageAsset:
			in, err = e.runAsset(ctx, in)
		case instance.StageReview:
			return e.suspend(in)
		case instance.StageCommit:
			in, err = e.commit(ctx, in)
		default:
			return in, nil
		}
		if err != nil {
			return e.fail(in, err)
		}
		if in.Status.Terminal() {
			return in, e.store.Save(in)
		}
	}
}

func (e *Engine) runExtract(ctx context.Context, in instance.Instance) (instance.Instance, error) {
	batch := e.extractor.Run(ctx, in.Payload.Links)
	in.Payload.Extractions = batch.Extractions
	in.Payload.FailedLinks = nil
	for _, failure := range batch.Failures {
		in.Payload.FailedLinks = append(in.Payload.FailedLinks, instance.FailedLink{
			Link:   failure.Link,
			Reason: failure.Err,
		})
	}
	if batch.Empty() {
		return e.nothingToPost(in, "every extraction failed"), nil
	}
	in.Stage = instance.StageGate
	return in, e.touch(&in)
}

func (e *Engine) runGate(ctx context.Context, in instance.Instance) (instance.Instance, error) {
	outcome, err := e.gate.Filter(ctx, in.Payload.Extractions, gate.Options{
		SkipDedup:          in.Payload.Overrides.SkipDedup,
		SkipRelevanceCheck: in.Payload.Overrides.SkipRelevanceCheck,
	})
	if err != nil {
		return in, err
	}
	in.Payload.Extractions = outcome.Kept
	in.Meta.DroppedDup = len(outcome.Duplicates)
	in.Meta.DroppedIrrel = len(outcome.Irrelevant)
	if len(outcome.Kept) == 0 {
		return e.nothingToPost(in, "no sources survived the gate"), nil
	}
	in.Stage = instance.StageDraft
	return in, e.touch(&in)
}

func (e *Engine) runDraft(ctx context.Context, in instance.Instance) (instance.Instance, error) {
	in.Payload.Report = composeReport(in.Payload.Extractions)
	result, err := e.drafter.Run(ctx, in.Payload.Report)
	if err != nil {
		return in, err
	}
	in.Payload.PostText = result.Text
	in.Meta.CondenseCount = result.CondenseCount
	in.Meta.LengthOverrun = result.LengthOverrun
	in.Stage = instance.StageAsset
	return in, e.touch(&in)
}

func (e *Engine) runAsset(ctx context.Context, in instance.Instance) (instance.Instance, error) {
	in.Payload.Asset = nil
	if !in.Payload.Overrides.TextOnly && e.selector != nil {
		var candidates []source.MediaRef
		for _, extraction := range in.Payload.Extractions {
			candidates = append(candidates, extraction.Media...)
		}
		selection := e.selector.Select(ctx, candidates)
		in.Payload.Asset = selection.Asset
		in.Meta.AssetDropped = selection.Dropped
	}
	in.Stage = instance.StageReview
	return in, e.touch(&in)
}

// suspend parks the instance for human review.
func (e *Engine) suspend(in instance.Instance) (instance.Instance, error) {
	in.Status = instance.StatusSuspended
	in.StatusNote = "awaiting review"
	in.UpdatedAt = e.clock()
	if err := e.store.Save(in); err != nil {
		return in, err
	}
	e.logf("instance %s suspended for review", in.ID)
	return in, nil
}

// Resume claims a suspended instance and routes the reviewer's decision.
// Approve commits, edit revalidates the replacement text and re-suspends,
// reject terminates without side effects.
func (e *Engine) Resume(ctx context.Context, id string, resolution instance.Resolution) (instance.Instance, error) {
	if !resolution.Decision.Valid() {
		return instance.Instance{}, fmt.Errorf("%w: %q", ErrInvalidDecision, resolution.Decision)
	}
	in, err := e.store.ClaimResume(id, e.clock())
	if err != nil {
		return instance.Instance{}, err
	}
	in.Payload.Resolution = &resolution
	e.logf("instance %s resumed with decision %s", in.ID, resolution.Decision)

	switch resolution.Decision {
	case instance.DecisionReject:
		in.Stage = instance.StageDone
		in.Status = instance.StatusRejected
		in.StatusNote = "rejected by reviewer"
		in.UpdatedAt = e.clock()
		return in, e.store.Save(in)

	case instance.DecisionEdit:
		return e.applyEdit(ctx, in, resolution)

	case instance.DecisionApprove:
		applyReviewOverrides(&in, resolution)
		in.Stage = instance.StageCommit
		in.Status = instance.StatusRunning
		in.StatusNote = ""
		if err := e.touch(&in); err != nil {
			return in, err
		}
		return e.advance(ctx, in)
	}
	return in, fmt.Errorf("%w: %q", ErrInvalidDecision, resolution.Decision)
}

// applyEdit installs the reviewer's replacement text and suspends again.
// Edited text goes through the length re-check only; a regenerate request
// drafts fresh from the report instead.
func (e *Engine) applyEdit(ctx context.Context, in instance.Instance, resolution instance.Resolution) (instance.Instance, error) {
	applyReviewOverrides(&in, resolution)
	switch {
	case resolution.Regenerate:
		result, err := e.drafter.Run(ctx, in.Payload.Report)
		if err != nil {
			return e.fail(in, err)
		}
		in.Payload.PostText = result.Text
		in.Meta.CondenseCount = result.CondenseCount
		in.Meta.LengthOverrun = result.LengthOverrun
	case strings.TrimSpace(resolution.EditedText) != "":
		result, err := e.drafter.Revalidate(ctx, strings.TrimSpace(resolution.EditedText))
		if err != nil {
			return e.fail(in, err)
		}
		in.Payload.PostText = result.Text
		in.Meta.CondenseCount = result.CondenseCount
		in.Meta.LengthOverrun = result.LengthOverrun
	}
	in.Stage = instance.StageReview
	return e.suspend(in)
}

// commit publishes to every platform, then records processed sources.
// Meta.Published is persisted before any dedup write so an interrupted
// commit is distinguishable from one that never published.
func (e *Engine) commit(ctx context.Context, in instance.Instance) (instance.Instance, error) {
	post := publish.Post{
		Text:       in.Payload.PostText,
		Asset:      in.Payload.Asset,
		Account:    in.Payload.Overrides.TargetAccount,
		ScheduleAt: in.Payload.Overrides.ScheduleTime,
	}
	now := e.clock()
	results := publish.All(ctx, e.publishers, post, now)
	in.Payload.Results = results

	delivered := 0
	for _, result := range results {
		if result.OK {
			delivered++
		}
	}
	if delivered == 0 {
		return in, ErrAllPlatformsFailed
	}

	in.Meta.Published = true
	if err := e.touch(&in); err != nil {
		return in, err
	}

	for _, extraction := range in.Payload.Extractions {
		if err := e.dedup.Put(ctx, gate.Normalize(extraction.SourceID), now); err != nil {
			return in, fmt.Errorf("engine: record processed source: %w", err)
		}
	}
	in.Meta.DedupRecorded = true
	in.Stage = instance.StageDone
	in.Status = instance.StatusCommitted
	if delivered < len(results) {
		in.StatusNote = fmt.Sprintf("partial publish: %d/%d platform(s)", delivered, len(results))
	} else {
		in.StatusNote = fmt.Sprintf("published to %d platform(s)", delivered)
	}
	in.UpdatedAt = e.clock()
	e.logf("instance %s committed: %s", in.ID, in.StatusNote)
	return in, nil
}

func (e *Engine) nothingToPost(in instance.Instance, note string) instance.Instance {
	in.Stage = instance.StageDone
	in.Status = instance.StatusNothingToPost
	in.StatusNote = note
	in.UpdatedAt = e.clock()
	e.logf("instance %s finished: %s", in.ID, note)
	return in
}

// fail marks the instance failed (or canceled, when the cause is context
// cancellation) and persists the note before returning the original error.
func (e *Engine) fail(in instance.Instance, cause error) (instance.Instance, error) {
	in.Status = instance.StatusFailed
	if errors.Is(cause, context.Canceled) {
		in.Status = instance.StatusCanceled
	}
	in.StatusNote = cause.Error()
	in.UpdatedAt = e.clock()
	if saveErr := e.store.Save(in); saveErr != nil {
		return in, errors.Join(cause, saveErr)
	}
	e.logf("instance %s failed: %v", in.ID, cause)
	return in, cause
}

func (e *Engine) touch(in *instance.Instance) error {
	in.UpdatedAt = e.clock()
	return e.store.Save(*in)
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

func applyReviewOverrides(in *instance.Instance, resolution instance.Resolution) {
	if resolution.Account != "" {
		in.Payload.Overrides.TargetAccount = resolution.Account
	}
	if resolution.ScheduleAt != nil {
		in.Payload.Overrides.ScheduleTime = resolution.ScheduleAt
	}
	if resolution.DropAsset {
		in.Payload.Asset = nil
	}
}

// composeReport flattens the kept extractions into the drafting context.
func composeReport(extractions []source.Extraction) string {
	var b strings.Builder
	for i, extraction := range extractions {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n%s", extraction.SourceID, extraction.Text)
	}
	return b.String()
}
