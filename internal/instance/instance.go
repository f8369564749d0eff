// Package instance models one workflow run from intake to terminal state and
// persists it as a JSON snapshot so runs survive process restarts.
package instance

import (
	"time"

	"github.com/google/uuid"

	"github.com/signalpost/signalpost/internal/publish"
	"github.com/signalpost/signalpost/internal/source"
)

// Stage names the step the workflow executes next.
type Stage string

const (
	StageExtract Stage = "extract"
	StageGate    Stage = "gate"
	StageDraft   Stage = "draft"
	StageAsset   Stage = "asset"
	StageReview  Stage = "review"
	StageCommit  Stage = "commit"
	StageDone    Stage = "done"
)

// Status enumerates coarse instance phases.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSuspended Status = "suspended"
	StatusResuming  Status = "resuming"
	StatusCommitted Status = "committed"
	StatusRejected  Status = "rejected"
	// StatusNothingToPost is a normal terminal outcome: every candidate was
	// filtered before drafting.
	StatusNothingToPost Status = "nothing-to-post"
	StatusCanceled      Status = "canceled"
	StatusFailed        Status = "failed"
)

// Terminal reports whether the status allows no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCommitted, StatusRejected, StatusNothingToPost, StatusCanceled, StatusFailed:
		return true
	}
	return false
}

// Decision is the reviewer's verdict on a suspended instance.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionEdit    Decision = "edit"
	DecisionReject  Decision = "reject"
)

// Valid reports whether the decision is one the engine can route.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionEdit, DecisionReject:
		return true
	}
	return false
}

// Overrides carries per-run configuration switches supplied at intake or
// adjusted by the reviewer.
type Overrides struct {
	SkipDedup          bool       `json:"skipDedup,omitempty"`
	SkipRelevanceCheck bool       `json:"skipRelevanceCheck,omitempty"`
	TextOnly           bool       `json:"textOnly,omitempty"`
	TargetAccount      string     `json:"targetAccount,omitempty"`
	ScheduleTime       *time.Time `json:"scheduleTime,omitempty"`
}

// FailedLink records a source that could not be extracted. The run continues
// without it.
type FailedLink struct {
	Link   string `json:"link"`
	Reason string `json:"reason"`
}

// Resolution carries the reviewer's decision into the engine. Regenerate
// asks for a fresh draft from the report instead of revalidating EditedText.
type Resolution struct {
	Decision   Decision   `json:"decision"`
	EditedText string     `json:"editedText,omitempty"`
	Regenerate bool       `json:"regenerate,omitempty"`
	Account    string     `json:"account,omitempty"`
	ScheduleAt *time.Time `json:"scheduleAt,omitempty"`
	DropAsset  bool       `json:"dropAsset,omitempty"`
}

// Payload is the evolving workload the stages read and write.
type Payload struct {
	Links       []string            `json:"links"`
	Overrides   Overrides           `json:"overrides,omitempty"`
	Extractions []source.Extraction `json:"extractions,omitempty"`
	FailedLinks []FailedLink        `json:"failedLinks,omitempty"`
	Report      string              `json:"report,omitempty"`
	PostText    string              `json:"postText,omitempty"`
	Asset       *source.MediaRef    `json:"asset,omitempty"`
	Resolution  *Resolution         `json:"resolution,omitempty"`
	Results     []publish.Result    `json:"results,omitempty"`
}

// Meta records diagnostics a reviewer or operator may want to inspect. None
// of it affects control flow.
type Meta struct {
	CondenseCount int  `json:"condenseCount,omitempty"`
	LengthOverrun bool `json:"lengthOverrun,omitempty"`
	AssetDropped  int  `json:"assetDropped,omitempty"`
	DroppedDup    int  `json:"droppedDup,omitempty"`
	DroppedIrrel  int  `json:"droppedIrrel,omitempty"`
	// Published marks that at least one platform accepted the post. Set
	// before dedup records are written so an interrupted commit is
	// distinguishable from one that never ran.
	Published bool `json:"published,omitempty"`
	// DedupRecorded marks that processed-source records were written.
	DedupRecorded bool `json:"dedupRecorded,omitempty"`
}

// Instance is the persisted snapshot of one workflow run.
type Instance struct {
	ID         string    `json:"id"`
	Stage      Stage     `json:"stage"`
	Status     Status    `json:"status"`
	StatusNote string    `json:"statusNote,omitempty"`
	Payload    Payload   `json:"payload"`
	Meta       Meta      `json:"meta"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// New creates a fresh instance at the extract stage.
func New(links []string, overrides Overrides, now time.Time) Instance {
	return Instance{
		ID:        uuid.NewString(),
		Stage:     StageExtract,
		Status:    StatusRunning,
		Payload:   Payload{Links: cloneStrings(links), Overrides: overrides},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Suspended reports whether the instance is parked awaiting review.
func (in Instance) Suspended() bool {
	return in.Status == StatusSuspended
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
