// Package draft runs the bounded generate/validate/condense loop that turns
// a content report into post text fitting the platform length constraint.
package draft

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/signalpost/signalpost/internal/llm"
)

// State names a position in the loop's state machine.
type State string

const (
	StateDraft    State = "draft"
	StateValidate State = "validate"
	StateCondense State = "condense"
	StateDone     State = "done"
	StateGaveUp   State = "gave-up"
)

// CondenseCeiling caps condense attempts per instance. After the ceiling the
// loop proceeds with the best candidate rather than blocking on length.
const CondenseCeiling = 3

const draftPrompt = `Write a social media post for the business described below, based on the content report.
Keep it under %d characters (links do not count). Voice: %s

Business context: %s

Content report:
%s`

const condensePrompt = `Shorten the following social media post to under %d characters (links do not count).
Preserve the meaning and any links exactly.

%s`

var linkPattern = regexp.MustCompile(`https?://\S+`)

// Logger is the minimal logging surface the loop needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Result is the loop's terminal outcome. State is always StateDone or
// StateGaveUp; LengthOverrun marks the gave-up case so it stays observable
// downstream.
type Result struct {
	Text          string
	State         State
	CondenseCount int
	LengthOverrun bool
}

// Loop drives the draft/condense state machine.
type Loop struct {
	collaborator    llm.Collaborator
	lengthLimit     int
	style           string
	businessContext string
	logger          Logger
}

// New creates a loop bounded by the given length limit.
func New(collaborator llm.Collaborator, lengthLimit int, style, businessContext string, logger Logger) *Loop {
	if lengthLimit <= 0 {
		lengthLimit = 280
	}
	if style == "" {
		style = "plain, direct, no hashtags"
	}
	return &Loop{
		collaborator:    collaborator,
		lengthLimit:     lengthLimit,
		style:           style,
		businessContext: businessContext,
		logger:          logger,
	}
}

// Run generates a candidate from the report and condenses until it fits or
// the ceiling is reached. With no report text at all, generation cannot
// proceed and the error surfaces to the caller.
func (l *Loop) Run(ctx context.Context, report string) (Result, error) {
	if strings.TrimSpace(report) == "" {
		return Result{}, fmt.Errorf("draft: empty report")
	}

	prompt := fmt.Sprintf(draftPrompt, l.lengthLimit, l.style, l.businessContext, report)
	candidate, err := l.collaborator.Generate(ctx, prompt, "")
	if err != nil {
		return Result{}, fmt.Errorf("draft: generate: %w", err)
	}
	return l.validate(ctx, candidate, 0)
}

// Revalidate re-enters the machine at Validate with an externally edited
// candidate; no generation call is made first.
func (l *Loop) Revalidate(ctx context.Context, candidate string) (Result, error) {
	if strings.TrimSpace(candidate) == "" {
		return Result{}, fmt.Errorf("draft: empty candidate")
	}
	return l.validate(ctx, candidate, 0)
}

// validate walks Validate -> Condense -> Validate until Done or GaveUp. When
// the ceiling is hit the longest candidate seen is accepted anyway, leaving
// the fullest text for the reviewer to trim.
func (l *Loop) validate(ctx context.Context, candidate string, condenses int) (Result, error) {
	longest := candidate
	for {
		if EffectiveLength(candidate) <= l.lengthLimit {
			return Result{Text: candidate, State: StateDone, CondenseCount: condenses}, nil
		}
		if condenses >= CondenseCeiling {
			if l.logger != nil {
				l.logger.Printf("draft: still %d effective chars after %d condense attempts, proceeding over-length",
					EffectiveLength(longest), condenses)
			}
			return Result{Text: longest, State: StateGaveUp, CondenseCount: condenses, LengthOverrun: true}, nil
		}

		shortened, err := l.collaborator.Generate(ctx, fmt.Sprintf(condensePrompt, l.lengthLimit, candidate), "")
		condenses++
		if err != nil {
			if l.logger != nil {
				l.logger.Printf("draft: condense attempt %d failed: %v", condenses, err)
			}
			continue
		}
		candidate = shortened
		if EffectiveLength(candidate) > EffectiveLength(longest) {
			longest = candidate
		}
	}
}

// EffectiveLength counts the candidate's runes with embedded links excluded,
// matching platforms that do not charge links against the limit.
func EffectiveLength(text string) int {
	stripped := linkPattern.ReplaceAllString(text, "")
	return utf8.RuneCountInString(stripped)
}
