package draft

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/signalpost/signalpost/internal/llm"
)

func TestEffectiveLengthExcludesLinks(t *testing.T) {
	text := "Read this: https://a.example/very/long/path/that/would/blow/the/limit now"
	if got, want := EffectiveLength(text), len("Read this:  now"); got != want {
		t.Fatalf("EffectiveLength = %d, want %d", got, want)
	}
	if got := EffectiveLength("héllo"); got != 5 {
		t.Fatalf("rune counting broken: %d", got)
	}
}

func TestRunAcceptsFittingDraftImmediately(t *testing.T) {
	collaborator := llm.NewMock("short and sweet")
	loop := New(collaborator, 280, "", "", nil)

	result, err := loop.Run(context.Background(), "a report")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.State != StateDone || result.CondenseCount != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Text != "short and sweet" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
}

func TestRunCondensesOnceThenAccepts(t *testing.T) {
	long := strings.Repeat("x", 300)
	short := strings.Repeat("y", 260)
	collaborator := llm.NewMock(long, short)
	loop := New(collaborator, 280, "", "", nil)

	result, err := loop.Run(context.Background(), "a report")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.State != StateDone {
		t.Fatalf("expected done, got %s", result.State)
	}
	if result.CondenseCount != 1 {
		t.Fatalf("expected 1 condense, got %d", result.CondenseCount)
	}
	if result.Text != short {
		t.Fatalf("expected condensed text")
	}
}

func TestRunGivesUpAfterCeiling(t *testing.T) {
	// Every response stays over the limit.
	over := strings.Repeat("z", 300)
	collaborator := llm.NewMock(over)
	loop := New(collaborator, 280, "", "", nil)

	result, err := loop.Run(context.Background(), "a report")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.State != StateGaveUp {
		t.Fatalf("expected gave-up, got %s", result.State)
	}
	if result.CondenseCount != CondenseCeiling {
		t.Fatalf("expected exactly %d condense attempts, got %d", CondenseCeiling, result.CondenseCount)
	}
	if !result.LengthOverrun {
		t.Fatalf("gave-up result must be flagged as over-length")
	}
	if result.Text == "" {
		t.Fatalf("gave-up must still carry a candidate")
	}
	// 1 draft + 3 condense calls, never more.
	if calls := collaborator.GenerateCalls(); calls != 1+CondenseCeiling {
		t.Fatalf("expected %d collaborator calls, got %d", 1+CondenseCeiling, calls)
	}
}

func TestRunKeepsLongestCandidateWhenGivingUp(t *testing.T) {
	responses := []string{
		strings.Repeat("a", 400), // draft
		strings.Repeat("b", 300), // condense 1
		strings.Repeat("c", 350), // condense 2
		strings.Repeat("d", 390), // condense 3
	}
	collaborator := llm.NewMock(responses...)
	loop := New(collaborator, 280, "", "", nil)

	result, err := loop.Run(context.Background(), "a report")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.State != StateGaveUp {
		t.Fatalf("expected gave-up, got %s", result.State)
	}
	if result.Text != responses[0] {
		t.Fatalf("expected the longest candidate to win, got %d chars", len(result.Text))
	}
}

// condenseFailer produces one over-length draft and errors on every
// subsequent call.
type condenseFailer struct {
	draft string
	calls int
}

func (c *condenseFailer) Generate(ctx context.Context, prompt, contextText string) (string, error) {
	c.calls++
	if c.calls == 1 {
		return c.draft, nil
	}
	return "", errors.New("model down")
}

func (c *condenseFailer) Rank(ctx context.Context, instruction string, candidates []string) ([]int, error) {
	return nil, errors.New("model down")
}

func TestRunCondenseFailureCountsAgainstCeiling(t *testing.T) {
	over := strings.Repeat("q", 300)
	collaborator := &condenseFailer{draft: over}
	loop := New(collaborator, 280, "", "", nil)

	result, err := loop.Run(context.Background(), "a report")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.State != StateGaveUp || result.Text != over {
		t.Fatalf("expected gave-up with the draft candidate, got %+v", result)
	}
	if collaborator.calls != 1+CondenseCeiling {
		t.Fatalf("failed condenses must still count toward the ceiling, got %d calls", collaborator.calls)
	}
}

func TestRunFailsWithoutAnyCandidate(t *testing.T) {
	collaborator := llm.NewMock()
	collaborator.Err = errors.New("model down")
	loop := New(collaborator, 280, "", "", nil)

	if _, err := loop.Run(context.Background(), "a report"); err == nil {
		t.Fatalf("expected error when generation never produced a candidate")
	}
	if _, err := loop.Run(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty report")
	}
}

func TestRevalidateSkipsGeneration(t *testing.T) {
	collaborator := llm.NewMock()
	loop := New(collaborator, 280, "", "", nil)

	result, err := loop.Revalidate(context.Background(), "hand-edited text")
	if err != nil {
		t.Fatalf("revalidate: %v", err)
	}
	if result.State != StateDone {
		t.Fatalf("expected done, got %s", result.State)
	}
	if calls := collaborator.GenerateCalls(); calls != 0 {
		t.Fatalf("revalidate of fitting text must not call the collaborator, got %d calls", calls)
	}
}
