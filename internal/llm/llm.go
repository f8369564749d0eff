// Package llm defines the generation/ranking collaborator contract. The
// workflow treats the collaborator as a pure function: text in, text or a
// decision out, bounded by a timeout, allowed to fail.
package llm

import (
	"context"
)

// Collaborator is the language-model surface the workflow depends on.
type Collaborator interface {
	// Generate produces text for a prompt with supporting context.
	Generate(ctx context.Context, prompt, contextText string) (string, error)
	// Rank orders candidate strings best-first and returns their indices
	// into the input slice.
	Rank(ctx context.Context, instruction string, candidates []string) ([]int, error)
}
