// Package gate filters extracted sources before any drafting happens. It
// drops sources already recorded in the dedup store and sources the
// collaborator judges irrelevant to the business. An empty result is a
// normal "nothing to post" outcome, not an error.
package gate

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/signalpost/signalpost/internal/dedup"
	"github.com/signalpost/signalpost/internal/llm"
	"github.com/signalpost/signalpost/internal/source"
)

const relevancePrompt = `You are screening content for a business social-media account.
Business context: %s

Answer with exactly one word, RELEVANT or IRRELEVANT, for the following content:

%s`

// Logger is the minimal logging surface the gate needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Options toggles gate behavior per workflow instance. Both flags come from
// the instance's configuration overrides and never change mid-run.
type Options struct {
	SkipDedup          bool
	SkipRelevanceCheck bool
}

// Outcome reports what the gate kept and why the rest was dropped.
type Outcome struct {
	Kept       []source.Extraction
	Duplicates []string
	Irrelevant []string
}

// Gate checks sources against the dedup store and the relevance predicate.
type Gate struct {
	store           dedup.Store
	collaborator    llm.Collaborator
	businessContext string
	logger          Logger
	// decisions caches relevance verdicts per normalized id so re-runs of
	// the same link batch don't re-query the collaborator.
	decisions *gocache.Cache
}

// New wires a gate to the dedup store and relevance collaborator.
func New(store dedup.Store, collaborator llm.Collaborator, businessContext string, logger Logger) *Gate {
	return &Gate{
		store:           store,
		collaborator:    collaborator,
		businessContext: businessContext,
		logger:          logger,
		decisions:       gocache.New(12*time.Hour, time.Hour),
	}
}

// Filter applies dedup then relevance, preserving input order. The dedup
// store is only read here; records are written by the commit stage.
func (g *Gate) Filter(ctx context.Context, extractions []source.Extraction, opts Options) (Outcome, error) {
	outcome := Outcome{}
	for _, extraction := range extractions {
		id := Normalize(extraction.SourceID)
		if !opts.SkipDedup {
			seen, err := g.store.Has(ctx, id)
			if err != nil {
				return Outcome{}, fmt.Errorf("gate: dedup lookup %s: %w", id, err)
			}
			if seen {
				outcome.Duplicates = append(outcome.Duplicates, id)
				continue
			}
		}
		if !opts.SkipRelevanceCheck && !g.relevant(ctx, id, extraction.Text) {
			outcome.Irrelevant = append(outcome.Irrelevant, id)
			continue
		}
		outcome.Kept = append(outcome.Kept, extraction)
	}
	return outcome, nil
}

// relevant asks the collaborator for a verdict. Collaborator failure keeps
// the source: the gate exists to cut noise, not to make the collaborator a
// hard availability dependency.
func (g *Gate) relevant(ctx context.Context, id, text string) bool {
	if cached, ok := g.decisions.Get(id); ok {
		return cached.(bool)
	}
	prompt := fmt.Sprintf(relevancePrompt, g.businessContext, clip(text, 4000))
	verdict, err := g.collaborator.Generate(ctx, prompt, "")
	if err != nil {
		if g.logger != nil {
			g.logger.Printf("gate: relevance check for %s failed, keeping source: %v", id, err)
		}
		return true
	}
	keep := !strings.Contains(strings.ToUpper(verdict), "IRRELEVANT")
	g.decisions.SetDefault(id, keep)
	return keep
}

// Normalize canonicalizes a source identifier for dedup purposes: scheme,
// default ports, fragments, tracking parameters, and trailing slashes do not
// distinguish sources.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	withScheme := trimmed
	if !strings.Contains(withScheme, "://") {
		withScheme = "https://" + withScheme
	}
	parsed, err := url.Parse(withScheme)
	if err != nil {
		return strings.ToLower(trimmed)
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")

	path := strings.TrimRight(parsed.EscapedPath(), "/")

	query := parsed.Query()
	for key := range query {
		lowered := strings.ToLower(key)
		if strings.HasPrefix(lowered, "utm_") || lowered == "fbclid" || lowered == "gclid" || lowered == "ref" {
			query.Del(key)
		}
	}
	encoded := query.Encode()

	id := host + path
	if encoded != "" {
		id += "?" + encoded
	}
	return id
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
