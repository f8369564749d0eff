package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v58/github"
)

// RepoExtractor reads a code repository's description and README through the
// GitHub API. GitLab links fall back to the web extractor via the registry,
// so this adapter only needs to understand github.com paths.
type RepoExtractor struct {
	client   *github.Client
	fallback Extractor
}

// NewRepoExtractor creates a repository extractor. An empty token uses
// unauthenticated API limits; fallback handles non-GitHub repo hosts and may
// be nil.
func NewRepoExtractor(token string, fallback Extractor) *RepoExtractor {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &RepoExtractor{client: client, fallback: fallback}
}

// Extract implements Extractor.
func (r *RepoExtractor) Extract(ctx context.Context, link string) (Extraction, error) {
	owner, name, ok := splitRepoPath(link)
	if !ok {
		if r.fallback != nil {
			return r.fallback.Extract(ctx, link)
		}
		return Extraction{}, fmt.Errorf("source: %s is not a github repository link", link)
	}

	repo, _, err := r.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return Extraction{}, fmt.Errorf("source: fetch repo %s/%s: %w", owner, name, err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s/%s", owner, name)
	if desc := repo.GetDescription(); desc != "" {
		fmt.Fprintf(&text, ": %s", desc)
	}
	if lang := repo.GetLanguage(); lang != "" {
		fmt.Fprintf(&text, " (%s, %d stars)", lang, repo.GetStargazersCount())
	}
	text.WriteString("\n\n")

	readme, _, err := r.client.Repositories.GetReadme(ctx, owner, name, nil)
	if err == nil {
		content, decodeErr := readme.GetContent()
		if decodeErr == nil {
			text.WriteString(content)
		}
	}

	return Extraction{
		SourceID: link,
		Text:     strings.TrimSpace(text.String()),
	}, nil
}

func splitRepoPath(link string) (owner, name string, ok bool) {
	trimmed := strings.TrimSpace(link)
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", "", false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if host != "github.com" {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), true
}
