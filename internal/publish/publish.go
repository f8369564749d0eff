// Package publish delivers an approved post to the configured platforms.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/signalpost/signalpost/internal/config"
	"github.com/signalpost/signalpost/internal/source"
)

// Post is the finished artifact handed to a publisher.
type Post struct {
	Text       string           `json:"text"`
	Asset      *source.MediaRef `json:"asset,omitempty"`
	Account    string           `json:"account,omitempty"`
	ScheduleAt *time.Time       `json:"scheduleAt,omitempty"`
}

// Publisher sends a post to one platform.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, post Post) error
}

// Result records one platform's outcome. Err is a string so results
// serialize cleanly into instance state.
type Result struct {
	Platform string    `json:"platform"`
	OK       bool      `json:"ok"`
	Err      string    `json:"err,omitempty"`
	At       time.Time `json:"at"`
}

// Logger is the minimal logging surface publishers need.
type Logger interface {
	Printf(format string, args ...any)
}

// FromConfig builds a publisher per configured platform.
func FromConfig(platforms []config.PlatformConfig, logger Logger) ([]Publisher, error) {
	publishers := make([]Publisher, 0, len(platforms))
	for _, platform := range platforms {
		switch platform.Kind {
		case config.PlatformKindLog:
			publishers = append(publishers, NewLogPublisher(platform.Name, logger))
		case config.PlatformKindWebhook:
			publisher, err := NewWebhookPublisher(platform.Name, platform.WebhookURL)
			if err != nil {
				return nil, err
			}
			publishers = append(publishers, publisher)
		default:
			return nil, fmt.Errorf("publish: unknown platform kind %q for %q", platform.Kind, platform.Name)
		}
	}
	return publishers, nil
}

// All publishes to every platform and reports per-platform results. A
// failing platform never blocks the others.
func All(ctx context.Context, publishers []Publisher, post Post, now time.Time) []Result {
	results := make([]Result, 0, len(publishers))
	for _, publisher := range publishers {
		result := Result{Platform: publisher.Name(), OK: true, At: now}
		if err := publisher.Publish(ctx, post); err != nil {
			result.OK = false
			result.Err = err.Error()
		}
		results = append(results, result)
	}
	return results
}
