package publish

import (
	"context"
	"fmt"
)

// LogPublisher records the post in the engine log instead of sending it
// anywhere. Useful for dry runs and the default platform.
type LogPublisher struct {
	name   string
	logger Logger
}

// NewLogPublisher creates a log-backed publisher.
func NewLogPublisher(name string, logger Logger) *LogPublisher {
	return &LogPublisher{name: name, logger: logger}
}

// Name returns the platform name.
func (p *LogPublisher) Name() string { return p.name }

// Publish writes the post to the log.
func (p *LogPublisher) Publish(_ context.Context, post Post) error {
	if p.logger == nil {
		return fmt.Errorf("publish: no logger configured for platform %q", p.name)
	}
	asset := "none"
	if post.Asset != nil {
		asset = post.Asset.URL
	}
	schedule := "immediate"
	if post.ScheduleAt != nil {
		schedule = post.ScheduleAt.Format("2006-01-02 15:04")
	}
	p.logger.Printf("publish[%s] schedule=%s asset=%s text=%q", p.name, schedule, asset, post.Text)
	return nil
}
