package notification

import (
	"context"

	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

// NoOpPublisher logs rebuild summaries instead of publishing them. Use
// when SNS is not configured (local development, testing).
type NoOpPublisher struct {
	logger *observability.Logger
}

func NewNoOpPublisher(logger *observability.Logger) *NoOpPublisher {
	return &NoOpPublisher{logger: logger}
}

// PublishRebuild logs the summary. Implements RebuildPublisher.
func (p *NoOpPublisher) PublishRebuild(ctx context.Context, summary RebuildSummary) error {
	if p.logger != nil {
		p.logger.Info("list view rebuilt (SNS disabled)",
			"tunes", summary.TuneCount,
			"version", summary.Version,
			"duration_ms", summary.Duration.Milliseconds(),
			"trigger", summary.Trigger,
		)
	}
	return nil
}
