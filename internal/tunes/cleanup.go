package tunes

import (
	"context"
	"time"

	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

// CleanupMarkers reads and writes the per-user cleanup watermark on
// the user's profile document.
type CleanupMarkers interface {
	LastTunesCleanupAt(ctx context.Context, userID string) (time.Time, bool, error)
	SetLastTunesCleanupAt(ctx context.Context, userID string, t time.Time) error
}

// CleanupFunc deletes a user's personal tune records whose id is not
// in validIDs. The deletion semantics live with the user-data owner.
type CleanupFunc func(ctx context.Context, userID string, validIDs []string) error

// CurrentUserFunc reports the signed-in user, if any.
type CurrentUserFunc func() (string, bool)

// CleanupCoordinator reconciles a user's personal tune records against
// the canonical catalogue as a side effect of list-view reads. It is
// best-effort hygiene: every failure is logged and swallowed, and the
// lastTunesCleanupAt watermark keeps a pass from re-running until the
// materialized document moves forward.
type CleanupCoordinator struct {
	markers CleanupMarkers
	current CurrentUserFunc
	cleanup CleanupFunc
	logger  *observability.Logger
	metrics *observability.Metrics
}

func NewCleanupCoordinator(markers CleanupMarkers, current CurrentUserFunc, cleanup CleanupFunc, logger *observability.Logger, metrics *observability.Metrics) *CleanupCoordinator {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &CleanupCoordinator{
		markers: markers,
		current: current,
		cleanup: cleanup,
		logger:  logger,
		metrics: metrics,
	}
}

// Run reconciles the current user's records against doc. It never
// returns an error; callers on the read path must not care whether
// housekeeping happened.
func (c *CleanupCoordinator) Run(ctx context.Context, doc *ListViewDocument) {
	userID, ok := c.current()
	if !ok || userID == "" {
		return
	}
	if doc == nil || doc.LastUpdated.IsZero() {
		// Without a usable watermark on the document there is nothing
		// to compare against, so skip rather than loop every read.
		c.metrics.RecordCleanup(ctx, "skipped")
		return
	}

	marker, found, err := c.markers.LastTunesCleanupAt(ctx, userID)
	if err != nil {
		c.logger.LogWarn(ctx, "cleanup marker read failed", "user", userID, "error", err)
		c.metrics.RecordCleanup(ctx, "failed")
		return
	}
	if found && !marker.Before(doc.LastUpdated) {
		c.metrics.RecordCleanup(ctx, "skipped")
		return
	}

	validIDs := make([]string, 0, len(doc.Data))
	for _, item := range doc.Data {
		validIDs = append(validIDs, item.ID)
	}

	if err := c.cleanup(ctx, userID, validIDs); err != nil {
		c.logger.LogWarn(ctx, "user tune cleanup failed", "user", userID, "error", err)
		c.metrics.RecordCleanup(ctx, "failed")
		return
	}
	if err := c.markers.SetLastTunesCleanupAt(ctx, userID, doc.LastUpdated); err != nil {
		// The pass itself succeeded; without the marker it will just
		// run again on the next read.
		c.logger.LogWarn(ctx, "cleanup marker write failed", "user", userID, "error", err)
		c.metrics.RecordCleanup(ctx, "failed")
		return
	}

	c.logger.LogInfo(ctx, "user tune cleanup completed", "user", userID, "valid_ids", len(validIDs))
	c.metrics.RecordCleanup(ctx, "run")
}
