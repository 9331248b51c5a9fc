package ports

import (
	"context"
	"time"

	"github.com/growex/quotebot/internal/domain"
)

// EventLog is the append-only analytics backend. The raw event stream is
// unbounded so query-time windows stay exact; the recent lead/upload views
// are bounded ring logs that evict oldest-inserted first, and incomplete
// samples are held at most 90 days.
type EventLog interface {
	AppendEvent(ctx context.Context, event domain.AnalyticsEvent) error
	Events(ctx context.Context) ([]domain.AnalyticsEvent, error)

	AppendRecentLead(ctx context.Context, lead domain.Lead) error
	RecentLeads(ctx context.Context, n int) ([]domain.Lead, error)

	AppendRecentUpload(ctx context.Context, upload domain.UploadRecord) error
	RecentUploads(ctx context.Context, n int) ([]domain.UploadRecord, error)

	AppendIncomplete(ctx context.Context, sample domain.IncompleteSample) error
	IncompleteSamples(ctx context.Context) ([]domain.IncompleteSample, error)
}

// NotificationHistory backs the expiry notifier's at-most-once-per-day
// guarantee. Prune drops entries older than 30 days relative to the given
// time; the notifier calls it once per run.
type NotificationHistory interface {
	WasSent(ctx context.Context, key domain.NotificationKey) (bool, error)
	MarkSent(ctx context.Context, key domain.NotificationKey) error
	Prune(ctx context.Context, relativeTo time.Time) error
}
