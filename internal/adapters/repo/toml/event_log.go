package toml

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/growex/quotebot/internal/domain"
	"github.com/growex/quotebot/internal/ports"
)

const (
	eventsFileName        = "events.toml"
	notificationsFileName = "notifications.toml"

	recentLeadCapKey   = "analytics.recent_leads"
	recentUploadCapKey = "analytics.recent_uploads"

	defaultRecentLeadCap   = 100
	defaultRecentUploadCap = 3
)

// EventLog persists the analytics journal as a single TOML file: the raw
// event stream, the bounded recent-lead and recent-upload views, and the
// incomplete-session samples. Appends rewrite the file atomically under the
// per-path lock.
type EventLog struct {
	path  string
	clock ports.Clock

	leadCap   int
	uploadCap int
}

var _ ports.EventLog = (*EventLog)(nil)

func NewEventLog(cfg *viper.Viper, clock ports.Clock) (*EventLog, error) {
	dataDir, err := resolveDataDir(cfg)
	if err != nil {
		return nil, err
	}

	cfg.SetDefault(recentLeadCapKey, defaultRecentLeadCap)
	cfg.SetDefault(recentUploadCapKey, defaultRecentUploadCap)

	return &EventLog{
		path:      filepath.Join(dataDir, eventsFileName),
		clock:     clock,
		leadCap:   cfg.GetInt(recentLeadCapKey),
		uploadCap: cfg.GetInt(recentUploadCapKey),
	}, nil
}

func (l *EventLog) AppendEvent(ctx context.Context, event domain.AnalyticsEvent) error {
	return l.update(ctx, func(file *eventsFileSchema) {
		file.Events = append(file.Events, eventToSchema(event))
	})
}

func (l *EventLog) Events(ctx context.Context) ([]domain.AnalyticsEvent, error) {
	file, err := l.read(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]domain.AnalyticsEvent, 0, len(file.Events))
	for _, entry := range file.Events {
		events = append(events, eventFromSchema(entry))
	}
	return events, nil
}

func (l *EventLog) AppendRecentLead(ctx context.Context, lead domain.Lead) error {
	return l.update(ctx, func(file *eventsFileSchema) {
		file.RecentLeads = append(file.RecentLeads, leadToSchema(lead))
		if excess := len(file.RecentLeads) - l.leadCap; excess > 0 {
			file.RecentLeads = file.RecentLeads[excess:]
		}
	})
}

func (l *EventLog) RecentLeads(ctx context.Context, n int) ([]domain.Lead, error) {
	file, err := l.read(ctx)
	if err != nil {
		return nil, err
	}

	entries := file.RecentLeads
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	leads := make([]domain.Lead, 0, len(entries))
	for _, entry := range entries {
		leads = append(leads, leadFromSchema(entry))
	}
	return leads, nil
}

func (l *EventLog) AppendRecentUpload(ctx context.Context, upload domain.UploadRecord) error {
	return l.update(ctx, func(file *eventsFileSchema) {
		file.RecentUploads = append(file.RecentUploads, uploadToSchema(upload))
		if excess := len(file.RecentUploads) - l.uploadCap; excess > 0 {
			file.RecentUploads = file.RecentUploads[excess:]
		}
	})
}

func (l *EventLog) RecentUploads(ctx context.Context, n int) ([]domain.UploadRecord, error) {
	file, err := l.read(ctx)
	if err != nil {
		return nil, err
	}

	entries := file.RecentUploads
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	uploads := make([]domain.UploadRecord, 0, len(entries))
	for _, entry := range entries {
		uploads = append(uploads, uploadFromSchema(entry))
	}
	return uploads, nil
}

func (l *EventLog) AppendIncomplete(ctx context.Context, sample domain.IncompleteSample) error {
	now := l.clock.Now()
	return l.update(ctx, func(file *eventsFileSchema) {
		kept := file.Incomplete[:0]
		for _, entry := range file.Incomplete {
			if domain.WindowQuarterly.Contains(parseTime(entry.Timestamp), now) {
				kept = append(kept, entry)
			}
		}
		file.Incomplete = append(kept, incompleteToSchema(sample))
	})
}

func (l *EventLog) IncompleteSamples(ctx context.Context) ([]domain.IncompleteSample, error) {
	file, err := l.read(ctx)
	if err != nil {
		return nil, err
	}

	samples := make([]domain.IncompleteSample, 0, len(file.Incomplete))
	for _, entry := range file.Incomplete {
		samples = append(samples, incompleteFromSchema(entry))
	}
	return samples, nil
}

func (l *EventLog) read(ctx context.Context) (eventsFileSchema, error) {
	if err := ctx.Err(); err != nil {
		return eventsFileSchema{}, err
	}

	lock := lockForPath(l.path)
	lock.RLock()
	defer lock.RUnlock()

	var file eventsFileSchema
	if err := readFile(l.path, &file); err != nil {
		return eventsFileSchema{}, err
	}
	if err := file.validateVersion(); err != nil {
		return eventsFileSchema{}, err
	}
	return file, nil
}

func (l *EventLog) update(ctx context.Context, mutate func(*eventsFileSchema)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := lockForPath(l.path)
	lock.Lock()
	defer lock.Unlock()

	var file eventsFileSchema
	if err := readFile(l.path, &file); err != nil {
		return err
	}
	if err := file.validateVersion(); err != nil {
		return err
	}

	mutate(&file)
	file.Version = currentEventsSchemaVersion

	return writeFile(l.path, file)
}

// NotificationHistory records which expiry notifications already went out,
// keyed by table, condition, and calendar day. Entries more than 30 days old
// are dropped by Prune, and marking a key discards anything that far behind
// the key's own day.
type NotificationHistory struct {
	path string
}

var _ ports.NotificationHistory = (*NotificationHistory)(nil)

const notificationRetentionDays = 30

func NewNotificationHistory(cfg *viper.Viper) (*NotificationHistory, error) {
	dataDir, err := resolveDataDir(cfg)
	if err != nil {
		return nil, err
	}
	return &NotificationHistory{path: filepath.Join(dataDir, notificationsFileName)}, nil
}

func (h *NotificationHistory) WasSent(ctx context.Context, key domain.NotificationKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	lock := lockForPath(h.path)
	lock.RLock()
	defer lock.RUnlock()

	var file notificationsFileSchema
	if err := readFile(h.path, &file); err != nil {
		return false, err
	}
	if err := file.validateVersion(); err != nil {
		return false, err
	}

	for _, entry := range file.Sent {
		if entry.matches(key) {
			return true, nil
		}
	}
	return false, nil
}

func (h *NotificationHistory) MarkSent(ctx context.Context, key domain.NotificationKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := lockForPath(h.path)
	lock.Lock()
	defer lock.Unlock()

	var file notificationsFileSchema
	if err := readFile(h.path, &file); err != nil {
		return err
	}
	if err := file.validateVersion(); err != nil {
		return err
	}

	file.Sent = pruneSentEntries(file.Sent, key.Day)

	for _, entry := range file.Sent {
		if entry.matches(key) {
			return nil
		}
	}
	file.Sent = append(file.Sent, sentEntrySchema{
		Table:     string(key.Table),
		Condition: string(key.Condition),
		Day:       key.Day,
	})
	file.Version = currentEventsSchemaVersion

	return writeFile(h.path, file)
}

func (h *NotificationHistory) Prune(ctx context.Context, relativeTo time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := lockForPath(h.path)
	lock.Lock()
	defer lock.Unlock()

	var file notificationsFileSchema
	if err := readFile(h.path, &file); err != nil {
		return err
	}
	if err := file.validateVersion(); err != nil {
		return err
	}

	kept := pruneSentEntries(file.Sent, relativeTo.Format(domain.NotificationDayFormat))
	if len(kept) == len(file.Sent) {
		return nil
	}
	file.Sent = kept
	file.Version = currentEventsSchemaVersion

	return writeFile(h.path, file)
}

func pruneSentEntries(entries []sentEntrySchema, relativeTo string) []sentEntrySchema {
	anchor := parseDate(relativeTo)
	if anchor == nil {
		return entries
	}

	kept := entries[:0]
	for _, entry := range entries {
		day := parseDate(entry.Day)
		if day == nil {
			continue
		}
		if anchor.Sub(*day).Hours() <= notificationRetentionDays*24 {
			kept = append(kept, entry)
		}
	}
	return kept
}
