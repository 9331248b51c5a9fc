package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/growex/quotebot/internal/domain"
	"github.com/growex/quotebot/internal/ports"
)

// Analytics is the lead recorder and aggregate view over the raw event
// stream. Writes from concurrent user sessions are serialized here so rolling
// aggregates never lose updates; reads recompute windows from raw timestamps.
type Analytics struct {
	mu     sync.Mutex
	log    ports.EventLog
	clock  ports.Clock
	logger *slog.Logger
}

func NewAnalytics(log ports.EventLog, clock ports.Clock, logger *slog.Logger) *Analytics {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{log: log, clock: clock, logger: logger}
}

func (a *Analytics) RecordCalculation(ctx context.Context, record domain.CalculationRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	event := domain.AnalyticsEvent{
		Type:      domain.EventCalculation,
		Timestamp: record.Timestamp,
		UserID:    record.UserID,
		City:      record.Cargo.City,
		Cargo:     record.Cargo.Description,
	}
	if record.Cargo.Volume != nil {
		event.Volume = *record.Cargo.Volume
	}

	if err := a.log.AppendEvent(ctx, event); err != nil {
		return fmt.Errorf("append calculation event: %w", err)
	}
	return nil
}

func (a *Analytics) RecordLead(ctx context.Context, lead domain.Lead) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	event := domain.AnalyticsEvent{
		Type:      domain.EventLead,
		Timestamp: lead.Timestamp,
		UserID:    lead.UserID,
		City:      lead.Cargo.City,
		Cargo:     cargoCategory(lead.Cargo),
	}

	if err := a.log.AppendEvent(ctx, event); err != nil {
		return fmt.Errorf("append lead event: %w", err)
	}
	if err := a.log.AppendRecentLead(ctx, lead); err != nil {
		return fmt.Errorf("append recent lead: %w", err)
	}
	return nil
}

func (a *Analytics) RecordUpload(ctx context.Context, upload domain.UploadRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	event := domain.AnalyticsEvent{
		Type:      domain.EventUpload,
		Timestamp: upload.Timestamp,
		UserID:    upload.UserID,
	}

	if err := a.log.AppendEvent(ctx, event); err != nil {
		return fmt.Errorf("append upload event: %w", err)
	}
	if err := a.log.AppendRecentUpload(ctx, upload); err != nil {
		return fmt.Errorf("append recent upload: %w", err)
	}
	return nil
}

// RecordIncomplete tags an abandoned session with its last-reached step. It
// is best-effort by contract; callers log and move on when it fails.
func (a *Analytics) RecordIncomplete(ctx context.Context, sample domain.IncompleteSample) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.log.AppendIncomplete(ctx, sample); err != nil {
		return fmt.Errorf("append incomplete sample: %w", err)
	}
	return nil
}

// Snapshot aggregates the raw stream for one window as of now.
func (a *Analytics) Snapshot(ctx context.Context, window domain.Window) (domain.AggregateSnapshot, error) {
	if !window.Valid() {
		return domain.AggregateSnapshot{}, fmt.Errorf("unsupported analytics window %q", window)
	}

	events, err := a.log.Events(ctx)
	if err != nil {
		return domain.AggregateSnapshot{}, fmt.Errorf("load analytics events: %w", err)
	}

	now := a.clock.Now()
	snapshot := domain.AggregateSnapshot{
		Window:     window,
		Cities:     map[string]int{},
		CargoTypes: map[string]int{},
	}

	for _, event := range events {
		if !window.Contains(event.Timestamp, now) {
			continue
		}
		switch event.Type {
		case domain.EventCalculation:
			snapshot.Calculations++
			if event.City != "" {
				snapshot.Cities[event.City]++
			}
			snapshot.TotalVolume += event.Volume
		case domain.EventLead:
			snapshot.Leads++
			if event.Cargo != "" {
				snapshot.CargoTypes[event.Cargo]++
			}
		case domain.EventUpload:
			snapshot.Uploads++
		}
	}

	if snapshot.Calculations > 0 {
		snapshot.AverageVolume = snapshot.TotalVolume / float64(snapshot.Calculations)
		snapshot.ConversionRate = float64(snapshot.Leads) / float64(snapshot.Calculations) * 100
	}

	return snapshot, nil
}

// IncompleteStats buckets abandoned sessions by last-reached step for every
// window. Samples past the 90-day retention ceiling are ignored outright even
// in the all-time bucket.
func (a *Analytics) IncompleteStats(ctx context.Context) (map[domain.Window]domain.FunnelSnapshot, error) {
	samples, err := a.log.IncompleteSamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("load incomplete samples: %w", err)
	}

	now := a.clock.Now()
	stats := make(map[domain.Window]domain.FunnelSnapshot, 4)
	for _, window := range domain.Windows() {
		stats[window] = domain.FunnelSnapshot{Window: window, BySteps: map[domain.Step]int{}}
	}

	for _, sample := range samples {
		if !domain.WindowQuarterly.Contains(sample.Timestamp, now) {
			continue
		}
		for _, window := range domain.Windows() {
			if !window.Contains(sample.Timestamp, now) {
				continue
			}
			snapshot := stats[window]
			snapshot.Total++
			snapshot.BySteps[sample.Step]++
			stats[window] = snapshot
		}
	}

	return stats, nil
}

func (a *Analytics) RecentLeads(ctx context.Context, n int) ([]domain.Lead, error) {
	return a.log.RecentLeads(ctx, n)
}

func (a *Analytics) RecentUploads(ctx context.Context, n int) ([]domain.UploadRecord, error) {
	return a.log.RecentUploads(ctx, n)
}

func cargoCategory(cargo domain.CargoSpec) string {
	if cargo.Description != "" {
		return cargo.Description
	}
	return "unspecified"
}
