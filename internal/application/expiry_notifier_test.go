package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growex/quotebot/internal/domain"
)

func newExpiryFixture(t *testing.T, now time.Time, directValidUntil, hubValidUntil *time.Time) (*ExpiryNotifier, *recordingNotifier, *memNotificationHistory, *fakeClock) {
	t.Helper()

	repo := newMemTariffRepo()
	repo.tables[domain.TariffDirect] = domain.RateTable{
		Entries:    map[string]map[int]float64{"Москва": {1: 50}},
		ValidUntil: directValidUntil,
	}
	repo.tables[domain.TariffHub] = domain.RateTable{
		Entries:    map[string]map[int]float64{domain.HubLocationKey: {1: 30}},
		ValidUntil: hubValidUntil,
	}

	clock := newFakeClock(now)
	tariffs := newTestTariffStore(t, repo, clock)
	notifier := newRecordingNotifier()
	history := newMemNotificationHistory()

	return NewExpiryNotifier(tariffs, history, notifier, clock, nil, DefaultWarningDays), notifier, history, clock
}

func datePtr(t time.Time) *time.Time { return &t }

func TestCheckNowEmitsWarningInsideWindow(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	notifier, sink, _, _ := newExpiryFixture(t, now, datePtr(now.AddDate(0, 0, 5)), nil)

	_, err := notifier.CheckNow(context.Background())
	require.NoError(t, err)

	notifications := sink.All()
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.SeverityWarning, notifications[0].Severity)
	assert.Contains(t, notifications[0].Body, "expires in 5 day(s)")
}

func TestCheckNowExpiresTodayWording(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	notifier, sink, _, _ := newExpiryFixture(t, now, datePtr(now), nil)

	_, err := notifier.CheckNow(context.Background())
	require.NoError(t, err)

	notifications := sink.All()
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Body, "expires TODAY")
}

func TestCheckNowEmitsCriticalWhenExpired(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	notifier, sink, _, _ := newExpiryFixture(t, now, datePtr(now.AddDate(0, 0, -3)), nil)

	report, err := notifier.CheckNow(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Direct.Expired)

	notifications := sink.All()
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.SeverityCritical, notifications[0].Severity)
	assert.Contains(t, notifications[0].Body, "expired 3 day(s) ago")
}

func TestCheckNowSilentOutsideWindow(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	notifier, sink, _, _ := newExpiryFixture(t, now, datePtr(now.AddDate(0, 0, 30)), nil)

	_, err := notifier.CheckNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sink.All())
}

func TestCheckNowSilentWithoutDeadline(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	notifier, sink, _, _ := newExpiryFixture(t, now, nil, nil)

	_, err := notifier.CheckNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sink.All())
}

func TestCheckNowAtMostOncePerDay(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	notifier, sink, _, clock := newExpiryFixture(t, now, datePtr(now.AddDate(0, 0, 2)), nil)

	ctx := context.Background()
	_, err := notifier.CheckNow(ctx)
	require.NoError(t, err)
	_, err = notifier.CheckNow(ctx)
	require.NoError(t, err)
	require.Len(t, sink.All(), 1, "second run the same day must stay silent")

	// The next calendar day fires again.
	clock.Advance(24 * time.Hour)
	_, err = notifier.CheckNow(ctx)
	require.NoError(t, err)
	assert.Len(t, sink.All(), 2)
}

func TestCheckNowPrunesHistoryEvenWhenNothingFires(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	notifier, sink, history, _ := newExpiryFixture(t, now, datePtr(now.AddDate(0, 1, 0)), nil)

	stale := domain.NewNotificationKey(domain.TariffDirect, domain.ConditionExpiring, now.AddDate(0, 0, -45))
	require.NoError(t, history.MarkSent(context.Background(), stale))

	_, err := notifier.CheckNow(context.Background())
	require.NoError(t, err)

	assert.Empty(t, sink.All(), "deadline a month out fires nothing")
	assert.Equal(t, 1, history.prunes)

	sent, err := history.WasSent(context.Background(), stale)
	require.NoError(t, err)
	assert.False(t, sent, "stale entry removed by the per-run prune")
}

func TestCheckNowMarksDayEvenWhenDeliveryFails(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	notifier, sink, history, _ := newExpiryFixture(t, now, datePtr(now.AddDate(0, 0, 2)), nil)
	sink.failWith = errBoom

	ctx := context.Background()
	_, err := notifier.CheckNow(ctx)
	require.NoError(t, err, "delivery failure is swallowed")
	assert.Equal(t, 1, history.markings)

	// Do not retry within the day: a flaky channel must not alert-storm.
	_, err = notifier.CheckNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, history.markings)
}

func TestCheckNowCoversBothTables(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	notifier, sink, _, _ := newExpiryFixture(t, now,
		datePtr(now.AddDate(0, 0, 3)),
		datePtr(now.AddDate(0, 0, -1)),
	)

	_, err := notifier.CheckNow(context.Background())
	require.NoError(t, err)

	notifications := sink.All()
	require.Len(t, notifications, 2)
	severities := []domain.Severity{notifications[0].Severity, notifications[1].Severity}
	assert.Contains(t, severities, domain.SeverityWarning)
	assert.Contains(t, severities, domain.SeverityCritical)
}
