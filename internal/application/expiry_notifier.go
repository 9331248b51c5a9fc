package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/growex/quotebot/internal/domain"
	"github.com/growex/quotebot/internal/ports"
)

// DefaultWarningDays is how close to the deadline the warning window opens.
const DefaultWarningDays = 7

// ExpiryNotifier decides, per run, whether each table deserves a warning or a
// critical alert. The scheduler that triggers runs lives outside; this is the
// decision logic only. Each (table, condition, calendar day) emits at most
// once, however often a run is triggered within the day.
type ExpiryNotifier struct {
	tariffs  *TariffStore
	history  ports.NotificationHistory
	notifier ports.OperatorNotifier
	clock    ports.Clock
	logger   *slog.Logger

	warningDays int
}

func NewExpiryNotifier(tariffs *TariffStore, history ports.NotificationHistory, notifier ports.OperatorNotifier, clock ports.Clock, logger *slog.Logger, warningDays int) *ExpiryNotifier {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if warningDays <= 0 {
		warningDays = DefaultWarningDays
	}
	return &ExpiryNotifier{
		tariffs:     tariffs,
		history:     history,
		notifier:    notifier,
		clock:       clock,
		logger:      logger,
		warningDays: warningDays,
	}
}

// CheckNow runs one notification pass and returns the underlying report.
// Every run starts by clearing notification history older than the retention
// window, even when nothing new fires.
func (n *ExpiryNotifier) CheckNow(ctx context.Context) (domain.ExpiryReport, error) {
	report := n.tariffs.CheckExpiry()
	now := n.clock.Now()

	if err := n.history.Prune(ctx, now); err != nil {
		n.logger.Warn("notification history prune failed", "err", err)
	}

	for _, status := range report.Statuses() {
		if status.ValidUntil == nil {
			continue
		}

		switch {
		case status.DaysLeft < 0:
			key := domain.NewNotificationKey(status.Kind, domain.ConditionExpired, now)
			n.emitOnce(ctx, key, expiredNotification(status))
		case status.DaysLeft <= n.warningDays:
			key := domain.NewNotificationKey(status.Kind, domain.ConditionExpiring, now)
			n.emitOnce(ctx, key, expiringNotification(status))
		}
	}

	return report, nil
}

// emitOnce sends the notification unless the same key already fired today.
// The day mark is set after the delivery attempt regardless of its outcome,
// so a flaky channel cannot cause a same-day alert storm.
func (n *ExpiryNotifier) emitOnce(ctx context.Context, key domain.NotificationKey, notification domain.Notification) {
	sent, err := n.history.WasSent(ctx, key)
	if err != nil {
		n.logger.Warn("notification history lookup failed", "table", key.Table, "condition", key.Condition, "err", err)
	}
	if sent {
		return
	}

	if err := n.notifier.Notify(ctx, notification); err != nil {
		n.logger.Error("expiry notification delivery failed", "table", key.Table, "condition", key.Condition, "err", err)
	}

	if err := n.history.MarkSent(ctx, key); err != nil {
		n.logger.Warn("notification history update failed", "table", key.Table, "condition", key.Condition, "err", err)
	}
}

func expiringNotification(status domain.ExpiryStatus) domain.Notification {
	validUntil := status.ValidUntil.Format(domain.NotificationDayFormat)

	var body string
	if status.DaysLeft == 0 {
		body = fmt.Sprintf("The %s rate table expires TODAY (valid until %s). Upload new rates immediately.",
			status.Kind, validUntil)
	} else {
		body = fmt.Sprintf("The %s rate table expires in %d day(s), on %s. Remember to upload new rates.",
			status.Kind, status.DaysLeft, validUntil)
	}

	return domain.Notification{
		Severity: domain.SeverityWarning,
		Subject:  fmt.Sprintf("Rate table expiry reminder: %s", status.Kind),
		Body:     body,
	}
}

func expiredNotification(status domain.ExpiryStatus) domain.Notification {
	daysExpired := -status.DaysLeft
	return domain.Notification{
		Severity: domain.SeverityCritical,
		Subject:  fmt.Sprintf("Rate table EXPIRED: %s", status.Kind),
		Body: fmt.Sprintf("The %s rate table expired %d day(s) ago. Quotes may be wrong until new rates are uploaded.",
			status.Kind, daysExpired),
	}
}
