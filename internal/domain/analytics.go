package domain

import "time"

// Window is a rolling aggregate period. Membership is decided at query time
// from a record's raw timestamp, so one record can fall into several windows
// at once.
type Window string

const (
	WindowWeekly    Window = "weekly"
	WindowMonthly   Window = "monthly"
	WindowQuarterly Window = "quarterly"
	WindowAllTime   Window = "all_time"
)

// IncompleteRetentionDays is the hard ceiling on abandoned-session samples,
// independent of window logic.
const IncompleteRetentionDays = 90

func Windows() []Window {
	return []Window{WindowWeekly, WindowMonthly, WindowQuarterly, WindowAllTime}
}

func (w Window) Valid() bool {
	switch w {
	case WindowWeekly, WindowMonthly, WindowQuarterly, WindowAllTime:
		return true
	default:
		return false
	}
}

func (w Window) Days() int {
	switch w {
	case WindowWeekly:
		return 7
	case WindowMonthly:
		return 30
	case WindowQuarterly:
		return 90
	default:
		return 0
	}
}

func (w Window) Label() string {
	switch w {
	case WindowWeekly:
		return "last 7 days"
	case WindowMonthly:
		return "last 30 days"
	case WindowQuarterly:
		return "last 90 days"
	case WindowAllTime:
		return "all time"
	default:
		return string(w)
	}
}

// Contains reports whether a record timestamped ts belongs to the window as
// of now. All-time contains everything.
func (w Window) Contains(ts, now time.Time) bool {
	if w == WindowAllTime {
		return true
	}
	age := daysBetween(ts, now)
	return age >= 0 && age <= w.Days()
}

type EventType string

const (
	EventCalculation EventType = "calculation"
	EventLead        EventType = "lead"
	EventUpload      EventType = "upload"
)

// AnalyticsEvent is a compact immutable sample appended for every calculation,
// lead, and upload. Aggregates are recomputed from these at query time; the
// stream is never mutated.
type AnalyticsEvent struct {
	Type      EventType
	Timestamp time.Time
	UserID    string
	City      string
	Volume    float64 // zero when the flow carried no volume
	Cargo     string  // description category; empty when not applicable
}

// AggregateSnapshot is one window's view over the raw event stream.
type AggregateSnapshot struct {
	Window         Window
	Calculations   int
	Leads          int
	Uploads        int
	TotalVolume    float64
	AverageVolume  float64
	ConversionRate float64 // leads / calculations, percent
	Cities         map[string]int
	CargoTypes     map[string]int
}

// IncompleteSample records a session abandoned before lead submission, tagged
// with the last step it reached.
type IncompleteSample struct {
	Timestamp time.Time
	UserID    string
	Step      Step
}

// FunnelSnapshot buckets abandoned sessions by last-reached step for one
// window.
type FunnelSnapshot struct {
	Window  Window
	Total   int
	BySteps map[Step]int
}

// NotificationCondition distinguishes the expiry warning from the expired
// alert for idempotency bookkeeping.
type NotificationCondition string

const (
	ConditionExpiring NotificationCondition = "expiring"
	ConditionExpired  NotificationCondition = "expired"
)

// NotificationKey identifies one (table, condition, calendar day) emission.
// Each key fires at most once.
type NotificationKey struct {
	Table     TariffKind
	Condition NotificationCondition
	Day       string // YYYY-MM-DD
}

// NotificationDayFormat renders the calendar-day component of a key.
const NotificationDayFormat = "2006-01-02"

func NewNotificationKey(table TariffKind, condition NotificationCondition, now time.Time) NotificationKey {
	return NotificationKey{Table: table, Condition: condition, Day: now.Format(NotificationDayFormat)}
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Notification is an outbound message to the operator channel.
type Notification struct {
	Severity Severity
	Subject  string
	Body     string
}
