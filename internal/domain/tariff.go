package domain

import (
	"fmt"
	"sort"
	"time"
)

type TariffKind string

const (
	// TariffDirect holds door-to-door rates keyed by destination city.
	TariffDirect TariffKind = "direct"
	// TariffHub holds the fallback rate set for delivery to the staging hub,
	// keyed by the single HubLocationKey entry.
	TariffHub TariffKind = "hub"
)

// HubLocationKey is the sentinel location under which the hub table publishes
// its only bracket set.
const HubLocationKey = "default"

func (k TariffKind) Valid() bool {
	switch k {
	case TariffDirect, TariffHub:
		return true
	default:
		return false
	}
}

// RateTable is one published tariff version: location -> volume threshold (m3)
// -> price. Tables are replaced wholesale on upload and never patched in
// place, so a value of this type is read-only once constructed.
type RateTable struct {
	Entries    map[string]map[int]float64
	ValidUntil *time.Time
	Currency   string
	UpdatedAt  time.Time
	SourceFile string
}

func (t RateTable) Empty() bool {
	for _, brackets := range t.Entries {
		if len(brackets) > 0 {
			return false
		}
	}
	return true
}

func (t RateTable) Locations() []string {
	locations := make([]string, 0, len(t.Entries))
	for location := range t.Entries {
		locations = append(locations, location)
	}
	sort.Strings(locations)
	return locations
}

// Brackets returns the threshold set for a location, or nil when the location
// has no published rates.
func (t RateTable) Brackets(location string) map[int]float64 {
	return t.Entries[location]
}

// TableGate is the structural minimum a candidate table must meet before it
// may replace a live one. The exact values are a tunable contract; the gate
// exists to reject obviously truncated uploads.
type TableGate struct {
	MinLocations int
	MinBrackets  int
}

func (t RateTable) Validate(kind TariffKind, gate TableGate) error {
	if len(t.Entries) == 0 {
		return &UploadValidationError{Reason: "table has no locations"}
	}

	minLocations := gate.MinLocations
	if kind == TariffHub {
		// The hub table publishes a single sentinel entry.
		minLocations = 1
		if _, ok := t.Entries[HubLocationKey]; !ok {
			return &UploadValidationError{Reason: fmt.Sprintf("hub table is missing the %q entry", HubLocationKey)}
		}
	}

	if len(t.Entries) < minLocations {
		return &UploadValidationError{
			Reason: fmt.Sprintf("table has %d locations, need at least %d", len(t.Entries), minLocations),
		}
	}

	for location, brackets := range t.Entries {
		if len(brackets) < gate.MinBrackets {
			return &UploadValidationError{
				Reason: fmt.Sprintf("location %q has %d volume brackets, need at least %d", location, len(brackets), gate.MinBrackets),
			}
		}
		for threshold := range brackets {
			if threshold < 0 {
				return &UploadValidationError{
					Reason: fmt.Sprintf("location %q has a negative volume threshold %d", location, threshold),
				}
			}
		}
	}

	return nil
}

// ResolveBracket picks the price for a requested volume from one bracket set:
// the smallest threshold >= volume wins, an exact match is used directly, and
// a volume above every published threshold clamps to the largest one (the most
// expensive published bracket stands in for "off the chart").
func ResolveBracket(brackets map[int]float64, volume float64) (price float64, threshold int, err error) {
	if len(brackets) == 0 {
		return 0, 0, ErrNoRateData
	}

	thresholds := make([]int, 0, len(brackets))
	for t := range brackets {
		thresholds = append(thresholds, t)
	}
	sort.Ints(thresholds)

	for _, t := range thresholds {
		if float64(t) >= volume {
			return brackets[t], t, nil
		}
	}

	last := thresholds[len(thresholds)-1]
	return brackets[last], last, nil
}

// RateSource tags how a quote was priced.
type RateSource string

const (
	// SourceDirect means the destination city has its own published rates.
	SourceDirect RateSource = "direct"
	// SourceHub means the city has no direct rate and the quote covers
	// delivery to the staging hub only; onward delivery is not included.
	SourceHub RateSource = "hub"
)

type Quote struct {
	Price         float64
	Currency      string
	Source        RateSource
	Destination   string // effective destination: the city, or the hub name
	RequestedCity string
	Volume        float64
	Weight        float64
	Threshold     int
	ValidUntil    *time.Time
}

func (q Quote) HubRouted() bool { return q.Source == SourceHub }

// ExpiryStatus describes one table's validity deadline relative to a date.
// DaysLeft is signed: negative means the table expired that many days ago.
type ExpiryStatus struct {
	Kind       TariffKind
	ValidUntil *time.Time
	DaysLeft   int
	Expired    bool
}

// ExpiryAt computes the table's status as of now. Only the calendar dates
// matter: a table valid until today has zero days left, not a fraction.
func (t RateTable) ExpiryAt(kind TariffKind, now time.Time) ExpiryStatus {
	status := ExpiryStatus{Kind: kind, ValidUntil: t.ValidUntil}
	if t.ValidUntil == nil {
		return status
	}

	status.DaysLeft = daysBetween(now, *t.ValidUntil)
	status.Expired = status.DaysLeft < 0
	return status
}

func daysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay) / (24 * time.Hour))
}

type ExpiryReport struct {
	Direct ExpiryStatus
	Hub    ExpiryStatus
}

func (r ExpiryReport) Statuses() []ExpiryStatus {
	return []ExpiryStatus{r.Direct, r.Hub}
}
