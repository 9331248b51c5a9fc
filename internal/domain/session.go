package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type Flow string

const (
	FlowVolumeAndWeight Flow = "volume_and_weight"
	FlowVolumeOnly      Flow = "volume_only"
	FlowWeightOnly      Flow = "weight_only"
	FlowDescription     Flow = "description"
)

func (f Flow) Valid() bool {
	switch f {
	case FlowVolumeAndWeight, FlowVolumeOnly, FlowWeightOnly, FlowDescription:
		return true
	default:
		return false
	}
}

// Step tags a conversation state for funnel analytics.
type Step string

const (
	StepIdle          Step = "idle"
	StepFlowSelected  Step = "flow_selected"
	StepVolume        Step = "collecting_volume"
	StepWeight        Step = "collecting_weight"
	StepDescription   Step = "collecting_description"
	StepCity          Step = "collecting_city"
	StepQuoteShown    Step = "quote_shown"
	StepName          Step = "collecting_name"
	StepContact       Step = "collecting_contact"
	StepCompany       Step = "collecting_company"
	StepCompleted     Step = "completed"
	StepLeadSubmitted Step = "lead_submitted"
)

// State is the tagged-variant conversation state: one concrete type per step,
// carrying exactly the fields that are valid at that step. A field that would
// be illegal to read in a given state simply does not exist on its type.
type State interface {
	Step() Step
}

type Idle struct{}

type FlowSelected struct {
	Flow Flow
}

type CollectingVolume struct {
	Flow Flow
}

type CollectingWeight struct {
	Flow   Flow
	Volume *float64 // set when the flow collected a volume first
}

type CollectingDescription struct {
	Flow Flow
}

type CollectingCity struct {
	Flow        Flow
	Volume      *float64
	Weight      *float64
	Description string
}

// CargoSpec is the fully collected shipment half of a session, frozen once a
// quote has been shown.
type CargoSpec struct {
	Flow        Flow
	Volume      *float64
	Weight      *float64
	Description string
	City        string
}

type QuoteShown struct {
	Cargo CargoSpec
	Quote *Quote // nil for the description flow, which gets no numeric price
}

type CollectingName struct {
	Cargo CargoSpec
	Quote *Quote
}

type CollectingContact struct {
	Cargo CargoSpec
	Quote *Quote
	Name  string
}

type CollectingCompany struct {
	Cargo   CargoSpec
	Quote   *Quote
	Name    string
	Contact ContactPoint
}

func (Idle) Step() Step                  { return StepIdle }
func (FlowSelected) Step() Step          { return StepFlowSelected }
func (CollectingVolume) Step() Step      { return StepVolume }
func (CollectingWeight) Step() Step      { return StepWeight }
func (CollectingDescription) Step() Step { return StepDescription }
func (CollectingCity) Step() Step        { return StepCity }
func (QuoteShown) Step() Step            { return StepQuoteShown }
func (CollectingName) Step() Step        { return StepName }
func (CollectingContact) Step() Step     { return StepContact }
func (CollectingCompany) Step() Step     { return StepCompany }

// Begin advances a freshly selected flow into its first collection state.
func (s FlowSelected) Begin() State {
	switch s.Flow {
	case FlowWeightOnly:
		return CollectingWeight{Flow: s.Flow}
	case FlowDescription:
		return CollectingDescription{Flow: s.Flow}
	default:
		return CollectingVolume{Flow: s.Flow}
	}
}

// Session is one user's in-flight conversation. It is created on flow entry,
// mutated only through state transitions, and destroyed on completion,
// cancellation, or abandonment.
type Session struct {
	UserID    string
	State     State
	StartedAt time.Time
	UpdatedAt time.Time
}

func NewSession(userID string, state State, now time.Time) *Session {
	return &Session{UserID: userID, State: state, StartedAt: now, UpdatedAt: now}
}

func (s *Session) Advance(state State, now time.Time) {
	s.State = state
	s.UpdatedAt = now
}

func (s *Session) Step() Step {
	if s == nil || s.State == nil {
		return StepIdle
	}
	return s.State.Step()
}

// Minimum lengths for free-text inputs, in runes.
const (
	MinDescriptionLen = 10
	MinCityLen        = 2
	MinNameLen        = 2
	MinCompanyLen     = 2
)

// ParseQuantity parses a user-typed volume or weight. A comma decimal
// separator is accepted as a locale accommodation; the value must be positive.
func ParseQuantity(text string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		// ParseFloat also accepts "nan" and "inf"; neither is a quantity,
		// and NaN would slip past the positivity check below.
		return 0, fmt.Errorf("not a number: %q", text)
	}
	if value <= 0 {
		return 0, fmt.Errorf("value must be positive, got %v", value)
	}
	return value, nil
}

// ValidateText enforces a minimum rune length on trimmed free-text input.
func ValidateText(text string, minLen int) (string, error) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minLen {
		return "", fmt.Errorf("need at least %d characters", minLen)
	}
	return trimmed, nil
}

type ContactMethod string

const (
	ContactPhone ContactMethod = "phone"
	ContactEmail ContactMethod = "email"
)

type ContactPoint struct {
	Method ContactMethod
	Value  string
}

// ParseContactPoint classifies trimmed input as a phone number or an email
// address. Phones are international form: leading +, digits only, at least 11
// characters total. Emails need an @ with a dotted domain part.
func ParseContactPoint(text string) (ContactPoint, error) {
	contact := strings.TrimSpace(text)

	if strings.HasPrefix(contact, "+") {
		digits := contact[1:]
		if len(contact) >= 11 && isAllDigits(digits) {
			return ContactPoint{Method: ContactPhone, Value: contact}, nil
		}
		return ContactPoint{}, fmt.Errorf("invalid phone number %q", contact)
	}

	if at := strings.LastIndex(contact, "@"); at > 0 && at < len(contact)-1 {
		domain := contact[at+1:]
		if strings.Contains(domain, ".") {
			return ContactPoint{Method: ContactEmail, Value: contact}, nil
		}
	}

	return ContactPoint{}, fmt.Errorf("expected a phone (+...) or an email address")
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
