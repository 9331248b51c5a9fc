package sessionstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/growex/quotebot/internal/domain"
)

// sessionRecord is the flat wire form of a session. The step tag decides
// which fields are meaningful; decoding rebuilds the matching state type and
// ignores the rest.
type sessionRecord struct {
	UserID    string    `json:"user_id"`
	Step      string    `json:"step"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Flow          string        `json:"flow,omitempty"`
	Volume        *float64      `json:"volume,omitempty"`
	Weight        *float64      `json:"weight,omitempty"`
	Description   string        `json:"description,omitempty"`
	City          string        `json:"city,omitempty"`
	Name          string        `json:"name,omitempty"`
	ContactMethod string        `json:"contact_method,omitempty"`
	ContactValue  string        `json:"contact_value,omitempty"`
	Quote         *domain.Quote `json:"quote,omitempty"`
}

func encodeSession(session *domain.Session) ([]byte, error) {
	record := sessionRecord{
		UserID:    session.UserID,
		Step:      string(session.Step()),
		StartedAt: session.StartedAt,
		UpdatedAt: session.UpdatedAt,
	}

	switch state := session.State.(type) {
	case domain.Idle, nil:
	case domain.FlowSelected:
		record.Flow = string(state.Flow)
	case domain.CollectingVolume:
		record.Flow = string(state.Flow)
	case domain.CollectingWeight:
		record.Flow = string(state.Flow)
		record.Volume = state.Volume
	case domain.CollectingDescription:
		record.Flow = string(state.Flow)
	case domain.CollectingCity:
		record.Flow = string(state.Flow)
		record.Volume = state.Volume
		record.Weight = state.Weight
		record.Description = state.Description
	case domain.QuoteShown:
		encodeCargo(&record, state.Cargo)
		record.Quote = state.Quote
	case domain.CollectingName:
		encodeCargo(&record, state.Cargo)
		record.Quote = state.Quote
	case domain.CollectingContact:
		encodeCargo(&record, state.Cargo)
		record.Quote = state.Quote
		record.Name = state.Name
	case domain.CollectingCompany:
		encodeCargo(&record, state.Cargo)
		record.Quote = state.Quote
		record.Name = state.Name
		record.ContactMethod = string(state.Contact.Method)
		record.ContactValue = state.Contact.Value
	default:
		return nil, fmt.Errorf("unencodable session state %T", session.State)
	}

	return json.Marshal(record)
}

func decodeSession(data []byte) (*domain.Session, error) {
	var record sessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	state, err := decodeState(record)
	if err != nil {
		return nil, err
	}

	return &domain.Session{
		UserID:    record.UserID,
		State:     state,
		StartedAt: record.StartedAt,
		UpdatedAt: record.UpdatedAt,
	}, nil
}

func decodeState(record sessionRecord) (domain.State, error) {
	flow := domain.Flow(record.Flow)

	switch domain.Step(record.Step) {
	case domain.StepIdle:
		return domain.Idle{}, nil
	case domain.StepFlowSelected:
		return domain.FlowSelected{Flow: flow}, nil
	case domain.StepVolume:
		return domain.CollectingVolume{Flow: flow}, nil
	case domain.StepWeight:
		return domain.CollectingWeight{Flow: flow, Volume: record.Volume}, nil
	case domain.StepDescription:
		return domain.CollectingDescription{Flow: flow}, nil
	case domain.StepCity:
		return domain.CollectingCity{
			Flow:        flow,
			Volume:      record.Volume,
			Weight:      record.Weight,
			Description: record.Description,
		}, nil
	case domain.StepQuoteShown:
		return domain.QuoteShown{Cargo: decodeCargo(record), Quote: record.Quote}, nil
	case domain.StepName:
		return domain.CollectingName{Cargo: decodeCargo(record), Quote: record.Quote}, nil
	case domain.StepContact:
		return domain.CollectingContact{Cargo: decodeCargo(record), Quote: record.Quote, Name: record.Name}, nil
	case domain.StepCompany:
		return domain.CollectingCompany{
			Cargo: decodeCargo(record),
			Quote: record.Quote,
			Name:  record.Name,
			Contact: domain.ContactPoint{
				Method: domain.ContactMethod(record.ContactMethod),
				Value:  record.ContactValue,
			},
		}, nil
	default:
		return nil, fmt.Errorf("undecodable session step %q", record.Step)
	}
}

func encodeCargo(record *sessionRecord, cargo domain.CargoSpec) {
	record.Flow = string(cargo.Flow)
	record.Volume = cargo.Volume
	record.Weight = cargo.Weight
	record.Description = cargo.Description
	record.City = cargo.City
}

func decodeCargo(record sessionRecord) domain.CargoSpec {
	return domain.CargoSpec{
		Flow:        domain.Flow(record.Flow),
		Volume:      record.Volume,
		Weight:      record.Weight,
		Description: record.Description,
		City:        record.City,
	}
}
