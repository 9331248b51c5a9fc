package toml

import (
	"fmt"

	"github.com/growex/quotebot/internal/domain"
)

const currentEventsSchemaVersion = 1

type eventsFileSchema struct {
	Version       int                      `toml:"version"`
	Events        []eventSchema            `toml:"events,omitempty"`
	RecentLeads   []leadSchema             `toml:"recent_leads,omitempty"`
	RecentUploads []uploadSchema           `toml:"recent_uploads,omitempty"`
	Incomplete    []incompleteSampleSchema `toml:"incomplete,omitempty"`
}

func (s eventsFileSchema) validateVersion() error {
	if s.Version > currentEventsSchemaVersion {
		return fmt.Errorf("unsupported events schema version %d (current %d)", s.Version, currentEventsSchemaVersion)
	}
	return nil
}

type eventSchema struct {
	Type      string  `toml:"type"`
	Timestamp string  `toml:"timestamp"`
	UserID    string  `toml:"user_id"`
	City      string  `toml:"city,omitempty"`
	Volume    float64 `toml:"volume,omitempty"`
	Cargo     string  `toml:"cargo,omitempty"`
}

func eventToSchema(event domain.AnalyticsEvent) eventSchema {
	return eventSchema{
		Type:      string(event.Type),
		Timestamp: formatTime(event.Timestamp),
		UserID:    event.UserID,
		City:      event.City,
		Volume:    event.Volume,
		Cargo:     event.Cargo,
	}
}

func eventFromSchema(entry eventSchema) domain.AnalyticsEvent {
	return domain.AnalyticsEvent{
		Type:      domain.EventType(entry.Type),
		Timestamp: parseTime(entry.Timestamp),
		UserID:    entry.UserID,
		City:      entry.City,
		Volume:    entry.Volume,
		Cargo:     entry.Cargo,
	}
}

type leadSchema struct {
	ID            string       `toml:"id"`
	Timestamp     string       `toml:"timestamp"`
	UserID        string       `toml:"user_id"`
	Name          string       `toml:"name"`
	ContactMethod string       `toml:"contact_method"`
	ContactValue  string       `toml:"contact_value"`
	Company       string       `toml:"company,omitempty"`
	Cargo         cargoSchema  `toml:"cargo"`
	Quote         *quoteSchema `toml:"quote,omitempty"`
}

type cargoSchema struct {
	Flow        string   `toml:"flow"`
	Volume      *float64 `toml:"volume,omitempty"`
	Weight      *float64 `toml:"weight,omitempty"`
	Description string   `toml:"description,omitempty"`
	City        string   `toml:"city,omitempty"`
}

type quoteSchema struct {
	Price         float64 `toml:"price"`
	Currency      string  `toml:"currency"`
	Source        string  `toml:"source"`
	Destination   string  `toml:"destination"`
	RequestedCity string  `toml:"requested_city"`
	Volume        float64 `toml:"volume"`
	Weight        float64 `toml:"weight"`
	Threshold     int     `toml:"threshold"`
	ValidUntil    string  `toml:"valid_until,omitempty"`
}

func leadToSchema(lead domain.Lead) leadSchema {
	return leadSchema{
		ID:            lead.ID,
		Timestamp:     formatTime(lead.Timestamp),
		UserID:        lead.UserID,
		Name:          lead.Contact.Name,
		ContactMethod: string(lead.Contact.Point.Method),
		ContactValue:  lead.Contact.Point.Value,
		Company:       lead.Contact.Company,
		Cargo:         cargoToSchema(lead.Cargo),
		Quote:         quoteToSchema(lead.Quote),
	}
}

func leadFromSchema(entry leadSchema) domain.Lead {
	return domain.Lead{
		ID:        entry.ID,
		Timestamp: parseTime(entry.Timestamp),
		UserID:    entry.UserID,
		Contact: domain.Contact{
			Name: entry.Name,
			Point: domain.ContactPoint{
				Method: domain.ContactMethod(entry.ContactMethod),
				Value:  entry.ContactValue,
			},
			Company: entry.Company,
		},
		Cargo: cargoFromSchema(entry.Cargo),
		Quote: quoteFromSchema(entry.Quote),
	}
}

func cargoToSchema(cargo domain.CargoSpec) cargoSchema {
	return cargoSchema{
		Flow:        string(cargo.Flow),
		Volume:      cargo.Volume,
		Weight:      cargo.Weight,
		Description: cargo.Description,
		City:        cargo.City,
	}
}

func cargoFromSchema(entry cargoSchema) domain.CargoSpec {
	return domain.CargoSpec{
		Flow:        domain.Flow(entry.Flow),
		Volume:      entry.Volume,
		Weight:      entry.Weight,
		Description: entry.Description,
		City:        entry.City,
	}
}

func quoteToSchema(quote *domain.Quote) *quoteSchema {
	if quote == nil {
		return nil
	}
	return &quoteSchema{
		Price:         quote.Price,
		Currency:      quote.Currency,
		Source:        string(quote.Source),
		Destination:   quote.Destination,
		RequestedCity: quote.RequestedCity,
		Volume:        quote.Volume,
		Weight:        quote.Weight,
		Threshold:     quote.Threshold,
		ValidUntil:    formatDate(quote.ValidUntil),
	}
}

func quoteFromSchema(entry *quoteSchema) *domain.Quote {
	if entry == nil {
		return nil
	}
	return &domain.Quote{
		Price:         entry.Price,
		Currency:      entry.Currency,
		Source:        domain.RateSource(entry.Source),
		Destination:   entry.Destination,
		RequestedCity: entry.RequestedCity,
		Volume:        entry.Volume,
		Weight:        entry.Weight,
		Threshold:     entry.Threshold,
		ValidUntil:    parseDate(entry.ValidUntil),
	}
}

type uploadSchema struct {
	Timestamp  string `toml:"timestamp"`
	UserID     string `toml:"user_id"`
	Filename   string `toml:"filename"`
	Kind       string `toml:"kind"`
	Status     string `toml:"status"`
	Detail     string `toml:"detail,omitempty"`
	Locations  int    `toml:"locations,omitempty"`
	ValidUntil string `toml:"valid_until,omitempty"`
}

func uploadToSchema(upload domain.UploadRecord) uploadSchema {
	return uploadSchema{
		Timestamp:  formatTime(upload.Timestamp),
		UserID:     upload.UserID,
		Filename:   upload.Filename,
		Kind:       string(upload.Kind),
		Status:     string(upload.Status),
		Detail:     upload.Detail,
		Locations:  upload.Locations,
		ValidUntil: formatDate(upload.ValidUntil),
	}
}

func uploadFromSchema(entry uploadSchema) domain.UploadRecord {
	return domain.UploadRecord{
		Timestamp:  parseTime(entry.Timestamp),
		UserID:     entry.UserID,
		Filename:   entry.Filename,
		Kind:       domain.TariffKind(entry.Kind),
		Status:     domain.UploadStatus(entry.Status),
		Detail:     entry.Detail,
		Locations:  entry.Locations,
		ValidUntil: parseDate(entry.ValidUntil),
	}
}

type incompleteSampleSchema struct {
	Timestamp string `toml:"timestamp"`
	UserID    string `toml:"user_id"`
	Step      string `toml:"step"`
}

func incompleteToSchema(sample domain.IncompleteSample) incompleteSampleSchema {
	return incompleteSampleSchema{
		Timestamp: formatTime(sample.Timestamp),
		UserID:    sample.UserID,
		Step:      string(sample.Step),
	}
}

func incompleteFromSchema(entry incompleteSampleSchema) domain.IncompleteSample {
	return domain.IncompleteSample{
		Timestamp: parseTime(entry.Timestamp),
		UserID:    entry.UserID,
		Step:      domain.Step(entry.Step),
	}
}

type notificationsFileSchema struct {
	Version int               `toml:"version"`
	Sent    []sentEntrySchema `toml:"sent,omitempty"`
}

func (s notificationsFileSchema) validateVersion() error {
	if s.Version > currentEventsSchemaVersion {
		return fmt.Errorf("unsupported notifications schema version %d (current %d)", s.Version, currentEventsSchemaVersion)
	}
	return nil
}

type sentEntrySchema struct {
	Table     string `toml:"table"`
	Condition string `toml:"condition"`
	Day       string `toml:"day"`
}

func (s sentEntrySchema) matches(key domain.NotificationKey) bool {
	return s.Table == string(key.Table) && s.Condition == string(key.Condition) && s.Day == key.Day
}
