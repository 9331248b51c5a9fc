package toml

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/growex/quotebot/internal/domain"
)

const currentTariffSchemaVersion = 1

type tariffFileSchema struct {
	Version    int                 `toml:"version"`
	ValidUntil string              `toml:"valid_until,omitempty"`
	Currency   string              `toml:"currency,omitempty"`
	UpdatedAt  string              `toml:"updated_at,omitempty"`
	SourceFile string              `toml:"source_file,omitempty"`
	Locations  []tariffEntrySchema `toml:"locations,omitempty"`
}

type tariffEntrySchema struct {
	Location string             `toml:"location"`
	Rates    map[string]float64 `toml:"rates"` // threshold (m3, as string key) -> price
}

func (s tariffFileSchema) validateVersion() error {
	if s.Version > currentTariffSchemaVersion {
		return fmt.Errorf("unsupported tariff schema version %d (current %d)", s.Version, currentTariffSchemaVersion)
	}
	return nil
}

func tableToSchema(table domain.RateTable) tariffFileSchema {
	file := tariffFileSchema{
		Version:    currentTariffSchemaVersion,
		Currency:   table.Currency,
		SourceFile: table.SourceFile,
		ValidUntil: formatDate(table.ValidUntil),
		UpdatedAt:  formatTime(table.UpdatedAt),
	}

	locations := make([]string, 0, len(table.Entries))
	for location := range table.Entries {
		locations = append(locations, location)
	}
	sort.Strings(locations)

	for _, location := range locations {
		rates := make(map[string]float64, len(table.Entries[location]))
		for threshold, price := range table.Entries[location] {
			rates[strconv.Itoa(threshold)] = price
		}
		file.Locations = append(file.Locations, tariffEntrySchema{Location: location, Rates: rates})
	}

	return file
}

func tableFromSchema(file tariffFileSchema) domain.RateTable {
	table := domain.RateTable{
		Currency:   file.Currency,
		SourceFile: file.SourceFile,
		ValidUntil: parseDate(file.ValidUntil),
		UpdatedAt:  parseTime(file.UpdatedAt),
		Entries:    map[string]map[int]float64{},
	}

	for _, entry := range file.Locations {
		brackets := make(map[int]float64, len(entry.Rates))
		for raw, price := range entry.Rates {
			threshold, err := strconv.Atoi(raw)
			if err != nil {
				continue
			}
			brackets[threshold] = price
		}
		if len(brackets) > 0 {
			table.Entries[entry.Location] = brackets
		}
	}

	if len(table.Entries) == 0 {
		table.Entries = map[string]map[int]float64{}
	}

	return table
}

func formatDate(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Format(domain.NotificationDayFormat)
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(domain.NotificationDayFormat, raw)
	if err != nil {
		return nil
	}
	return &parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format(time.RFC3339)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
