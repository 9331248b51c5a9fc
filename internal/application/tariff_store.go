package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/growex/quotebot/internal/domain"
	"github.com/growex/quotebot/internal/ports"
)

// Cargo defaults applied when a flow collected only one dimension.
const (
	DefaultVolume = 1
	DefaultWeight = 100
)

// TariffStoreConfig carries the tunable parts of the store.
type TariffStoreConfig struct {
	Gate    domain.TableGate
	HubName string // display name for hub-routed destinations
}

// TariffStore owns the two live rate tables and resolves quotes against them.
// Replace swaps a whole table behind the lock, so readers observe either the
// fully-old or fully-new version, never a partial write.
type TariffStore struct {
	mu     sync.RWMutex
	tables map[domain.TariffKind]domain.RateTable

	repo   ports.TariffRepository
	clock  ports.Clock
	config TariffStoreConfig
	logger *slog.Logger
}

func NewTariffStore(ctx context.Context, repo ports.TariffRepository, clock ports.Clock, config TariffStoreConfig, logger *slog.Logger) (*TariffStore, error) {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.HubName == "" {
		config.HubName = "Novorossiysk hub"
	}

	tables := make(map[domain.TariffKind]domain.RateTable, 2)
	for _, kind := range []domain.TariffKind{domain.TariffDirect, domain.TariffHub} {
		table, err := repo.Load(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("load %s rate table: %w", kind, err)
		}
		tables[kind] = table
	}

	return &TariffStore{
		tables: tables,
		repo:   repo,
		clock:  clock,
		config: config,
		logger: logger,
	}, nil
}

// Resolve prices a shipment. Exactly-matching and next-larger thresholds are
// preferred; a volume above every bracket clamps to the largest one. A city
// absent from the direct table is priced against the hub's default bracket
// set and the quote is tagged hub-routed. Missing dimensions fall back to the
// documented defaults; at least one of volume or weight must be given.
func (s *TariffStore) Resolve(volume, weight *float64, city string) (domain.Quote, error) {
	if volume == nil && weight == nil {
		return domain.Quote{}, domain.ErrCargoUnspecified
	}

	vol := float64(DefaultVolume)
	if volume != nil {
		vol = *volume
	}
	wgt := float64(DefaultWeight)
	if weight != nil {
		wgt = *weight
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	direct := s.tables[domain.TariffDirect]
	if brackets := direct.Brackets(city); len(brackets) > 0 {
		price, threshold, err := domain.ResolveBracket(brackets, vol)
		if err != nil {
			return domain.Quote{}, err
		}
		return domain.Quote{
			Price:         price,
			Currency:      currencyOrDefault(direct.Currency),
			Source:        domain.SourceDirect,
			Destination:   city,
			RequestedCity: city,
			Volume:        vol,
			Weight:        wgt,
			Threshold:     threshold,
			ValidUntil:    direct.ValidUntil,
		}, nil
	}

	hub := s.tables[domain.TariffHub]
	price, threshold, err := domain.ResolveBracket(hub.Brackets(domain.HubLocationKey), vol)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		Price:         price,
		Currency:      currencyOrDefault(hub.Currency),
		Source:        domain.SourceHub,
		Destination:   s.config.HubName,
		RequestedCity: city,
		Volume:        vol,
		Weight:        wgt,
		Threshold:     threshold,
		ValidUntil:    hub.ValidUntil,
	}, nil
}

// UpdateSummary reports a successful table replacement to the operator.
type UpdateSummary struct {
	Kind       domain.TariffKind
	Locations  []string
	ValidUntil string
	SourceFile string
}

// ReplaceTable validates a candidate and swaps it in, all-or-nothing: on any
// validation or persistence failure the live table and its stored version are
// left exactly as they were.
func (s *TariffStore) ReplaceTable(ctx context.Context, kind domain.TariffKind, candidate domain.RateTable) (UpdateSummary, error) {
	if !kind.Valid() {
		return UpdateSummary{}, domain.ErrUnknownTariffKind
	}
	if err := candidate.Validate(kind, s.config.Gate); err != nil {
		return UpdateSummary{}, err
	}

	candidate.UpdatedAt = s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Replace(ctx, kind, candidate); err != nil {
		return UpdateSummary{}, fmt.Errorf("persist %s rate table: %w", kind, err)
	}
	s.tables[kind] = candidate

	s.logger.Info("rate table replaced",
		"kind", kind,
		"locations", len(candidate.Entries),
		"source", candidate.SourceFile)

	summary := UpdateSummary{
		Kind:       kind,
		Locations:  candidate.Locations(),
		SourceFile: candidate.SourceFile,
	}
	if candidate.ValidUntil != nil {
		summary.ValidUntil = candidate.ValidUntil.Format(domain.NotificationDayFormat)
	}
	return summary, nil
}

// CheckExpiry reports both tables' validity deadlines as of today.
func (s *TariffStore) CheckExpiry() domain.ExpiryReport {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.ExpiryReport{
		Direct: s.tables[domain.TariffDirect].ExpiryAt(domain.TariffDirect, now),
		Hub:    s.tables[domain.TariffHub].ExpiryAt(domain.TariffHub, now),
	}
}

// Cities lists destinations with direct rates.
func (s *TariffStore) Cities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[domain.TariffDirect].Locations()
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return "USD"
	}
	return currency
}
