package ports

import (
	"context"

	"github.com/growex/quotebot/internal/domain"
)

// TariffRepository persists one rate table per kind. Load returns the
// documented empty default when nothing is stored or the stored state is
// unreadable; it never fails on corruption. Replace durably archives the
// previous version (timestamped copy) before overwriting, so a bad upload is
// always recoverable.
type TariffRepository interface {
	Load(ctx context.Context, kind domain.TariffKind) (domain.RateTable, error)
	Replace(ctx context.Context, kind domain.TariffKind, table domain.RateTable) error
}
