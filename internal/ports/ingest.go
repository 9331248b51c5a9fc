package ports

import (
	"context"

	"github.com/growex/quotebot/internal/domain"
)

// SpreadsheetIngester turns an uploaded rate sheet into a RateTable. Cell
// layout mechanics live entirely behind this boundary; the core only sees a
// parsed table or a readable rejection.
type SpreadsheetIngester interface {
	// ClassifyFilename maps an upload's file name to a tariff kind, or
	// returns domain.ErrUnknownFileKind.
	ClassifyFilename(name string) (domain.TariffKind, error)

	// Validate performs structural checks without mutating anything. A false
	// result carries a human-readable reason.
	Validate(ctx context.Context, path string, kind domain.TariffKind) (bool, string, error)

	// Parse produces the candidate table.
	Parse(ctx context.Context, path string, kind domain.TariffKind) (domain.RateTable, error)
}
