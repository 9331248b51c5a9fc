package domain

import "errors"

var (
	// ErrNoRateData means the table a quote would price against is completely
	// empty. It is an operator-visible condition, never a silent zero price.
	ErrNoRateData = errors.New("no rate data available")

	ErrSessionNotFound   = errors.New("session not found")
	ErrUnknownTariffKind = errors.New("unknown tariff kind")
	ErrUnknownFileKind   = errors.New("unrecognized tariff file name")
	ErrCargoUnspecified  = errors.New("either volume or weight is required")
)

// UploadValidationError rejects a candidate rate table with a reason an
// operator can act on. The live store is left untouched when it is returned.
type UploadValidationError struct {
	Reason string
}

func (e *UploadValidationError) Error() string {
	return "upload validation failed: " + e.Reason
}
