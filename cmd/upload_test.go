package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/growex/quotebot/internal/application"
	"github.com/growex/quotebot/internal/domain"
)

func TestFormatUploadResult(t *testing.T) {
	summary := application.UpdateSummary{
		Kind:       domain.TariffDirect,
		Locations:  []string{"Казань", "Москва"},
		ValidUntil: "2026-09-15",
		SourceFile: "complex.csv",
	}

	result := formatUploadResult(summary)
	assert.Contains(t, result, "Replaced the direct rate table from complex.csv")
	assert.Contains(t, result, "Locations: 2")
	assert.Contains(t, result, "Valid until: 2026-09-15")

	noDeadline := formatUploadResult(application.UpdateSummary{Kind: domain.TariffHub, SourceFile: "hub.csv"})
	assert.NotContains(t, noDeadline, "Valid until")
}
