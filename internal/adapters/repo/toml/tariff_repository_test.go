package toml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growex/quotebot/internal/domain"
)

func testConfig(t *testing.T) *viper.Viper {
	t.Helper()
	cfg := viper.New()
	cfg.Set(dataDirKey, t.TempDir())
	return cfg
}

func sampleTable() domain.RateTable {
	validUntil := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	return domain.RateTable{
		Entries: map[string]map[int]float64{
			"Казань": {1: 60, 3: 95},
			"Москва": {1: 50, 3: 80, 5: 120},
		},
		Currency:   "USD",
		ValidUntil: &validUntil,
		UpdatedAt:  time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC),
		SourceFile: "complex.csv",
	}
}

func TestTariffRepositoryRoundTrip(t *testing.T) {
	repo, err := NewTariffRepository(testConfig(t))
	require.NoError(t, err)

	require.NoError(t, repo.Replace(context.Background(), domain.TariffDirect, sampleTable()))

	loaded, err := repo.Load(context.Background(), domain.TariffDirect)
	require.NoError(t, err)

	assert.Equal(t, sampleTable().Entries, loaded.Entries)
	assert.Equal(t, "USD", loaded.Currency)
	assert.Equal(t, "complex.csv", loaded.SourceFile)
	require.NotNil(t, loaded.ValidUntil)
	assert.Equal(t, "2026-09-15", loaded.ValidUntil.Format(domain.NotificationDayFormat))
	assert.True(t, loaded.UpdatedAt.Equal(sampleTable().UpdatedAt))
}

func TestTariffRepositoryKindsAreIndependent(t *testing.T) {
	repo, err := NewTariffRepository(testConfig(t))
	require.NoError(t, err)

	require.NoError(t, repo.Replace(context.Background(), domain.TariffDirect, sampleTable()))

	hub, err := repo.Load(context.Background(), domain.TariffHub)
	require.NoError(t, err)
	assert.Empty(t, hub.Entries)
}

func TestTariffRepositoryUnknownKind(t *testing.T) {
	repo, err := NewTariffRepository(testConfig(t))
	require.NoError(t, err)

	_, err = repo.Load(context.Background(), domain.TariffKind("bogus"))
	require.ErrorIs(t, err, domain.ErrUnknownTariffKind)

	err = repo.Replace(context.Background(), domain.TariffKind("bogus"), sampleTable())
	require.ErrorIs(t, err, domain.ErrUnknownTariffKind)
}

func TestTariffRepositoryReplaceArchivesPreviousFile(t *testing.T) {
	cfg := testConfig(t)
	dataDir := cfg.GetString(dataDirKey)

	repo, err := NewTariffRepository(cfg)
	require.NoError(t, err)

	first := sampleTable()
	require.NoError(t, repo.Replace(context.Background(), domain.TariffDirect, first))

	entries, err := filepath.Glob(filepath.Join(dataDir, "direct_rates.toml.bak.*"))
	require.NoError(t, err)
	assert.Empty(t, entries, "first write has nothing to archive")

	second := sampleTable()
	second.UpdatedAt = first.UpdatedAt.Add(time.Hour)
	second.Entries["Пермь"] = map[int]float64{1: 90}
	require.NoError(t, repo.Replace(context.Background(), domain.TariffDirect, second))

	entries, err = filepath.Glob(filepath.Join(dataDir, "direct_rates.toml.bak.*"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	loaded, err := repo.Load(context.Background(), domain.TariffDirect)
	require.NoError(t, err)
	assert.Contains(t, loaded.Entries, "Пермь")
}

func TestTariffRepositoryMissingFileLoadsEmptyTable(t *testing.T) {
	repo, err := NewTariffRepository(testConfig(t))
	require.NoError(t, err)

	loaded, err := repo.Load(context.Background(), domain.TariffDirect)
	require.NoError(t, err)
	assert.Empty(t, loaded.Entries)
	assert.Nil(t, loaded.ValidUntil)
}

func TestTariffRepositoryMalformedFileReinitializes(t *testing.T) {
	cfg := testConfig(t)
	dataDir := cfg.GetString(dataDirKey)
	require.NoError(t, os.MkdirAll(dataDir, dirMode))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "direct_rates.toml"), []byte("not toml {{{"), fileMode))

	repo, err := NewTariffRepository(cfg)
	require.NoError(t, err)

	loaded, err := repo.Load(context.Background(), domain.TariffDirect)
	require.NoError(t, err)
	assert.Empty(t, loaded.Entries)
}

func TestTariffRepositoryRejectsNewerSchema(t *testing.T) {
	cfg := testConfig(t)
	dataDir := cfg.GetString(dataDirKey)
	require.NoError(t, os.MkdirAll(dataDir, dirMode))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "direct_rates.toml"), []byte("version = 99\n"), fileMode))

	repo, err := NewTariffRepository(cfg)
	require.NoError(t, err)

	_, err = repo.Load(context.Background(), domain.TariffDirect)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported tariff schema version")
}

func TestTableSchemaSkipsUnparsableThresholds(t *testing.T) {
	table := tableFromSchema(tariffFileSchema{
		Version: currentTariffSchemaVersion,
		Locations: []tariffEntrySchema{
			{Location: "Москва", Rates: map[string]float64{"3": 80, "junk": 5}},
			{Location: "Тверь", Rates: map[string]float64{"junk": 5}},
		},
	})

	assert.Equal(t, map[string]map[int]float64{"Москва": {3: 80}}, table.Entries)
}
