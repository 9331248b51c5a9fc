package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/growex/quotebot/internal/domain"
	"github.com/growex/quotebot/internal/ports"
)

const backupTimeFormat = "20060102-150405"

// TariffRepository stores one TOML file per table kind. Replace copies the
// previous file to a timestamped backup before overwriting, so every prior
// version stays recoverable.
type TariffRepository struct {
	dataDir string
	mu      *sync.RWMutex
}

var _ ports.TariffRepository = (*TariffRepository)(nil)

func NewTariffRepository(cfg *viper.Viper) (*TariffRepository, error) {
	dataDir, err := resolveDataDir(cfg)
	if err != nil {
		return nil, err
	}

	return &TariffRepository{dataDir: dataDir, mu: lockForPath(dataDir)}, nil
}

func (r *TariffRepository) Load(ctx context.Context, kind domain.TariffKind) (domain.RateTable, error) {
	if err := ctx.Err(); err != nil {
		return domain.RateTable{}, err
	}
	if !kind.Valid() {
		return domain.RateTable{}, domain.ErrUnknownTariffKind
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var file tariffFileSchema
	if err := readFile(r.tablePath(kind), &file); err != nil {
		return domain.RateTable{}, err
	}
	if err := file.validateVersion(); err != nil {
		return domain.RateTable{}, err
	}

	return tableFromSchema(file), nil
}

func (r *TariffRepository) Replace(ctx context.Context, kind domain.TariffKind, table domain.RateTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !kind.Valid() {
		return domain.ErrUnknownTariffKind
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.tablePath(kind)
	if err := r.backup(path, table.UpdatedAt); err != nil {
		return err
	}

	return writeFile(path, tableToSchema(table))
}

// backup archives the current file as <name>.bak.<timestamp>. A missing
// current file (first upload) needs no backup.
func (r *TariffRepository) backup(path string, at time.Time) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read table for backup: %w", err)
	}

	if at.IsZero() {
		at = time.Now()
	}
	backupPath := fmt.Sprintf("%s.bak.%s", path, at.Format(backupTimeFormat))
	if err := os.WriteFile(backupPath, data, fileMode); err != nil {
		return fmt.Errorf("archive previous table: %w", err)
	}
	return nil
}

func (r *TariffRepository) tablePath(kind domain.TariffKind) string {
	return filepath.Join(r.dataDir, fmt.Sprintf("%s_rates.toml", kind))
}
