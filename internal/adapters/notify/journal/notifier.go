// Package journal delivers operator notifications to an append-only journal
// file. It stands in for a real operator channel: every lead and expiry alert
// lands durably on disk where an operator (or a tail -f) can pick it up.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/growex/quotebot/internal/domain"
	"github.com/growex/quotebot/internal/ports"
)

const (
	journalPathKey  = "notify.journal"
	journalFileName = "operator.log"

	fileMode = 0o600
	dirMode  = 0o700
)

type Notifier struct {
	mu     sync.Mutex
	path   string
	clock  ports.Clock
	logger *slog.Logger
}

var _ ports.OperatorNotifier = (*Notifier)(nil)

func New(cfg *viper.Viper, clock ports.Clock, logger *slog.Logger) (*Notifier, error) {
	if cfg == nil {
		cfg = viper.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	cfg.SetDefault(journalPathKey, filepath.Join(homeDir, ".quotebot", journalFileName))

	return &Notifier{
		path:   cfg.GetString(journalPathKey),
		clock:  clock,
		logger: logger,
	}, nil
}

func (n *Notifier) Notify(ctx context.Context, notification domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(n.path), dirMode); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	file, err := os.OpenFile(n.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	entry := fmt.Sprintf("[%s] %s: %s\n%s\n\n",
		n.clock.Now().Format("2006-01-02 15:04:05"),
		notification.Severity,
		notification.Subject,
		notification.Body,
	)
	if _, err := file.WriteString(entry); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}

	n.logger.Info("operator notification delivered",
		"severity", notification.Severity,
		"subject", notification.Subject,
	)
	return nil
}
