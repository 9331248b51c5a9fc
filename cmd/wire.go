package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	csvingest "github.com/growex/quotebot/internal/adapters/ingest/csv"
	journalnotify "github.com/growex/quotebot/internal/adapters/notify/journal"
	analyticsrender "github.com/growex/quotebot/internal/adapters/render/analytics"
	tomlrepo "github.com/growex/quotebot/internal/adapters/repo/toml"
	"github.com/growex/quotebot/internal/adapters/sessionstore"
	"github.com/growex/quotebot/internal/application"
	"github.com/growex/quotebot/internal/domain"
	"github.com/growex/quotebot/internal/ports"
)

const (
	sessionDriverKey = "session.driver"
	sessionTTLKey    = "session.ttl"
	redisAddrKey     = "session.redis_addr"
	adminsKey        = "chat.admins"
	hubNameKey       = "tariffs.hub_name"
	minLocationsKey  = "tariffs.min_locations"
	minBracketsKey   = "tariffs.min_brackets"
	warningDaysKey   = "expiry.warning_days"
	maxFileSizeKey   = "upload.max_file_size"
	logLevelKey      = "log.level"
)

type app struct {
	logger    *slog.Logger
	clock     ports.Clock
	sessions  ports.SessionStore
	tariffs   *application.TariffStore
	analytics *application.Analytics
	uploads   *application.UploadService
	notifier  ports.OperatorNotifier
	expiry    *application.ExpiryNotifier
	renderer  func(analyticsrender.Report, analyticsrender.RenderOptions) (string, error)
	convCfg   application.ConversationConfig
}

func wireApp() (*app, error) {
	cfg := viper.New()
	setConfigDefaults(cfg)

	logger := newLogger(cfg)
	clock := ports.SystemClock{}

	repo, err := tomlrepo.NewTariffRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire tariff repository: %w", err)
	}

	tariffs, err := application.NewTariffStore(context.Background(), repo, clock, application.TariffStoreConfig{
		Gate: domain.TableGate{
			MinLocations: cfg.GetInt(minLocationsKey),
			MinBrackets:  cfg.GetInt(minBracketsKey),
		},
		HubName: cfg.GetString(hubNameKey),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("wire tariff store: %w", err)
	}

	eventLog, err := tomlrepo.NewEventLog(cfg, clock)
	if err != nil {
		return nil, fmt.Errorf("wire event log: %w", err)
	}
	analytics := application.NewAnalytics(eventLog, clock, logger)

	history, err := tomlrepo.NewNotificationHistory(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire notification history: %w", err)
	}

	notifier, err := journalnotify.New(cfg, clock, logger)
	if err != nil {
		return nil, fmt.Errorf("wire operator notifier: %w", err)
	}

	sessions, err := newSessionStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire session store: %w", err)
	}

	uploads := application.NewUploadService(tariffs, csvingest.New(), analytics, clock, logger, application.UploadConfig{
		MaxFileSize: cfg.GetInt64(maxFileSizeKey),
	})

	expiry := application.NewExpiryNotifier(tariffs, history, notifier, clock, logger, cfg.GetInt(warningDaysKey))

	return &app{
		logger:    logger,
		clock:     clock,
		sessions:  sessions,
		tariffs:   tariffs,
		analytics: analytics,
		uploads:   uploads,
		notifier:  notifier,
		expiry:    expiry,
		renderer:  analyticsrender.Render,
		convCfg: application.ConversationConfig{
			SessionTTL: cfg.GetDuration(sessionTTLKey),
			Admins:     cfg.GetStringSlice(adminsKey),
		},
	}, nil
}

// conversation assembles the chat engine around a concrete transport. The
// transport is the only dependency that varies per channel, so it is injected
// here rather than in wireApp.
func (a *app) conversation(transport ports.Transport) *application.Conversation {
	return application.NewConversation(
		a.sessions,
		a.tariffs,
		a.analytics,
		transport,
		a.notifier,
		a.uploads,
		a.clock,
		a.logger,
		a.convCfg,
	)
}

func setConfigDefaults(cfg *viper.Viper) {
	cfg.SetDefault(sessionDriverKey, string(sessionstore.StoreTypeMemory))
	cfg.SetDefault(sessionTTLKey, 30*time.Minute)
	cfg.SetDefault(redisAddrKey, "127.0.0.1:6379")
	cfg.SetDefault(hubNameKey, "Novorossiysk hub")
	cfg.SetDefault(minLocationsKey, 5)
	cfg.SetDefault(minBracketsKey, 3)
	cfg.SetDefault(warningDaysKey, application.DefaultWarningDays)
	cfg.SetDefault(logLevelKey, "warn")
}

func newLogger(cfg *viper.Viper) *slog.Logger {
	level := slog.LevelWarn
	switch cfg.GetString(logLevelKey) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newSessionStore(cfg *viper.Viper) (ports.SessionStore, error) {
	driver := sessionstore.StoreType(cfg.GetString(sessionDriverKey))
	switch driver {
	case sessionstore.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.GetString(redisAddrKey)})
		return sessionstore.NewStore(driver,
			sessionstore.WithRedisClient(client),
			sessionstore.WithRedisTTL(cfg.GetDuration(sessionTTLKey)),
		)
	default:
		return sessionstore.NewStore(driver)
	}
}
