package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/growex/quotebot/internal/domain"
	"github.com/growex/quotebot/internal/ports"
)

// UploadConfig bounds accepted rate sheets.
type UploadConfig struct {
	MaxFileSize int64
}

// UploadService runs one operator upload end to end: classify the file by
// name, validate it structurally, parse, and hand the candidate table to the
// store. Every attempt lands in the upload audit log, successful or not.
type UploadService struct {
	tariffs   *TariffStore
	ingester  ports.SpreadsheetIngester
	analytics *Analytics
	clock     ports.Clock
	logger    *slog.Logger
	config    UploadConfig
}

func NewUploadService(tariffs *TariffStore, ingester ports.SpreadsheetIngester, analytics *Analytics, clock ports.Clock, logger *slog.Logger, config UploadConfig) *UploadService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = 10 << 20
	}
	return &UploadService{
		tariffs:   tariffs,
		ingester:  ingester,
		analytics: analytics,
		clock:     clock,
		logger:    logger,
		config:    config,
	}
}

// Upload replaces a rate table from a file. On any failure the live tables
// are untouched and the returned error carries the operator-readable reason.
func (s *UploadService) Upload(ctx context.Context, userID, filename, path string, size int64) (UpdateSummary, error) {
	kind, err := s.ingester.ClassifyFilename(filename)
	if err != nil {
		err = fmt.Errorf("classify %q: %w", filename, err)
		s.audit(ctx, userID, filename, kind, domain.UploadRejected, err.Error(), nil)
		return UpdateSummary{}, err
	}

	if size > s.config.MaxFileSize {
		err := fmt.Errorf("file %q is %d bytes, limit is %d", filename, size, s.config.MaxFileSize)
		s.audit(ctx, userID, filename, kind, domain.UploadRejected, err.Error(), nil)
		return UpdateSummary{}, err
	}

	valid, reason, err := s.ingester.Validate(ctx, path, kind)
	if err != nil {
		err = fmt.Errorf("validate %q: %w", filename, err)
		s.audit(ctx, userID, filename, kind, domain.UploadFailed, err.Error(), nil)
		return UpdateSummary{}, err
	}
	if !valid {
		uerr := &domain.UploadValidationError{Reason: reason}
		s.audit(ctx, userID, filename, kind, domain.UploadRejected, reason, nil)
		return UpdateSummary{}, uerr
	}

	candidate, err := s.ingester.Parse(ctx, path, kind)
	if err != nil {
		err = fmt.Errorf("parse %q: %w", filename, err)
		s.audit(ctx, userID, filename, kind, domain.UploadFailed, err.Error(), nil)
		return UpdateSummary{}, err
	}
	candidate.SourceFile = filename

	summary, err := s.tariffs.ReplaceTable(ctx, kind, candidate)
	if err != nil {
		status := domain.UploadFailed
		var validationErr *domain.UploadValidationError
		if errors.As(err, &validationErr) {
			status = domain.UploadRejected
		}
		s.audit(ctx, userID, filename, kind, status, err.Error(), nil)
		return UpdateSummary{}, err
	}

	detail := fmt.Sprintf("replaced %s table, %d locations", kind, len(summary.Locations))
	s.auditSuccess(ctx, userID, filename, kind, detail, len(summary.Locations), candidate.ValidUntil)
	return summary, nil
}

func (s *UploadService) audit(ctx context.Context, userID, filename string, kind domain.TariffKind, status domain.UploadStatus, detail string, validUntil *time.Time) {
	s.record(ctx, domain.UploadRecord{
		Timestamp:  s.clock.Now(),
		UserID:     userID,
		Filename:   filename,
		Kind:       kind,
		Status:     status,
		Detail:     detail,
		ValidUntil: validUntil,
	})
}

func (s *UploadService) auditSuccess(ctx context.Context, userID, filename string, kind domain.TariffKind, detail string, locations int, validUntil *time.Time) {
	s.record(ctx, domain.UploadRecord{
		Timestamp:  s.clock.Now(),
		UserID:     userID,
		Filename:   filename,
		Kind:       kind,
		Status:     domain.UploadSucceeded,
		Detail:     detail,
		Locations:  locations,
		ValidUntil: validUntil,
	})
}

func (s *UploadService) record(ctx context.Context, record domain.UploadRecord) {
	if err := s.analytics.RecordUpload(ctx, record); err != nil {
		s.logger.Warn("record upload failed", "file", record.Filename, "err", err)
	}
}
