package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/talentflow/ats-offer-api/pkg/config"
	appErrors "github.com/talentflow/ats-offer-api/pkg/errors"
	"github.com/talentflow/ats-offer-api/pkg/export"
	"github.com/talentflow/ats-offer-api/pkg/storage"
)

type auditExporter interface {
	Export(ctx context.Context, applicationID string) (string, error)
	ExportDataset(ctx context.Context, applicationID string) (export.Dataset, error)
}

// ArchivedExport references a stored compliance export. The token is the only
// handle clients receive; the filesystem layout stays internal.
type ArchivedExport struct {
	Token     string    `json:"token"`
	Filename  string    `json:"filename"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExportArchiveService persists rendered compliance exports and hands out
// time-limited signed download tokens, so large exports are fetched out of
// band instead of streamed inline.
type ExportArchiveService struct {
	audit  auditExporter
	store  *storage.LocalStorage
	signer *storage.SignedURLSigner
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	retain time.Duration
	logger *zap.Logger
}

// NewExportArchiveService constructs the archive. Returns an error when the
// exports directory cannot be prepared.
func NewExportArchiveService(audit auditExporter, cfg config.ExportsConfig, logger *zap.Logger) (*ExportArchiveService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := storage.NewLocalStorage(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return &ExportArchiveService{
		audit:  audit,
		store:  store,
		signer: storage.NewSignedURLSigner(cfg.SigningSecret, cfg.DownloadTTL),
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		retain: cfg.DownloadTTL,
		logger: logger,
	}, nil
}

// Archive renders the trail in the requested format, stores it and returns a
// signed download reference.
func (s *ExportArchiveService) Archive(ctx context.Context, applicationID, format string) (*ArchivedExport, error) {
	var raw []byte
	switch format {
	case "json":
		payload, err := s.audit.Export(ctx, applicationID)
		if err != nil {
			return nil, err
		}
		raw = []byte(payload)
	case "csv":
		dataset, err := s.audit.ExportDataset(ctx, applicationID)
		if err != nil {
			return nil, err
		}
		raw, err = s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
	case "pdf":
		dataset, err := s.audit.ExportDataset(ctx, applicationID)
		if err != nil {
			return nil, err
		}
		raw, err = s.pdf.Render(dataset, "Audit Trail "+applicationID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	filename := fmt.Sprintf("audit/%s/%d.%s", applicationID, time.Now().UTC().UnixNano(), format)
	if _, err := s.store.Save(filename, raw); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate("audit-"+applicationID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export token")
	}

	s.logger.Info("compliance export archived",
		zap.String("application_id", applicationID),
		zap.String("format", format),
		zap.Time("expires_at", expiresAt))

	return &ArchivedExport{Token: token, Filename: filename, ExpiresAt: expiresAt}, nil
}

// Open validates a download token and returns the stored file.
func (s *ExportArchiveService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, relPath, nil
}

// Cleanup removes archived exports older than the download TTL.
func (s *ExportArchiveService) Cleanup() (int, error) {
	deleted, err := s.store.CleanupOlderThan(s.retain)
	if err != nil {
		return 0, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return len(deleted), nil
}
