package report

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/infrastructure/export"
	"github.com/contabilidad/backend/internal/infrastructure/metrics"
	"github.com/contabilidad/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrStorageDisabled is returned when an upload is requested without object storage
var ErrStorageDisabled = shared.NewDomainError("STORAGE_DISABLED", "Report storage is not configured")

// ObjectStorage stores exported files and hands out temporary download links
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error)
}

// ExportResult is a rendered report. When it was uploaded, URL and ExpiresAt
// point at the stored copy.
type ExportResult struct {
	Data        []byte     `json:"-"`
	ContentType string     `json:"content_type"`
	Filename    string     `json:"filename"`
	Size        int        `json:"size"`
	Key         string     `json:"key,omitempty"`
	URL         string     `json:"url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ExportService renders aging reports as CSV, XLSX or PDF files
type ExportService struct {
	aging      *AgingService
	storage    ObjectStorage
	presignTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewExportService creates a new ExportService. storage may be nil, in which
// case uploads are refused.
func NewExportService(aging *AgingService, storage ObjectStorage, presignTTL time.Duration, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &ExportService{
		aging:      aging,
		storage:    storage,
		presignTTL: presignTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// StorageEnabled reports whether exports can be uploaded
func (s *ExportService) StorageEnabled() bool {
	return s.storage != nil
}

// Export renders the aging report selected by q in format. With upload set
// the file is stored and a presigned link is returned as well.
func (s *ExportService) Export(ctx context.Context, tenantID uuid.UUID, q AgingQuery, format string, upload bool) (*ExportResult, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if upload && s.storage == nil {
		return nil, ErrStorageDisabled
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "aging", "export",
		telemetry.AttrTenantID, tenantID.String(),
		telemetry.AttrExportFormat, string(f))
	defer span.End()

	run, err := s.aging.run(ctx, tenantID, q)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	renderer, err := export.NewRenderer(f)
	if err != nil {
		return nil, err
	}
	doc := &export.AgingDocument{
		CompanyName:   run.settings.CompanyName,
		RNC:           run.settings.RNC,
		Direction:     run.direction,
		ReferenceDate: run.report.ReferenceDate,
		GeneratedAt:   s.now(),
		Report:        run.report,
		Formatter:     run.formatter,
	}

	start := time.Now()
	rendered, err := renderer.Render(doc)
	metrics.ObserveExport(string(f), time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &ExportResult{
		Data:        rendered.Data,
		ContentType: rendered.ContentType,
		Filename:    rendered.Filename,
		Size:        len(rendered.Data),
	}
	if !upload {
		return result, nil
	}

	key := path.Join("reports", tenantID.String(), "aging",
		s.now().UTC().Format("20060102T150405")+"-"+rendered.Filename)
	if err := s.storage.Upload(ctx, key, rendered.Data, rendered.ContentType); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to upload report: %w", err)
	}
	url, expiresAt, err := s.storage.PresignGet(ctx, key, s.presignTTL)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to presign report: %w", err)
	}
	result.Key = key
	result.URL = url
	result.ExpiresAt = &expiresAt

	s.logger.Info("Aging report uploaded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("key", key),
		zap.Int("size", result.Size))
	return result, nil
}
