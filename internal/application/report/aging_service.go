// Package report builds aging reports of receivables and payables and
// exports them as files.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	settingsapp "github.com/contabilidad/backend/internal/application/settings"
	"github.com/contabilidad/backend/internal/domain/finance"
	"github.com/contabilidad/backend/internal/domain/report"
	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
	"github.com/contabilidad/backend/internal/domain/shared/valueobject"
	csvimport "github.com/contabilidad/backend/internal/infrastructure/import"
	"github.com/contabilidad/backend/internal/infrastructure/metrics"
	"github.com/contabilidad/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// TenantSettings exposes the tenant settings the reports are rendered with
type TenantSettings interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*settingsapp.SettingsResponse, error)
	Formatter(ctx context.Context, tenantID uuid.UUID) (*numformat.Formatter, error)
}

// AgingService computes aging reports
type AgingService struct {
	docs     finance.OpenDocumentRepository
	settings TenantSettings
	workers  int
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// AgingServiceOption configures an AgingService
type AgingServiceOption func(*AgingService)

// WithWorkers sets how many goroutines age a snapshot
func WithWorkers(n int) AgingServiceOption {
	return func(s *AgingService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLocation sets the timezone that decides which day "today" is
func WithLocation(loc *time.Location) AgingServiceOption {
	return func(s *AgingService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the clock used for the default reference date
func WithClock(now func() time.Time) AgingServiceOption {
	return func(s *AgingService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAgingLogger sets the service logger
func WithAgingLogger(logger *zap.Logger) AgingServiceOption {
	return func(s *AgingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAgingService creates a new AgingService
func NewAgingService(docs finance.OpenDocumentRepository, tenantSettings TenantSettings, opts ...AgingServiceOption) *AgingService {
	s := &AgingService{
		docs:     docs,
		settings: tenantSettings,
		workers:  4,
		location: time.UTC,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// agingRun is a computed report together with what is needed to render it
type agingRun struct {
	direction finance.Direction
	currency  valueobject.Currency
	report    report.AgingReport
	settings  *settingsapp.SettingsResponse
	formatter *numformat.Formatter
}

// newAgingRun labels money with the report's currency, which may differ
// from the tenant's default
func newAgingRun(direction finance.Direction, currency valueobject.Currency, rep report.AgingReport,
	tenant *settingsapp.SettingsResponse, formatter *numformat.Formatter) *agingRun {
	code := currency.String()
	return &agingRun{
		direction: direction,
		currency:  currency,
		report:    rep,
		settings:  tenant,
		formatter: formatter.Configure(numformat.RawSettings{DefaultCurrency: &code}),
	}
}

func (r *agingRun) response() AgingResponse {
	return toAgingResponse(string(r.direction), r.currency.String(), r.currency.Label(), r.report, r.formatter)
}

// GetAging ages the tenant's open documents
func (s *AgingService) GetAging(ctx context.Context, tenantID uuid.UUID, q AgingQuery) (*AgingResponse, error) {
	run, err := s.run(ctx, tenantID, q)
	if err != nil {
		return nil, err
	}
	resp := run.response()
	return &resp, nil
}

func (s *AgingService) run(ctx context.Context, tenantID uuid.UUID, q AgingQuery) (*agingRun, error) {
	direction, err := finance.ParseDirection(q.Direction)
	if err != nil {
		return nil, err
	}
	ref, err := s.referenceDate(q.AsOf)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "aging", "get",
		telemetry.AttrTenantID, tenantID.String(),
		telemetry.AttrDirection, string(direction),
		telemetry.AttrReferenceDate, ref.Format(dateLayout))
	defer span.End()

	tenant, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	formatter, err := s.settings.Formatter(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	currency, err := s.currency(q.Currency, tenant)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	docs, err := s.docs.ListOpen(ctx, tenantID, finance.OpenDocumentFilter{
		Direction:        direction,
		CounterpartyID:   q.CounterpartyID,
		IssuedOnOrBefore: &ref,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list open documents: %w", err)
	}

	items := make([]report.OpenItem, 0, len(docs))
	for i := range docs {
		if docs[i].Currency != currency || !docs[i].IsAgeable() {
			continue
		}
		items = append(items, docs[i].ToOpenItem())
	}

	start := time.Now()
	rep, err := report.ComputeAgingParallel(ctx, items, ref, s.workers, report.WithStrictMode(q.Strict))
	metrics.ObserveAging(string(direction), len(items), skipReasons(rep.Skipped), time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.AttrItemCount, len(items),
		telemetry.AttrSkippedCount, len(rep.Skipped))
	if len(rep.Skipped) > 0 {
		s.logger.Warn("Open documents left out of aging",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("skipped", len(rep.Skipped)))
	}

	return newAgingRun(direction, currency, rep, tenant, formatter), nil
}

// ImportAging ages the open items of an uploaded CSV file. Amounts are read
// with the tenant's separators. Rows that fail validation are reported and
// left out.
func (s *AgingService) ImportAging(ctx context.Context, tenantID uuid.UUID, file io.Reader, q AgingQuery) (*ImportAgingResponse, error) {
	ref, err := s.referenceDate(q.AsOf)
	if err != nil {
		return nil, err
	}
	direction, err := finance.ParseDirection(q.Direction)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "aging", "import",
		telemetry.AttrTenantID, tenantID.String(),
		telemetry.AttrReferenceDate, ref.Format(dateLayout))
	defer span.End()

	tenant, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	formatter, err := s.settings.Formatter(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	currency, err := s.currency(q.Currency, tenant)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	imported, err := csvimport.ReadOpenItemsFile(file, csvimport.WithAmountFormat(formatter.Settings()))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(csvimport.ErrorCode(err), "Open item file could not be read", err)
	}

	start := time.Now()
	rep, err := report.ComputeAgingFromRecords(imported.Records, ref, report.WithStrictMode(q.Strict))
	metrics.ObserveAging("import", len(imported.Records), skipReasons(rep.Skipped), time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.AttrItemCount, len(imported.Records),
		telemetry.AttrSkippedCount, len(rep.Skipped))

	s.logger.Info("Aging computed from uploaded file",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("rows", imported.TotalRows),
		zap.Int("valid_rows", imported.ValidRows()),
		zap.Int("row_errors", imported.TotalErrors))

	run := newAgingRun(direction, currency, rep, tenant, formatter)
	return &ImportAgingResponse{
		Aging:  run.response(),
		Import: toImportSummary(imported),
	}, nil
}

// referenceDate parses asOf, defaulting to today in the service timezone.
// The result is a UTC midnight carrying the calendar date.
func (s *AgingService) referenceDate(asOf string) (time.Time, error) {
	asOf = strings.TrimSpace(asOf)
	if asOf == "" {
		now := s.now().In(s.location)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	ref, err := time.Parse(dateLayout, asOf)
	if err != nil {
		return time.Time{}, shared.NewDomainError("INVALID_DATE", "as_of must use the YYYY-MM-DD format")
	}
	return ref, nil
}

func (s *AgingService) currency(code string, tenant *settingsapp.SettingsResponse) (valueobject.Currency, error) {
	if strings.TrimSpace(code) == "" {
		code = tenant.DefaultCurrency
	}
	cur, err := valueobject.ParseCurrency(code)
	if err != nil {
		return "", shared.WrapDomainError("INVALID_CURRENCY", "Currency must be an ISO 4217 code", err)
	}
	return cur, nil
}

func skipReasons(skipped []report.SkippedItem) []string {
	reasons := make([]string, len(skipped))
	for i, item := range skipped {
		reasons[i] = item.Reason
	}
	return reasons
}

func toImportSummary(imp *csvimport.OpenItemImport) ImportSummary {
	summary := ImportSummary{
		TotalRows:  imp.TotalRows,
		ValidRows:  imp.ValidRows(),
		ErrorCount: imp.TotalErrors,
		Errors:     make([]RowIssue, 0, len(imp.Errors)),
		Truncated:  imp.Truncated,
	}
	for _, e := range imp.Errors {
		summary.Errors = append(summary.Errors, RowIssue{
			Row:     e.Row,
			Column:  e.Column,
			Code:    e.Code,
			Message: e.Message,
			Value:   e.Value,
		})
	}
	return summary
}
