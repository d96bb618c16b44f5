package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contabilidad/backend/internal/domain/finance"
	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
	"github.com/contabilidad/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// FormatterProvider returns the number formatter of a tenant
type FormatterProvider interface {
	Formatter(ctx context.Context, tenantID uuid.UUID) (*numformat.Formatter, error)
}

// DocumentService manages invoices, notes and advances that feed the aging report
type DocumentService struct {
	repo       finance.OpenDocumentRepository
	formatters FormatterProvider
	logger     *zap.Logger
}

// NewDocumentService creates a new DocumentService. A nil formatter provider
// renders amounts with the process-wide formatter.
func NewDocumentService(repo finance.OpenDocumentRepository, formatters FormatterProvider, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		repo:       repo,
		formatters: formatters,
		logger:     logger,
	}
}

// Create registers a new open document. The NCF must be unique per direction.
func (s *DocumentService) Create(ctx context.Context, tenantID uuid.UUID, req CreateDocumentRequest) (*DocumentResponse, error) {
	direction, err := finance.ParseDirection(req.Direction)
	if err != nil {
		return nil, err
	}
	kind := finance.DocumentKind(strings.ToUpper(strings.TrimSpace(req.Kind)))

	cur := valueobject.DefaultCurrency
	if strings.TrimSpace(req.Currency) != "" {
		cur, err = valueobject.ParseCurrency(req.Currency)
		if err != nil {
			return nil, shared.WrapDomainError("INVALID_CURRENCY", "Currency must be an ISO 4217 code", err)
		}
	}
	total, err := valueobject.NewMoney(req.TotalAmount, cur)
	if err != nil {
		return nil, shared.WrapDomainError("INVALID_AMOUNT", "Total amount is not valid", err)
	}

	issueDate, err := parseDate("issue_date", req.IssueDate)
	if err != nil {
		return nil, err
	}
	var dueDate *time.Time
	if req.DueDate != nil && strings.TrimSpace(*req.DueDate) != "" {
		due, err := parseDate("due_date", *req.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = &due
	}

	exists, err := s.repo.ExistsByNCF(ctx, tenantID, direction, req.NCF)
	if err != nil {
		return nil, fmt.Errorf("failed to check NCF: %w", err)
	}
	if exists {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code,
			fmt.Sprintf("A %s document with NCF %s already exists", strings.ToLower(string(direction)), strings.TrimSpace(req.NCF)))
	}

	doc, err := finance.NewOpenDocument(tenantID, kind, direction, req.NCF,
		req.CounterpartyID, req.CounterpartyName, total, issueDate, dueDate)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		doc.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("Open document created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("document_id", doc.ID.String()),
		zap.String("ncf", doc.NCF),
		zap.String("kind", string(doc.Kind)))
	return s.respond(ctx, tenantID, doc), nil
}

// Get returns a document by ID
func (s *DocumentService) Get(ctx context.Context, tenantID, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, tenantID, doc), nil
}

// List returns a page of documents
func (s *DocumentService) List(ctx context.Context, tenantID uuid.UUID, filter DocumentListFilter) ([]DocumentResponse, int64, error) {
	domainFilter := finance.OpenDocumentFilter{
		Filter:         shared.NewFilter(filter.Page, filter.PageSize),
		CounterpartyID: filter.CounterpartyID,
	}
	domainFilter.OrderBy = "issue_date"
	domainFilter.Search = filter.Search
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.Direction != "" {
		direction, err := finance.ParseDirection(filter.Direction)
		if err != nil {
			return nil, 0, err
		}
		domainFilter.Direction = direction
	}
	if filter.Status != "" {
		domainFilter.Statuses = []finance.DocumentStatus{finance.DocumentStatus(strings.ToUpper(filter.Status))}
	}
	if filter.Kind != "" {
		domainFilter.Kinds = []finance.DocumentKind{finance.DocumentKind(strings.ToUpper(filter.Kind))}
	}

	docs, total, err := s.repo.FindAll(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	f := s.formatter(ctx, tenantID)
	out := make([]DocumentResponse, len(docs))
	for i := range docs {
		out[i] = toDocumentResponse(&docs[i], f)
	}
	return out, total, nil
}

// ListOpen returns every ageable document with a balance in one direction,
// optionally restricted to a counterparty and to documents issued by asOf.
func (s *DocumentService) ListOpen(ctx context.Context, tenantID uuid.UUID, direction finance.Direction, counterpartyID *uuid.UUID, asOf *time.Time) ([]finance.OpenDocument, error) {
	docs, err := s.repo.ListOpen(ctx, tenantID, finance.OpenDocumentFilter{
		Direction:        direction,
		CounterpartyID:   counterpartyID,
		IssuedOnOrBefore: asOf,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list open documents: %w", err)
	}
	return docs, nil
}

// ApplyPayment applies a payment, credit note or advance to a document
func (s *DocumentService) ApplyPayment(ctx context.Context, tenantID, id uuid.UUID, req ApplyPaymentRequest) (*DocumentResponse, error) {
	doc, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	cur := doc.Currency
	if strings.TrimSpace(req.Currency) != "" {
		cur, err = valueobject.ParseCurrency(req.Currency)
		if err != nil {
			return nil, shared.WrapDomainError("INVALID_CURRENCY", "Currency must be an ISO 4217 code", err)
		}
	}
	amount, err := valueobject.NewMoney(req.Amount, cur)
	if err != nil {
		return nil, shared.WrapDomainError("INVALID_AMOUNT", "Payment amount is not valid", err)
	}

	if err := doc.ApplyPayment(amount); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("Payment applied to open document",
		zap.String("tenant_id", tenantID.String()),
		zap.String("document_id", doc.ID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("status", string(doc.Status)))
	return s.respond(ctx, tenantID, doc), nil
}

// Void cancels a document that has no applications
func (s *DocumentService) Void(ctx context.Context, tenantID, id uuid.UUID, req VoidDocumentRequest) (*DocumentResponse, error) {
	doc, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := doc.Void(req.Reason); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("Open document voided",
		zap.String("tenant_id", tenantID.String()),
		zap.String("document_id", doc.ID.String()))
	return s.respond(ctx, tenantID, doc), nil
}

func (s *DocumentService) respond(ctx context.Context, tenantID uuid.UUID, doc *finance.OpenDocument) *DocumentResponse {
	resp := toDocumentResponse(doc, s.formatter(ctx, tenantID))
	return &resp
}

// formatter falls back to the process-wide formatter when tenant settings
// cannot be read; amounts are still returned unformatted alongside.
func (s *DocumentService) formatter(ctx context.Context, tenantID uuid.UUID) *numformat.Formatter {
	if s.formatters == nil {
		return numformat.Current()
	}
	f, err := s.formatters.Formatter(ctx, tenantID)
	if err != nil {
		s.logger.Warn("Using default number format",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return numformat.Current()
	}
	return f
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, shared.NewDomainError("INVALID_DATE",
			fmt.Sprintf("%s must use the YYYY-MM-DD format", field))
	}
	return t, nil
}
