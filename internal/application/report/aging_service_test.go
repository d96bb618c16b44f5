package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	settingsapp "github.com/contabilidad/backend/internal/application/settings"
	"github.com/contabilidad/backend/internal/domain/finance"
	"github.com/contabilidad/backend/internal/domain/report"
	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
	"github.com/contabilidad/backend/internal/domain/shared/valueobject"
	csvimport "github.com/contabilidad/backend/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// MockOpenDocumentRepository is a mock implementation of finance.OpenDocumentRepository
type MockOpenDocumentRepository struct {
	mock.Mock
}

func (m *MockOpenDocumentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.OpenDocument, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.OpenDocument), args.Error(1)
}

func (m *MockOpenDocumentRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter finance.OpenDocumentFilter) ([]finance.OpenDocument, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]finance.OpenDocument), args.Get(1).(int64), args.Error(2)
}

func (m *MockOpenDocumentRepository) ListOpen(ctx context.Context, tenantID uuid.UUID, filter finance.OpenDocumentFilter) ([]finance.OpenDocument, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.OpenDocument), args.Error(1)
}

func (m *MockOpenDocumentRepository) CountOpen(ctx context.Context, tenantID uuid.UUID, direction finance.Direction) (int64, error) {
	args := m.Called(ctx, tenantID, direction)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOpenDocumentRepository) Save(ctx context.Context, doc *finance.OpenDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockOpenDocumentRepository) ExistsByNCF(ctx context.Context, tenantID uuid.UUID, direction finance.Direction, ncf string) (bool, error) {
	args := m.Called(ctx, tenantID, direction, ncf)
	return args.Bool(0), args.Error(1)
}

type stubTenantSettings struct {
	settings  *settingsapp.SettingsResponse
	formatter *numformat.Formatter
	err       error
}

func (s *stubTenantSettings) Get(context.Context, uuid.UUID) (*settingsapp.SettingsResponse, error) {
	return s.settings, s.err
}

func (s *stubTenantSettings) Formatter(context.Context, uuid.UUID) (*numformat.Formatter, error) {
	return s.formatter, s.err
}

func defaultTenant() *stubTenantSettings {
	return &stubTenantSettings{
		settings: &settingsapp.SettingsResponse{
			CompanyName:     "Ferretería Ozama SRL",
			RNC:             "101123456",
			DefaultCurrency: "DOP",
		},
		formatter: numformat.NewDefault(),
	}
}

func commaTenant() *stubTenantSettings {
	t := defaultTenant()
	format := "1.234,56"
	t.formatter = numformat.NewDefault().Configure(numformat.RawSettings{NumberFormat: &format})
	return t
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newDoc(t *testing.T, tenantID uuid.UUID, kind finance.DocumentKind, ncf string, cp uuid.UUID, name string,
	total, applied int64, cur valueobject.Currency, due time.Time) finance.OpenDocument {
	t.Helper()
	money, err := valueobject.NewMoney(decimal.NewFromInt(total), cur)
	require.NoError(t, err)
	doc, err := finance.NewOpenDocument(tenantID, kind, finance.DirectionReceivable, ncf, cp, name,
		money, date(2024, 1, 1), &due)
	require.NoError(t, err)
	if applied > 0 {
		payment, err := valueobject.NewMoney(decimal.NewFromInt(applied), cur)
		require.NoError(t, err)
		require.NoError(t, doc.ApplyPayment(payment))
	}
	return *doc
}

func sampleDocuments(t *testing.T, tenantID uuid.UUID) []finance.OpenDocument {
	c1, c2 := uuid.New(), uuid.New()
	return []finance.OpenDocument{
		newDoc(t, tenantID, finance.DocumentKindInvoice, "B0100000001", c1, "Colmado La Esquina", 1000, 0, valueobject.DOP, date(2024, 3, 15)),
		newDoc(t, tenantID, finance.DocumentKindInvoice, "B0100000002", c1, "Colmado La Esquina", 500, 200, valueobject.DOP, date(2024, 4, 10)),
		newDoc(t, tenantID, finance.DocumentKindDebitNote, "B0300000001", c2, "Farmacia Carol", 400, 0, valueobject.DOP, date(2024, 1, 15)),
		newDoc(t, tenantID, finance.DocumentKindCreditNote, "B0400000001", c2, "Farmacia Carol", 150, 0, valueobject.DOP, date(2024, 1, 15)),
		newDoc(t, tenantID, finance.DocumentKindInvoice, "B0100000003", c2, "Farmacia Carol", 99, 0, valueobject.USD, date(2024, 1, 15)),
	}
}

func TestAgingService_GetAging(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	ref := date(2024, 3, 31)

	repo := new(MockOpenDocumentRepository)
	repo.On("ListOpen", mock.Anything, tenantID, finance.OpenDocumentFilter{
		Direction:        finance.DirectionReceivable,
		IssuedOnOrBefore: &ref,
	}).Return(sampleDocuments(t, tenantID), nil)

	svc := NewAgingService(repo, defaultTenant(), WithWorkers(3))
	resp, err := svc.GetAging(ctx, tenantID, AgingQuery{AsOf: "2024-03-31"})
	require.NoError(t, err)

	assert.Equal(t, "RECEIVABLE", resp.Direction)
	assert.Equal(t, "DOP", resp.Currency)
	assert.Equal(t, "2024-03-31", resp.ReferenceDate)
	assert.Equal(t, 3, resp.ItemCount)
	require.Len(t, resp.PerCounterparty, 2)

	c1 := resp.PerCounterparty[0]
	assert.Equal(t, "Colmado La Esquina", c1.CounterpartyName)
	assert.True(t, c1.Current.Equal(decimal.NewFromInt(300)))
	assert.True(t, c1.D1To30.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "RD$ 1,300.00", c1.FormattedTotal)

	c2 := resp.PerCounterparty[1]
	assert.True(t, c2.D61To90.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, 1, c2.ItemCount)

	assert.True(t, resp.GrandTotal.Total.Equal(decimal.NewFromInt(1700)))
	assert.Equal(t, "RD$ 1,700.00", resp.GrandTotal.FormattedTotal)
	assert.Equal(t, "RD$ 0.00", resp.GrandTotal.FormattedOver90)
	assert.Empty(t, resp.Skipped)
}

func TestAgingService_GetAging_CurrencyFilter(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := new(MockOpenDocumentRepository)
	repo.On("ListOpen", mock.Anything, tenantID, mock.Anything).Return(sampleDocuments(t, tenantID), nil)

	resp, err := NewAgingService(repo, defaultTenant()).
		GetAging(ctx, tenantID, AgingQuery{AsOf: "2024-03-31", Currency: "usd"})
	require.NoError(t, err)

	assert.Equal(t, "USD", resp.Currency)
	require.Len(t, resp.PerCounterparty, 1)
	assert.True(t, resp.GrandTotal.Over90.Equal(decimal.NewFromInt(99)))
	assert.Equal(t, "US$ 99.00", resp.GrandTotal.FormattedTotal)
}

func TestAgingService_DefaultReferenceDate(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	loc, err := time.LoadLocation("America/Santo_Domingo")
	require.NoError(t, err)

	// 02:30 UTC on April 1st is still March 31st in Santo Domingo
	clock := func() time.Time { return time.Date(2024, 4, 1, 2, 30, 0, 0, time.UTC) }
	ref := date(2024, 3, 31)

	repo := new(MockOpenDocumentRepository)
	repo.On("ListOpen", mock.Anything, tenantID, finance.OpenDocumentFilter{
		Direction:        finance.DirectionPayable,
		IssuedOnOrBefore: &ref,
	}).Return([]finance.OpenDocument{}, nil)

	resp, err := NewAgingService(repo, defaultTenant(), WithLocation(loc), WithClock(clock)).
		GetAging(ctx, tenantID, AgingQuery{Direction: "payable"})
	require.NoError(t, err)

	assert.Equal(t, "2024-03-31", resp.ReferenceDate)
	assert.Equal(t, "PAYABLE", resp.Direction)
	assert.Empty(t, resp.PerCounterparty)
	assert.Equal(t, "RD$ 0.00", resp.GrandTotal.FormattedTotal)
}

func TestAgingService_GetAging_Errors(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("bad as_of", func(t *testing.T) {
		_, err := NewAgingService(new(MockOpenDocumentRepository), defaultTenant()).
			GetAging(ctx, tenantID, AgingQuery{AsOf: "31/03/2024"})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "INVALID_DATE", de.Code)
	})

	t.Run("bad direction", func(t *testing.T) {
		_, err := NewAgingService(new(MockOpenDocumentRepository), defaultTenant()).
			GetAging(ctx, tenantID, AgingQuery{Direction: "both"})
		assert.Error(t, err)
	})

	t.Run("settings failure", func(t *testing.T) {
		tenant := defaultTenant()
		tenant.err = errors.New("db down")
		_, err := NewAgingService(new(MockOpenDocumentRepository), tenant).
			GetAging(ctx, tenantID, AgingQuery{AsOf: "2024-03-31"})
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := new(MockOpenDocumentRepository)
		repo.On("ListOpen", mock.Anything, tenantID, mock.Anything).Return(nil, errors.New("timeout"))
		_, err := NewAgingService(repo, defaultTenant()).
			GetAging(ctx, tenantID, AgingQuery{AsOf: "2024-03-31"})
		assert.ErrorContains(t, err, "timeout")
	})
}

const sampleImport = "documento;rnc;cliente;monto;pagado;vencimiento\n" +
	"B0100000001;101000001;Colmado A;1.000,00;;15/03/2024\n" +
	"B0100000002;101000001;Colmado A;500,00;100,00;2024-04-10\n" +
	"B0100000003;101000002;Farmacia B;abc;;2024-01-01\n"

func TestAgingService_ImportAging(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	resp, err := NewAgingService(new(MockOpenDocumentRepository), commaTenant()).
		ImportAging(ctx, tenantID, strings.NewReader(sampleImport), AgingQuery{AsOf: "2024-03-31"})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Import.TotalRows)
	assert.Equal(t, 2, resp.Import.ValidRows)
	assert.Equal(t, 1, resp.Import.ErrorCount)
	require.Len(t, resp.Import.Errors, 1)
	assert.Equal(t, csvimport.ErrCodeImportInvalidAmount, resp.Import.Errors[0].Code)

	require.Len(t, resp.Aging.PerCounterparty, 1)
	assert.True(t, resp.Aging.GrandTotal.D1To30.Equal(decimal.NewFromInt(1000)))
	assert.True(t, resp.Aging.GrandTotal.Current.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, "RD$ 1.400,00", resp.Aging.GrandTotal.FormattedTotal)
}

func TestAgingService_ImportAging_EmptyFile(t *testing.T) {
	_, err := NewAgingService(new(MockOpenDocumentRepository), defaultTenant()).
		ImportAging(context.Background(), uuid.New(), strings.NewReader("  \n"), AgingQuery{AsOf: "2024-03-31"})

	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, csvimport.ErrCodeImportEmptyFile, de.Code)
}

func TestAgingService_StrictMode(t *testing.T) {
	records := "id,counterparty_id,original_amount,due_date\nX1,C1,100,\n"
	_, err := NewAgingService(new(MockOpenDocumentRepository), defaultTenant()).
		ImportAging(context.Background(), uuid.New(), strings.NewReader(records), AgingQuery{AsOf: "2024-03-31", Strict: true})
	assert.ErrorIs(t, err, report.ErrInvalidOpenItem)
}

func TestAgingService_InvalidCurrencyMarksSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	repo := new(MockOpenDocumentRepository)
	svc := NewAgingService(repo, defaultTenant())
	q := AgingQuery{AsOf: "2024-03-31", Currency: "XYZ1"}

	_, err := svc.GetAging(context.Background(), uuid.New(), q)
	require.Error(t, err)
	_, err = svc.ImportAging(context.Background(), uuid.New(), strings.NewReader(sampleImport), q)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	for _, span := range spans {
		assert.Equal(t, codes.Error, span.Status().Code, span.Name())
		require.NotEmpty(t, span.Events(), span.Name())
		assert.Equal(t, "exception", span.Events()[0].Name)
	}
	repo.AssertNotCalled(t, "ListOpen", mock.Anything, mock.Anything, mock.Anything)
}
