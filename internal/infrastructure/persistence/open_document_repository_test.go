package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/contabilidad/backend/internal/domain/finance"
	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func saveDocument(t *testing.T, repo *GormOpenDocumentRepository, tenantID uuid.UUID, kind finance.DocumentKind, direction finance.Direction, ncf string, counterpartyID uuid.UUID, name, total string, issue time.Time, due *time.Time) *finance.OpenDocument {
	t.Helper()
	doc, err := finance.NewOpenDocument(tenantID, kind, direction, ncf, counterpartyID, name,
		valueobject.NewMoneyDOP(decimal.RequireFromString(total)), issue, due)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), doc))
	return doc
}

func TestGormOpenDocumentRepository_SaveAndFind(t *testing.T) {
	repo := NewGormOpenDocumentRepository(setupSQLiteDB(t))
	ctx := context.Background()
	tenantID := uuid.New()
	due := day(2024, 2, 15)

	doc := saveDocument(t, repo, tenantID, finance.DocumentKindInvoice, finance.DirectionReceivable,
		"B0100000042", uuid.New(), "Farmacia Carol", "1180.50", day(2024, 1, 15), &due)

	found, err := repo.FindByID(ctx, tenantID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "B0100000042", found.NCF)
	assert.Equal(t, finance.DocumentStatusOpen, found.Status)
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("1180.50")))
	assert.True(t, found.AppliedAmount.IsZero())
	require.NotNil(t, found.DueDate)
	assert.True(t, found.DueDate.Equal(due))
	assert.Equal(t, valueobject.DOP, found.Currency)

	_, err = repo.FindByID(ctx, uuid.New(), doc.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "other tenants cannot read the document")
}

func TestGormOpenDocumentRepository_ApplyPaymentRoundTrip(t *testing.T) {
	repo := NewGormOpenDocumentRepository(setupSQLiteDB(t))
	ctx := context.Background()
	tenantID := uuid.New()

	doc := saveDocument(t, repo, tenantID, finance.DocumentKindInvoice, finance.DirectionReceivable,
		"B0100000001", uuid.New(), "Cliente", "1000", day(2024, 1, 1), nil)

	loaded, err := repo.FindByID(ctx, tenantID, doc.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.ApplyPayment(valueobject.NewMoneyDOP(decimal.NewFromInt(400))))
	require.NoError(t, repo.Save(ctx, loaded))

	stale := *doc
	require.NoError(t, stale.ApplyPayment(valueobject.NewMoneyDOP(decimal.NewFromInt(100))))
	assert.ErrorIs(t, repo.Save(ctx, &stale), shared.ErrConflict)

	stored, err := repo.FindByID(ctx, tenantID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, finance.DocumentStatusPartial, stored.Status)
	assert.True(t, stored.AppliedAmount.Equal(decimal.NewFromInt(400)))
	assert.True(t, stored.Outstanding().Equal(decimal.NewFromInt(600)))
	assert.Equal(t, 2, stored.Version)
}

func TestGormOpenDocumentRepository_ListOpen(t *testing.T) {
	repo := NewGormOpenDocumentRepository(setupSQLiteDB(t))
	ctx := context.Background()
	tenantID := uuid.New()
	customerA := uuid.New()
	customerB := uuid.New()

	inv1 := saveDocument(t, repo, tenantID, finance.DocumentKindInvoice, finance.DirectionReceivable,
		"B0100000001", customerA, "A", "100", day(2024, 1, 10), nil)
	saveDocument(t, repo, tenantID, finance.DocumentKindDebitNote, finance.DirectionReceivable,
		"B0300000001", customerB, "B", "50", day(2024, 1, 5), nil)
	saveDocument(t, repo, tenantID, finance.DocumentKindCreditNote, finance.DirectionReceivable,
		"B0400000001", customerA, "A", "20", day(2024, 1, 6), nil)
	saveDocument(t, repo, tenantID, finance.DocumentKindInvoice, finance.DirectionPayable,
		"B0100000099", customerA, "Proveedor", "300", day(2024, 1, 7), nil)
	saveDocument(t, repo, tenantID, finance.DocumentKindInvoice, finance.DirectionReceivable,
		"B0100000002", customerA, "A", "70", day(2024, 3, 1), nil)
	saveDocument(t, repo, uuid.New(), finance.DocumentKindInvoice, finance.DirectionReceivable,
		"B0100000003", customerA, "A", "999", day(2024, 1, 1), nil)

	voided := saveDocument(t, repo, tenantID, finance.DocumentKindInvoice, finance.DirectionReceivable,
		"B0100000004", customerA, "A", "10", day(2024, 1, 2), nil)
	require.NoError(t, voided.Void("duplicado"))
	require.NoError(t, repo.Save(ctx, voided))

	paid, err := repo.FindByID(ctx, tenantID, inv1.ID)
	require.NoError(t, err)
	require.NoError(t, paid.ApplyPayment(valueobject.NewMoneyDOP(decimal.NewFromInt(30))))
	require.NoError(t, repo.Save(ctx, paid))

	asOf := day(2024, 1, 31)
	docs, err := repo.ListOpen(ctx, tenantID, finance.OpenDocumentFilter{
		Direction:        finance.DirectionReceivable,
		IssuedOnOrBefore: &asOf,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "B0300000001", docs[0].NCF, "oldest issue date first")
	assert.Equal(t, "B0100000001", docs[1].NCF)
	assert.Equal(t, finance.DocumentStatusPartial, docs[1].Status)

	docs, err = repo.ListOpen(ctx, tenantID, finance.OpenDocumentFilter{
		Direction:      finance.DirectionReceivable,
		CounterpartyID: &customerA,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "B0100000001", docs[0].NCF)
	assert.Equal(t, "B0100000002", docs[1].NCF)

	count, err := repo.CountOpen(ctx, tenantID, finance.DirectionReceivable)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = repo.CountOpen(ctx, tenantID, finance.DirectionPayable)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGormOpenDocumentRepository_IssuedOnReferenceDay(t *testing.T) {
	repo := NewGormOpenDocumentRepository(setupSQLiteDB(t))
	ctx := context.Background()
	tenantID := uuid.New()

	saveDocument(t, repo, tenantID, finance.DocumentKindInvoice, finance.DirectionReceivable,
		"B0100000001", uuid.New(), "A", "100", day(2024, 5, 31), nil)

	asOf := time.Date(2024, 5, 31, 8, 30, 0, 0, time.UTC)
	docs, err := repo.ListOpen(ctx, tenantID, finance.OpenDocumentFilter{IssuedOnOrBefore: &asOf})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	before := day(2024, 5, 30)
	docs, err = repo.ListOpen(ctx, tenantID, finance.OpenDocumentFilter{IssuedOnOrBefore: &before})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestGormOpenDocumentRepository_FindAll(t *testing.T) {
	repo := NewGormOpenDocumentRepository(setupSQLiteDB(t))
	ctx := context.Background()
	tenantID := uuid.New()
	customer := uuid.New()

	for i, name := range []string{"Bodega Central", "Bodega Norte", "Panadería Sur"} {
		saveDocument(t, repo, tenantID, finance.DocumentKindInvoice, finance.DirectionReceivable,
			"B010000000"+string(rune('1'+i)), customer, name, "100", day(2024, 1, 1+i), nil)
	}

	filter := finance.OpenDocumentFilter{Filter: shared.Filter{Page: 1, PageSize: 2, OrderBy: "issue_date", OrderDir: "asc"}}
	docs, total, err := repo.FindAll(ctx, tenantID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, docs, 2)
	assert.Equal(t, "Bodega Central", docs[0].CounterpartyName)

	filter.Page = 2
	docs, _, err = repo.FindAll(ctx, tenantID, filter)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Panadería Sur", docs[0].CounterpartyName)

	docs, total, err = repo.FindAll(ctx, tenantID, finance.OpenDocumentFilter{
		Filter: shared.Filter{Search: "bodega", OrderBy: "counterparty_name; DROP TABLE open_documents"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, docs, 2)
}

func TestGormOpenDocumentRepository_ExistsByNCF(t *testing.T) {
	repo := NewGormOpenDocumentRepository(setupSQLiteDB(t))
	ctx := context.Background()
	tenantID := uuid.New()

	saveDocument(t, repo, tenantID, finance.DocumentKindInvoice, finance.DirectionReceivable,
		"E310000000001", uuid.New(), "A", "100", day(2024, 1, 1), nil)

	exists, err := repo.ExistsByNCF(ctx, tenantID, finance.DirectionReceivable, " E310000000001 ")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByNCF(ctx, tenantID, finance.DirectionPayable, "E310000000001")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsByNCF(ctx, uuid.New(), finance.DirectionReceivable, "E310000000001")
	require.NoError(t, err)
	assert.False(t, exists)
}
