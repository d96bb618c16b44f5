package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/contabilidad/backend/internal/domain/settings"
	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestGormAccountingSettingsRepository_SaveAndFind(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormAccountingSettingsRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := repo.FindByTenant(ctx, tenantID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	s := settings.NewAccountingSettings(tenantID)
	require.NoError(t, s.Update(settings.Changes{
		CompanyName:     strPtr("Ferretería Ochoa"),
		RNC:             strPtr("101-01234-5"),
		DefaultCurrency: strPtr("usd"),
		DecimalPlaces:   intPtr(3),
		NumberFormat:    strPtr("1.234,56"),
	}))
	require.NoError(t, repo.Save(ctx, s))

	found, err := repo.FindByTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, found.ID)
	assert.Equal(t, tenantID, found.TenantID)
	assert.Equal(t, "Ferretería Ochoa", found.CompanyName)
	assert.Equal(t, "101012345", found.RNC)
	assert.Equal(t, valueobject.USD, found.DefaultCurrency)
	assert.Equal(t, 3, found.DecimalPlaces)
	assert.Equal(t, "1.234,56", found.NumberFormat)
	assert.True(t, found.ITBISRate.Equal(decimal.RequireFromString("0.18")))
	assert.Equal(t, s.Version, found.Version)

	formatted := found.Formatter().FormatMoney(1234.5)
	assert.Equal(t, "US$ 1.234,500", formatted)
}

func TestGormAccountingSettingsRepository_OptimisticLock(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormAccountingSettingsRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	s := settings.NewAccountingSettings(tenantID)
	require.NoError(t, repo.Save(ctx, s))

	first, err := repo.FindByTenant(ctx, tenantID)
	require.NoError(t, err)
	second, err := repo.FindByTenant(ctx, tenantID)
	require.NoError(t, err)

	require.NoError(t, first.Update(settings.Changes{DecimalPlaces: intPtr(0)}))
	require.NoError(t, repo.Save(ctx, first))

	require.NoError(t, second.Update(settings.Changes{DecimalPlaces: intPtr(4)}))
	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConflict)

	stored, err := repo.FindByTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.DecimalPlaces)
}

func TestGormAccountingSettingsRepository_SaveUnpersistedUpdate(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormAccountingSettingsRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	s := settings.NewAccountingSettings(tenantID)
	require.NoError(t, s.Update(settings.Changes{CompanyName: strPtr("Colmado La Esquina")}))
	require.Greater(t, s.Version, 1)
	require.NoError(t, repo.Save(ctx, s))

	found, err := repo.FindByTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "Colmado La Esquina", found.CompanyName)
}

func newMockSettingsRepository(t *testing.T) (*GormAccountingSettingsRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return NewGormAccountingSettingsRepository(gormDB), mock, mockDB
}

func TestGormAccountingSettingsRepository_FindByTenant_SQL(t *testing.T) {
	t.Run("scopes the query to the tenant", func(t *testing.T) {
		repo, mock, mockDB := newMockSettingsRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		id := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "tenant_id", "version", "company_name", "rnc", "default_currency", "decimal_places", "number_format", "itbis_rate"}).
			AddRow(id.String(), tenantID.String(), 3, "Altice", "131793916", "DOP", 2, "1 234.56", "0.18")

		mock.ExpectQuery(`SELECT \* FROM "accounting_settings" WHERE tenant_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, 1).
			WillReturnRows(rows)

		found, err := repo.FindByTenant(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, id, found.ID)
		assert.Equal(t, 3, found.Version)
		assert.Equal(t, "1 234.56", found.NumberFormat)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing rows to not found", func(t *testing.T) {
		repo, mock, mockDB := newMockSettingsRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "accounting_settings" WHERE tenant_id = \$1`).
			WithArgs(tenantID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByTenant(context.Background(), tenantID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
