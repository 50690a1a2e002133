package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westtrac/parts-insights/internal/domain"
)

func newMockRepository(t *testing.T) (*usageRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &usageRepository{db: Wrap(sqlx.NewDb(db, "sqlmock"), 1)}, mock
}

func TestBuildUsageFilterClause(t *testing.T) {
	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	clause, args := buildUsageFilterClause(domain.UsageFilter{
		From:        &from,
		To:          &to,
		Clients:     []string{"Acme", "Globex"},
		Categories:  []string{"Onderhoud"},
		PartNumbers: []string{"P1"},
	}, "o", "c.", "p", 3)

	assert.Equal(t, " AND o.defect_date >= $3 AND o.defect_date < $4 AND c.name IN ($5,$6) AND o.category IN ($7) AND p.number IN ($8)", clause)
	assert.Equal(t, []interface{}{from, to, "Acme", "Globex", "Onderhoud", "P1"}, args)

	clause, args = buildUsageFilterClause(domain.UsageFilter{}, "o", "c", "p", 1)
	assert.Empty(t, clause)
	assert.Nil(t, args)

	clause, _ = buildUsageFilterClause(domain.UsageFilter{ExcludeZeroInvoices: true}, "o", "c", "p", 1)
	assert.Contains(t, clause, "NOT COALESCE((")
	assert.Contains(t, clause, "WHERE oc.order_id = o.id")
}

func TestUsageRepository_GetUsageRecords(t *testing.T) {
	repo, mock := newMockRepository(t)
	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"part_number", "category", "usage_date", "quantity"}).
		AddRow("P1", "Onderhoud", day, 2.0).
		AddRow("P2", "", day, 1.5)

	mock.ExpectQuery(`FROM order_parts op.+WHERE o.defect_date IS NOT NULL AND o.defect_date >= \$1 AND c.name IN \(\$2\) AND NOT COALESCE`).
		WithArgs(from, "Acme").
		WillReturnRows(rows)

	records, err := repo.GetUsageRecords(context.Background(), domain.UsageFilter{
		From:                &from,
		Clients:             []string{"Acme"},
		ExcludeZeroInvoices: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.UsageRecord{
		{PartNumber: "P1", Category: "Onderhoud", Date: day, Quantity: 2},
		{PartNumber: "P2", Category: "", Date: day, Quantity: 1.5},
	}, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepository_GetUsageRecordsError(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`FROM order_parts op`).WillReturnError(errors.New("connection reset"))

	_, err := repo.GetUsageRecords(context.Background(), domain.UsageFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error getting usage records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepository_PartCategory(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT o.category.+WHERE p.number = \$1.+ORDER BY SUM\(op.amount\) DESC, o.category ASC`).
		WithArgs("P1").
		WillReturnRows(sqlmock.NewRows([]string{"category"}).AddRow("Onderhoud"))
	mock.ExpectQuery(`SELECT o.category`).
		WithArgs("P404").
		WillReturnRows(sqlmock.NewRows([]string{"category"}))

	category, ok, err := repo.PartCategory(context.Background(), " P1 ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Onderhoud", category)

	_, ok, err = repo.PartCategory(context.Background(), "P404")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepository_GetFilterOptions(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`EXTRACT\(YEAR FROM o.defect_date\)`).
		WillReturnRows(sqlmock.NewRows([]string{"year"}).AddRow(2024).AddRow(2023))
	mock.ExpectQuery(`SELECT DISTINCT c.name`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Acme"))
	mock.ExpectQuery(`SELECT DISTINCT o.category`).
		WillReturnRows(sqlmock.NewRows([]string{"category"}))

	opts, err := repo.GetFilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2023}, opts.Years)
	assert.Equal(t, []string{"Acme"}, opts.Clients)
	assert.Equal(t, []string{}, opts.Categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_WithQueryHonoursContext(t *testing.T) {
	repo, _ := newMockRepository(t)
	require.NoError(t, repo.db.sem.Acquire(context.Background(), 1))
	defer repo.db.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetUsageRecords(ctx, domain.UsageFilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
