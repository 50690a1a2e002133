package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/westtrac/parts-insights/internal/domain"
	"github.com/westtrac/parts-insights/internal/repository"
)

type usageRepository struct {
	db *DB
}

func NewUsageRepository(db *DB) repository.UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) GetUsageRecords(ctx context.Context, filter domain.UsageFilter) ([]domain.UsageRecord, error) {
	clause, args := buildUsageFilterClause(filter, "o", "c", "p", 1)

	query := `
        SELECT
            p.number AS part_number,
            COALESCE(o.category, '') AS category,
            o.defect_date AS usage_date,
            COALESCE(op.amount, 0)::float8 AS quantity
        FROM order_parts op
        JOIN parts p ON op.part_id = p.id
        JOIN orders o ON op.order_id = o.id
        LEFT JOIN clients c ON o.client_id = c.id
        WHERE o.defect_date IS NOT NULL` + clause + `
        ORDER BY o.defect_date, p.number
    `

	var records []domain.UsageRecord
	err := r.db.WithQuery(ctx, func(q *sqlx.DB) error {
		return q.SelectContext(ctx, &records, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("error getting usage records: %w", err)
	}

	log.Debug().Int("rows", len(records)).Msg("usage records loaded")
	return records, nil
}

func (r *usageRepository) PartCategory(ctx context.Context, partNumber string) (string, bool, error) {
	query := `
        SELECT o.category
        FROM order_parts op
        JOIN parts p ON op.part_id = p.id
        JOIN orders o ON op.order_id = o.id
        WHERE p.number = $1
        AND COALESCE(o.category, '') <> ''
        GROUP BY o.category
        ORDER BY SUM(op.amount) DESC, o.category ASC
        LIMIT 1
    `

	var category string
	err := r.db.WithQuery(ctx, func(q *sqlx.DB) error {
		return q.GetContext(ctx, &category, query, strings.TrimSpace(partNumber))
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error getting category for part %s: %w", partNumber, err)
	}

	return category, true, nil
}

func (r *usageRepository) GetFilterOptions(ctx context.Context) (*domain.UsageFilterOptions, error) {
	opts := &domain.UsageFilterOptions{
		Years:      []int{},
		Clients:    []string{},
		Categories: []string{},
	}

	err := r.db.WithQuery(ctx, func(q *sqlx.DB) error {
		if err := q.SelectContext(ctx, &opts.Years, `
            SELECT DISTINCT EXTRACT(YEAR FROM o.defect_date)::int AS year
            FROM order_parts op
            JOIN orders o ON op.order_id = o.id
            WHERE o.defect_date IS NOT NULL
            ORDER BY year DESC
        `); err != nil {
			return fmt.Errorf("years: %w", err)
		}

		if err := q.SelectContext(ctx, &opts.Clients, `
            SELECT DISTINCT c.name
            FROM order_parts op
            JOIN orders o ON op.order_id = o.id
            JOIN clients c ON o.client_id = c.id
            WHERE COALESCE(c.name, '') <> ''
            ORDER BY c.name
        `); err != nil {
			return fmt.Errorf("clients: %w", err)
		}

		if err := q.SelectContext(ctx, &opts.Categories, `
            SELECT DISTINCT o.category
            FROM order_parts op
            JOIN orders o ON op.order_id = o.id
            WHERE COALESCE(o.category, '') <> ''
            ORDER BY o.category
        `); err != nil {
			return fmt.Errorf("categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error getting filter options: %w", err)
	}

	return opts, nil
}
