package repository

import (
	"context"

	"github.com/westtrac/parts-insights/internal/domain"
)

// UsageRepository reads parts usage from the ERP database.
type UsageRepository interface {
	GetUsageRecords(ctx context.Context, filter domain.UsageFilter) ([]domain.UsageRecord, error)
	// PartCategory returns the order category a part is used under most.
	PartCategory(ctx context.Context, partNumber string) (string, bool, error)
	GetFilterOptions(ctx context.Context) (*domain.UsageFilterOptions, error)
}
