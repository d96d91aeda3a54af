package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-deposits/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ListIndicators returns every indicator record ordered by day.
func (d *DB) ListIndicators(ctx context.Context) ([]models.IndicatorRecord, error) {
	return d.list(ctx, "")
}

func (d *DB) ListIndicatorsByOwner(ctx context.Context, owner string) ([]models.IndicatorRecord, error) {
	return d.list(ctx, owner)
}

func (d *DB) list(ctx context.Context, owner string) ([]models.IndicatorRecord, error) {
	records := []models.IndicatorRecord{}
	q := d.Bun.NewSelect().Model(&records)
	if owner != "" {
		q = q.Where("owner_name = ?", owner)
	}
	if err := q.Order("indicator_date ASC", "created_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list indicators: %w", err)
	}
	return records, nil
}

func (d *DB) CreateIndicator(ctx context.Context, record *models.IndicatorRecord) error {
	if _, err := d.Bun.NewInsert().Model(record).Exec(ctx); err != nil {
		return fmt.Errorf("insert indicator: %w", err)
	}
	return nil
}
