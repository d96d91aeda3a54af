package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"ms-deposits/internal/models"
)

// ErrTicketTaken means at least one number already has a claim row.
var ErrTicketTaken = errors.New("ticket number already claimed")

// DB owns the ticket_numbers table, the durable record of every number ever
// issued.
type DB struct {
	Bun *bun.DB
}

// AllocatedNumbers is the snapshot the allocator draws against: every
// claimed number plus whatever legacy deposits hold without a claim row.
func (d *DB) AllocatedNumbers(ctx context.Context) (map[int]struct{}, error) {
	var claimed []int
	err := d.Bun.NewSelect().
		Model((*models.TicketNumber)(nil)).
		Column("number").
		Scan(ctx, &claimed)
	if err != nil {
		return nil, fmt.Errorf("select claimed numbers: %w", err)
	}

	var deposits []models.DepositRecord
	err = d.Bun.NewSelect().
		Model(&deposits).
		Column("id", "tickets", "primary_ticket").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select deposit numbers: %w", err)
	}

	used := make(map[int]struct{}, len(claimed))
	for _, n := range claimed {
		used[n] = struct{}{}
	}
	for _, dep := range deposits {
		for _, n := range dep.AllocatedNumbers() {
			used[n] = struct{}{}
		}
	}
	return used, nil
}

// ClaimNumbers inserts claim rows through idb, normally a transaction that
// also writes the deposit. Any number already claimed fails the whole call
// with ErrTicketTaken.
func ClaimNumbers(ctx context.Context, idb bun.IDB, depositID string, numbers []int) error {
	if len(numbers) == 0 {
		return nil
	}

	var existing []int
	err := idb.NewSelect().
		Model((*models.TicketNumber)(nil)).
		Column("number").
		Where("number IN (?)", bun.In(numbers)).
		Scan(ctx, &existing)
	if err != nil {
		return fmt.Errorf("check claims: %w", err)
	}
	if len(existing) > 0 {
		sort.Ints(existing)
		return fmt.Errorf("%w: %v", ErrTicketTaken, existing)
	}

	now := time.Now().UTC()
	rows := make([]models.TicketNumber, 0, len(numbers))
	for _, n := range numbers {
		rows = append(rows, models.TicketNumber{Number: n, DepositID: depositID, ClaimedAt: now})
	}
	if _, err := idb.NewInsert().Model(&rows).Exec(ctx); err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrTicketTaken, err)
		}
		return fmt.Errorf("insert claims: %w", err)
	}
	return nil
}

// BackfillClaims inserts claim rows for numbers that have none, skipping
// numbers claimed in the meantime. It returns how many rows were written.
func (d *DB) BackfillClaims(ctx context.Context, depositID string, numbers []int) (int, error) {
	if len(numbers) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([]models.TicketNumber, 0, len(numbers))
	for _, n := range numbers {
		rows = append(rows, models.TicketNumber{Number: n, DepositID: depositID, ClaimedAt: now})
	}
	res, err := d.Bun.NewInsert().
		Model(&rows).
		On("CONFLICT (number) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("backfill claims: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func (d *DB) ListClaims(ctx context.Context) ([]models.TicketNumber, error) {
	var claims []models.TicketNumber
	err := d.Bun.NewSelect().
		Model(&claims).
		Order("number ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

func (d *DB) ClaimsByDeposit(ctx context.Context, depositID string) ([]int, error) {
	var numbers []int
	err := d.Bun.NewSelect().
		Model((*models.TicketNumber)(nil)).
		Column("number").
		Where("deposit_id = ?", depositID).
		Order("number ASC").
		Scan(ctx, &numbers)
	if err != nil {
		return nil, fmt.Errorf("claims for deposit %s: %w", depositID, err)
	}
	return numbers, nil
}

// IsUniqueViolation matches duplicate key errors from Postgres and SQLite.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
