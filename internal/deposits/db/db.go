package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-deposits/internal/models"
	ticketdb "ms-deposits/internal/tickets/db"
)

var ErrNotFound = errors.New("deposit not found")

type DB struct {
	Bun *bun.DB
}

// ListDeposits returns every deposit, newest first.
func (d *DB) ListDeposits(ctx context.Context) ([]models.DepositRecord, error) {
	return d.list(ctx, "")
}

func (d *DB) ListDepositsByOwner(ctx context.Context, owner string) ([]models.DepositRecord, error) {
	return d.list(ctx, owner)
}

func (d *DB) list(ctx context.Context, owner string) ([]models.DepositRecord, error) {
	deposits := []models.DepositRecord{}
	q := d.Bun.NewSelect().Model(&deposits)
	if owner != "" {
		q = q.Where("owner_name = ?", owner)
	}
	if err := q.Order("created_at DESC", "id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	return deposits, nil
}

func (d *DB) GetDeposit(ctx context.Context, id string) (*models.DepositRecord, error) {
	var deposit models.DepositRecord
	err := d.Bun.NewSelect().
		Model(&deposit).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get deposit %s: %w", id, err)
	}
	return &deposit, nil
}

// CreateDeposit writes the deposit and the claims on its ticket numbers in
// one transaction. If any number is already claimed nothing is written and
// the error wraps ticketdb.ErrTicketTaken.
func (d *DB) CreateDeposit(ctx context.Context, deposit *models.DepositRecord) error {
	return d.inTx(ctx, func(tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(deposit).Exec(ctx); err != nil {
			return fmt.Errorf("insert deposit: %w", err)
		}
		return ticketdb.ClaimNumbers(ctx, tx, deposit.ID, deposit.AllocatedNumbers())
	})
}

// ReplaceDeposit overwrites every field except id and created_at. newNumbers
// are claimed in the same transaction; pass nil when the tickets are kept.
func (d *DB) ReplaceDeposit(ctx context.Context, deposit *models.DepositRecord, newNumbers []int) error {
	return d.inTx(ctx, func(tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(deposit).
			ExcludeColumn("id", "created_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update deposit %s: %w", deposit.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, deposit.ID)
		}
		return ticketdb.ClaimNumbers(ctx, tx, deposit.ID, newNumbers)
	})
}

// DeleteDeposit removes the deposit. Its claim rows stay, so the numbers are
// never issued again.
func (d *DB) DeleteDeposit(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.DepositRecord)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete deposit %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (d *DB) inTx(ctx context.Context, fn func(tx bun.Tx) error) error {
	tx, err := d.Bun.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx commit: %w", err)
	}
	committed = true
	return nil
}
