package tickets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ms-deposits/internal/logger"
	"ms-deposits/internal/models"
	"ms-deposits/internal/tickets/allocator"
	ticketdb "ms-deposits/internal/tickets/db"
	qr "ms-deposits/internal/tickets/qr_genrator"
)

// ErrAllocationConflict means concurrent reservations kept colliding until
// the attempt limit ran out.
var ErrAllocationConflict = errors.New("could not reserve ticket numbers, please try again")

type TicketDBLayer interface {
	AllocatedNumbers(ctx context.Context) (map[int]struct{}, error)
	ClaimsByDeposit(ctx context.Context, depositID string) ([]int, error)
}

type NumberLocker interface {
	LockNumbers(ctx context.Context, numbers []int, token string) (bool, error)
	UnlockNumbers(ctx context.Context, numbers []int, token string) error
}

type Drawer interface {
	Allocate(baseCount int, vip bool, allocated map[int]struct{}) ([]int, error)
}

// CommitFunc persists the drawn numbers, normally together with the deposit
// in one transaction. Returning ticketdb.ErrTicketTaken triggers a redraw.
type CommitFunc func(ctx context.Context, numbers []int) error

type TicketService struct {
	DB          TicketDBLayer
	Locks       NumberLocker // optional
	Allocator   Drawer
	QR          *qr.QRGenerator
	MaxAttempts int
	Logger      *logger.Logger
}

func NewTicketService(db TicketDBLayer, locks NumberLocker, drawer Drawer, qrGen *qr.QRGenerator, maxAttempts int, log *logger.Logger) *TicketService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &TicketService{
		DB:          db,
		Locks:       locks,
		Allocator:   drawer,
		QR:          qrGen,
		MaxAttempts: maxAttempts,
		Logger:      log,
	}
}

// Reserve draws numbers for a deposit and hands them to commit. Each attempt
// works on a fresh snapshot; pool errors are returned as is.
func (s *TicketService) Reserve(ctx context.Context, baseCount int, vip bool, commit CommitFunc) ([]int, error) {
	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		used, err := s.DB.AllocatedNumbers(ctx)
		if err != nil {
			return nil, fmt.Errorf("read allocated numbers: %w", err)
		}

		numbers, err := s.Allocator.Allocate(baseCount, vip, used)
		if err != nil {
			return nil, err
		}

		token := uuid.NewString()
		if s.Locks != nil {
			ok, err := s.Locks.LockNumbers(ctx, numbers, token)
			if err != nil {
				return nil, fmt.Errorf("lock ticket numbers: %w", err)
			}
			if !ok {
				s.Logger.LogAllocation(attempt, "drawn numbers are locked by another reservation, redrawing")
				continue
			}
		}

		err = commit(ctx, numbers)
		s.release(ctx, numbers, token)

		if errors.Is(err, ticketdb.ErrTicketTaken) {
			s.Logger.LogAllocation(attempt, "a drawn number was claimed concurrently, redrawing")
			continue
		}
		if err != nil {
			return nil, err
		}

		s.Logger.LogAllocation(attempt, fmt.Sprintf("reserved %d ticket(s), primary %d", len(numbers), numbers[0]))
		return numbers, nil
	}

	return nil, fmt.Errorf("%w: gave up after %d attempts", ErrAllocationConflict, s.MaxAttempts)
}

func (s *TicketService) release(ctx context.Context, numbers []int, token string) {
	if s.Locks == nil {
		return
	}
	// the reservation is already decided; don't let a cancelled request leak locks
	if err := s.Locks.UnlockNumbers(context.WithoutCancel(ctx), numbers, token); err != nil {
		s.Logger.Warn("TICKETS", fmt.Sprintf("Failed to release ticket locks: %v", err))
	}
}

// Preview draws numbers without claiming them. A later Reserve may return
// different numbers.
func (s *TicketService) Preview(ctx context.Context, baseCount int, vip bool) ([]int, error) {
	used, err := s.DB.AllocatedNumbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("read allocated numbers: %w", err)
	}
	return s.Allocator.Allocate(baseCount, vip, used)
}

func (s *TicketService) PoolStatus(ctx context.Context) (models.PoolStatus, error) {
	used, err := s.DB.AllocatedNumbers(ctx)
	if err != nil {
		return models.PoolStatus{}, fmt.Errorf("read allocated numbers: %w", err)
	}
	n := allocator.Used(used)
	return models.PoolStatus{
		Size:      models.PoolSize,
		Used:      n,
		Remaining: models.PoolSize - n,
	}, nil
}

// ReceiptFor renders the QR receipt of a deposit.
func (s *TicketService) ReceiptFor(deposit models.DepositRecord) ([]byte, error) {
	return s.QR.GenerateEncryptedQR(receiptOf(deposit))
}

type Verification struct {
	Receipt *models.TicketReceipt `json:"receipt"`
	Valid   bool                  `json:"valid"`
	// Numbers in the receipt that are not claimed by its deposit
	Unclaimed []int `json:"unclaimed,omitempty"`
}

// VerifyReceipt decrypts a QR payload and checks its numbers against the
// claim table.
func (s *TicketService) VerifyReceipt(ctx context.Context, payload string) (*Verification, error) {
	receipt, err := s.QR.DecryptReceipt(payload)
	if err != nil {
		return nil, err
	}

	claimed, err := s.DB.ClaimsByDeposit(ctx, receipt.DepositID)
	if err != nil {
		return nil, err
	}
	owned := make(map[int]bool, len(claimed))
	for _, n := range claimed {
		owned[n] = true
	}

	v := &Verification{Receipt: receipt}
	for _, n := range receipt.Tickets {
		if !owned[n] {
			v.Unclaimed = append(v.Unclaimed, n)
		}
	}
	v.Valid = len(receipt.Tickets) > 0 && len(v.Unclaimed) == 0
	return v, nil
}

func receiptOf(d models.DepositRecord) models.TicketReceipt {
	return models.TicketReceipt{
		DepositID: d.ID,
		Owner:     d.Owner,
		UserID:    d.UserID,
		Date:      d.Date,
		Tickets:   d.AllocatedNumbers(),
	}
}
