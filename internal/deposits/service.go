package deposits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-deposits/internal/analytics"
	"ms-deposits/internal/config"
	"ms-deposits/internal/kafka"
	"ms-deposits/internal/logger"
	"ms-deposits/internal/models"
	"ms-deposits/internal/tickets/allocator"
	tickets "ms-deposits/internal/tickets/service"
)

var (
	ErrValidation = errors.New("invalid deposit")
	// ErrTicketCountMismatch is returned when an edit changes how many tickets
	// a deposit is owed without asking for new ones.
	ErrTicketCountMismatch = errors.New("ticket quantity or VIP changed; set regenerate_tickets to draw a new set")
)

type DepositDBLayer interface {
	ListDeposits(ctx context.Context) ([]models.DepositRecord, error)
	ListDepositsByOwner(ctx context.Context, owner string) ([]models.DepositRecord, error)
	GetDeposit(ctx context.Context, id string) (*models.DepositRecord, error)
	CreateDeposit(ctx context.Context, deposit *models.DepositRecord) error
	ReplaceDeposit(ctx context.Context, deposit *models.DepositRecord, newNumbers []int) error
	DeleteDeposit(ctx context.Context, id string) error
}

type TicketReserver interface {
	Reserve(ctx context.Context, baseCount int, vip bool, commit tickets.CommitFunc) ([]int, error)
}

type Broadcaster interface {
	Emit(event models.DepositEvent)
}

type Roster interface {
	IsRosterMember(owner string) bool
}

type Service struct {
	DB      DepositDBLayer
	Tickets TicketReserver
	Roster  Roster
	Events  kafka.Publisher
	Topics  config.TopicConfig
	// Stream is set when this instance feeds its own live streams; with
	// Kafka enabled the consumer does that instead.
	Stream Broadcaster
	Logger *logger.Logger
	Now    func() time.Time
}

func NewService(db DepositDBLayer, reserver TicketReserver, roster Roster, events kafka.Publisher, topics config.TopicConfig, log *logger.Logger) *Service {
	return &Service{
		DB:      db,
		Tickets: reserver,
		Roster:  roster,
		Events:  events,
		Topics:  topics,
		Logger:  log,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// Validate checks and normalizes input in place. A missing or non-positive
// ticket quantity becomes 1.
func (s *Service) Validate(input *models.DepositInput) error {
	input.Owner = strings.TrimSpace(input.Owner)
	input.Date = strings.TrimSpace(input.Date)
	input.UserID = strings.TrimSpace(input.UserID)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)

	switch {
	case input.Owner == "":
		return fmt.Errorf("%w: owner_name is required", ErrValidation)
	case !s.Roster.IsRosterMember(input.Owner):
		return fmt.Errorf("%w: %q is not on the support roster", ErrValidation, input.Owner)
	case input.UserID == "":
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	case !analytics.ValidDate(input.Date):
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	case !input.Amount.Valid:
		return fmt.Errorf("%w: amount must be a number", ErrValidation)
	case input.Amount.IsNegative():
		return fmt.Errorf("%w: amount cannot be negative", ErrValidation)
	case input.TicketQuantity > models.PoolSize:
		return fmt.Errorf("%w: ticket_quantity cannot exceed %d", ErrValidation, models.PoolSize)
	}

	if input.TicketQuantity < 1 {
		input.TicketQuantity = 1
	}
	return nil
}

func (s *Service) List(ctx context.Context, owner string) ([]models.DepositRecord, error) {
	if owner == "" {
		return s.DB.ListDeposits(ctx)
	}
	return s.DB.ListDepositsByOwner(ctx, owner)
}

func (s *Service) Get(ctx context.Context, id string) (*models.DepositRecord, error) {
	return s.DB.GetDeposit(ctx, id)
}

// Create reserves the deposit's tickets and stores both atomically.
func (s *Service) Create(ctx context.Context, input models.DepositInput) (*models.DepositRecord, error) {
	if err := s.Validate(&input); err != nil {
		return nil, err
	}

	now := s.Now()
	deposit := &models.DepositRecord{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(deposit, input)

	_, err := s.Tickets.Reserve(ctx, input.TicketQuantity, input.VIP, func(ctx context.Context, numbers []int) error {
		deposit.Tickets = numbers
		deposit.PrimaryTicket = numbers[0]
		return s.DB.CreateDeposit(ctx, deposit)
	})
	if err != nil {
		return nil, fmt.Errorf("create deposit: %w", err)
	}

	s.Logger.LogDeposit("CREATE", deposit.ID, fmt.Sprintf("%s registered %s for %s with %d ticket(s)",
		deposit.Owner, deposit.Amount, deposit.UserID, len(deposit.Tickets)))
	s.announce(ctx, models.DepositCreated, *deposit)
	s.announceTickets(ctx, *deposit)
	return deposit, nil
}

// Update replaces a deposit. Ticket numbers are kept unless the input asks
// for regeneration; replaced numbers stay consumed.
func (s *Service) Update(ctx context.Context, id string, input models.DepositInput) (*models.DepositRecord, error) {
	if err := s.Validate(&input); err != nil {
		return nil, err
	}

	existing, err := s.DB.GetDeposit(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	apply(&updated, input)
	updated.UpdatedAt = s.Now()

	if input.RegenerateTickets {
		_, err = s.Tickets.Reserve(ctx, input.TicketQuantity, input.VIP, func(ctx context.Context, numbers []int) error {
			updated.Tickets = numbers
			updated.PrimaryTicket = numbers[0]
			return s.DB.ReplaceDeposit(ctx, &updated, numbers)
		})
		if err != nil {
			return nil, fmt.Errorf("update deposit %s: %w", id, err)
		}
		s.Logger.LogDeposit("UPDATE", id, fmt.Sprintf("tickets regenerated, %d new number(s)", len(updated.Tickets)))
		s.announce(ctx, models.DepositUpdated, updated)
		s.announceTickets(ctx, updated)
		return &updated, nil
	}

	owed := allocator.TotalFor(input.TicketQuantity, input.VIP)
	if held := len(existing.AllocatedNumbers()); held != owed {
		return nil, fmt.Errorf("%w: owed %d, holds %d", ErrTicketCountMismatch, owed, held)
	}

	if err := s.DB.ReplaceDeposit(ctx, &updated, nil); err != nil {
		return nil, fmt.Errorf("update deposit %s: %w", id, err)
	}
	s.Logger.LogDeposit("UPDATE", id, "tickets kept")
	s.announce(ctx, models.DepositUpdated, updated)
	return &updated, nil
}

// Delete removes a deposit. Its ticket numbers are not returned to the pool.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.DB.GetDeposit(ctx, id)
	if err != nil {
		return err
	}
	if err := s.DB.DeleteDeposit(ctx, id); err != nil {
		return err
	}

	s.Logger.LogDeposit("DELETE", id, fmt.Sprintf("%d ticket number(s) stay consumed", len(existing.AllocatedNumbers())))
	s.announce(ctx, models.DepositDeleted, *existing)
	return nil
}

func apply(d *models.DepositRecord, in models.DepositInput) {
	d.Owner = in.Owner
	d.Date = in.Date
	d.Amount = in.Amount
	d.UserID = in.UserID
	d.Email = in.Email
	d.Phone = in.Phone
	d.VIP = in.VIP
	d.TicketQuantity = in.TicketQuantity
}

func (s *Service) announce(ctx context.Context, kind models.DepositEventType, deposit models.DepositRecord) {
	event := models.DepositEvent{Type: kind, Deposit: deposit, OccurredAt: s.Now()}

	topic := s.Topics.DepositUpdated
	switch kind {
	case models.DepositCreated:
		topic = s.Topics.DepositCreated
	case models.DepositDeleted:
		topic = s.Topics.DepositDeleted
	}
	s.publish(ctx, topic, deposit.ID, event)

	if s.Stream != nil {
		s.Stream.Emit(event)
	}
}

func (s *Service) announceTickets(ctx context.Context, deposit models.DepositRecord) {
	s.publish(ctx, s.Topics.TicketsAllocated, deposit.ID, models.TicketsAllocatedEvent{
		DepositID:   deposit.ID,
		Owner:       deposit.Owner,
		VIP:         deposit.VIP,
		Tickets:     deposit.Tickets,
		AllocatedAt: s.Now(),
	})
}

func (s *Service) publish(ctx context.Context, topic, key string, value interface{}) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, topic, key, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish to %s for %s: %v", topic, key, err))
	}
}
