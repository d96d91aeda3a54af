package indicators

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-deposits/internal/analytics"
	"ms-deposits/internal/kafka"
	"ms-deposits/internal/logger"
	"ms-deposits/internal/models"
)

var ErrValidation = errors.New("invalid indicators")

type IndicatorDBLayer interface {
	ListIndicators(ctx context.Context) ([]models.IndicatorRecord, error)
	ListIndicatorsByOwner(ctx context.Context, owner string) ([]models.IndicatorRecord, error)
	CreateIndicator(ctx context.Context, record *models.IndicatorRecord) error
}

type Roster interface {
	IsRosterMember(owner string) bool
}

type Service struct {
	DB     IndicatorDBLayer
	Roster Roster
	Events kafka.Publisher
	Topic  string
	Logger *logger.Logger
	Now    func() time.Time
}

func NewService(db IndicatorDBLayer, roster Roster, events kafka.Publisher, topic string, log *logger.Logger) *Service {
	return &Service{
		DB:     db,
		Roster: roster,
		Events: events,
		Topic:  topic,
		Logger: log,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, owner string) ([]models.IndicatorRecord, error) {
	if owner == "" {
		return s.DB.ListIndicators(ctx)
	}
	return s.DB.ListIndicatorsByOwner(ctx, owner)
}

// Record stores one day of counters for an owner. Entries for the same owner
// and day are kept side by side and summed by reports.
func (s *Service) Record(ctx context.Context, input models.IndicatorInput) (*models.IndicatorRecord, error) {
	input.Owner = strings.TrimSpace(input.Owner)
	input.Date = strings.TrimSpace(input.Date)

	record := &models.IndicatorRecord{
		ID:             uuid.New().String(),
		Owner:          input.Owner,
		Date:           input.Date,
		Leads:          input.Leads,
		Mentoring:      input.Mentoring,
		VIP:            input.VIP,
		ExclusiveGroup: input.ExclusiveGroup,
		Kirvano:        input.Kirvano,
		Training7x1:    input.Training7x1,
		Strategies:     input.Strategies,
		CreatedAt:      s.Now(),
	}

	switch {
	case record.Owner == "":
		return nil, fmt.Errorf("%w: owner_name is required", ErrValidation)
	case !s.Roster.IsRosterMember(record.Owner):
		return nil, fmt.Errorf("%w: %q is not on the support roster", ErrValidation, record.Owner)
	case !analytics.ValidDate(record.Date):
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	case record.HasNegative():
		return nil, fmt.Errorf("%w: counters cannot be negative", ErrValidation)
	}

	if err := s.DB.CreateIndicator(ctx, record); err != nil {
		return nil, fmt.Errorf("record indicators: %w", err)
	}

	s.Logger.Info("INDICATORS", fmt.Sprintf("%s recorded indicators for %s", record.Owner, record.Date))
	if s.Events != nil {
		if err := s.Events.Publish(ctx, s.Topic, record.ID, record); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish to %s for %s: %v", s.Topic, record.ID, err))
		}
	}
	return record, nil
}
