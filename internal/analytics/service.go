package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ms-deposits/internal/clock"
	"ms-deposits/internal/models"
)

// maxDisplayedTickets caps the ticket numbers listed per deposit in reports.
const maxDisplayedTickets = 5

type DepositReader interface {
	ListDeposits(ctx context.Context) ([]models.DepositRecord, error)
}

type IndicatorReader interface {
	ListIndicators(ctx context.Context) ([]models.IndicatorRecord, error)
}

// Service builds reports from a fresh snapshot of the stores. All
// aggregation happens in memory.
type Service struct {
	Deposits   DepositReader
	Indicators IndicatorReader
	Clock      clock.Clock
}

func NewService(deposits DepositReader, indicators IndicatorReader, c clock.Clock) *Service {
	return &Service{Deposits: deposits, Indicators: indicators, Clock: c}
}

type Dashboard struct {
	Window  Window      `json:"window"`
	Label   string      `json:"label"`
	Summary Summary     `json:"summary"`
	Ranking []RankEntry `json:"ranking"`
	MyRank  *RankEntry  `json:"my_rank,omitempty"`
}

type DetailedDeposit struct {
	ID               string          `json:"id"`
	Owner            string          `json:"owner_name"`
	Date             string          `json:"date"`
	UserID           string          `json:"user_id"`
	Amount           decimal.Decimal `json:"amount"`
	VIP              bool            `json:"is_vip"`
	TicketsOwed      int             `json:"tickets_owed"`
	DisplayedTickets []int           `json:"displayed_tickets"`
	Truncated        bool            `json:"truncated"`
}

type PeriodReport struct {
	Granularity Granularity       `json:"granularity"`
	Window      Window            `json:"window"`
	Label       string            `json:"label"`
	Summary     Summary           `json:"summary"`
	Ranking     []RankEntry       `json:"ranking"`
	Deposits    []DetailedDeposit `json:"deposits"`
}

type IndicatorReport struct {
	Granularity Granularity              `json:"granularity"`
	Window      Window                   `json:"window"`
	Label       string                   `json:"label"`
	Owner       string                   `json:"owner_name,omitempty"`
	Records     []models.IndicatorRecord `json:"records"`
	Totals      models.IndicatorTotals   `json:"totals"`
}

// Dashboard covers the current calendar month. When owner is set the
// response also carries that owner's position.
func (s *Service) Dashboard(ctx context.Context, owner string) (*Dashboard, error) {
	deposits, err := s.Deposits.ListDeposits(ctx)
	if err != nil {
		return nil, fmt.Errorf("load deposits: %w", err)
	}

	w := WindowFor(s.Clock.Today(), Monthly)
	inMonth := FilterByWindow(deposits, w, "")
	ranking := Rank(inMonth)

	d := &Dashboard{
		Window:  w,
		Label:   w.Label(),
		Summary: Summarize(inMonth),
		Ranking: nonNilRanking(ranking),
	}
	if owner != "" {
		mine := PositionOf(ranking, owner)
		d.MyRank = &mine
	}
	return d, nil
}

// PeriodReport aggregates every owner's deposits for the window around
// reference. A zero reference means today.
func (s *Service) PeriodReport(ctx context.Context, reference time.Time, g Granularity) (*PeriodReport, error) {
	deposits, err := s.Deposits.ListDeposits(ctx)
	if err != nil {
		return nil, fmt.Errorf("load deposits: %w", err)
	}

	w := WindowFor(s.reference(reference), g)
	inWindow := FilterByWindow(deposits, w, "")

	details := make([]DetailedDeposit, 0, len(inWindow))
	for _, r := range inWindow {
		details = append(details, detail(r))
	}

	return &PeriodReport{
		Granularity: g,
		Window:      w,
		Label:       w.Label(),
		Summary:     Summarize(inWindow),
		Ranking:     nonNilRanking(Rank(inWindow)),
		Deposits:    details,
	}, nil
}

func (s *Service) IndicatorReport(ctx context.Context, reference time.Time, g Granularity, owner string) (*IndicatorReport, error) {
	indicators, err := s.Indicators.ListIndicators(ctx)
	if err != nil {
		return nil, fmt.Errorf("load indicators: %w", err)
	}

	w := WindowFor(s.reference(reference), g)
	records := FilterIndicators(indicators, w, owner)

	return &IndicatorReport{
		Granularity: g,
		Window:      w,
		Label:       w.Label(),
		Owner:       owner,
		Records:     records,
		Totals:      SumIndicators(records),
	}, nil
}

func (s *Service) reference(t time.Time) time.Time {
	if t.IsZero() {
		return s.Clock.Today()
	}
	return t
}

func detail(r models.DepositRecord) DetailedDeposit {
	numbers := r.AllocatedNumbers()
	shown := numbers
	if len(shown) > maxDisplayedTickets {
		shown = shown[:maxDisplayedTickets]
	}
	return DetailedDeposit{
		ID:               r.ID,
		Owner:            r.Owner,
		Date:             r.Date,
		UserID:           r.UserID,
		Amount:           r.Amount.Decimal(),
		VIP:              r.VIP,
		TicketsOwed:      TicketsOwed(r),
		DisplayedTickets: shown,
		Truncated:        len(numbers) > maxDisplayedTickets,
	}
}

func nonNilRanking(r []RankEntry) []RankEntry {
	if r == nil {
		return []RankEntry{}
	}
	return r
}
