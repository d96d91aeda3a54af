package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-deposits/internal/clock"
	"ms-deposits/internal/models"
)

type MockDepositReader struct {
	mock.Mock
}

func (m *MockDepositReader) ListDeposits(ctx context.Context) ([]models.DepositRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DepositRecord), args.Error(1)
}

type MockIndicatorReader struct {
	mock.Mock
}

func (m *MockIndicatorReader) ListIndicators(ctx context.Context) ([]models.IndicatorRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IndicatorRecord), args.Error(1)
}

func newTestService(deposits []models.DepositRecord, indicators []models.IndicatorRecord) (*Service, *MockDepositReader, *MockIndicatorReader) {
	dr := new(MockDepositReader)
	ir := new(MockIndicatorReader)
	dr.On("ListDeposits", mock.Anything).Return(deposits, nil)
	ir.On("ListIndicators", mock.Anything).Return(indicators, nil)
	today := clock.Fixed{Day: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)}
	return NewService(dr, ir, today), dr, ir
}

func TestDashboard_CurrentMonth(t *testing.T) {
	svc, dr, _ := newTestService([]models.DepositRecord{
		deposit("Ryan", "2024-03-01", "100", "u1"),
		deposit("Igor", "2024-03-31", "300", "u2"),
		deposit("Ryan", "2024-02-29", "1000", "u3"),
		deposit("Ryan", "2024-03-10", "50", "u1"),
	}, nil)

	d, err := svc.Dashboard(context.Background(), "Ryan")
	require.NoError(t, err)

	assert.Equal(t, Window{"2024-03-01", "2024-03-31"}, d.Window)
	assertDecimal(t, "450", d.Summary.TotalValue)
	assert.Equal(t, 3, d.Summary.Count)
	assert.Equal(t, 2, d.Summary.DistinctUsers)
	require.Len(t, d.Ranking, 2)
	assert.Equal(t, "Igor", d.Ranking[0].Owner)
	require.NotNil(t, d.MyRank)
	assert.Equal(t, 2, d.MyRank.Position)
	assert.Equal(t, 2, d.MyRank.Count)
	dr.AssertExpectations(t)
}

func TestDashboard_NoOwner(t *testing.T) {
	svc, _, _ := newTestService(nil, nil)

	d, err := svc.Dashboard(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, d.MyRank)
	assert.NotNil(t, d.Ranking)
	assert.Equal(t, 0, d.Summary.Count)
}

func TestDashboard_StoreError(t *testing.T) {
	dr := new(MockDepositReader)
	dr.On("ListDeposits", mock.Anything).Return(nil, errors.New("connection refused"))
	svc := NewService(dr, new(MockIndicatorReader), clock.Fixed{Day: time.Now()})

	_, err := svc.Dashboard(context.Background(), "")
	assert.ErrorContains(t, err, "connection refused")
}

func TestPeriodReport_WeeklyDetails(t *testing.T) {
	vip := deposit("Edmária", "2024-03-12", "250", "u9")
	vip.VIP = true
	vip.TicketQuantity = 2
	vip.Tickets = []int{11, 22, 33, 44, 55, 66, 77, 88}
	legacy := deposit("Igor", "2024-03-09", "10", "u1")
	legacy.PrimaryTicket = 42

	svc, _, _ := newTestService([]models.DepositRecord{
		vip,
		legacy,
		deposit("Igor", "2024-03-08", "999", "u1"),
	}, nil)

	report, err := svc.PeriodReport(context.Background(), day(t, "2024-03-15"), Weekly)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-09 to 2024-03-15", report.Label)
	assert.Equal(t, Weekly, report.Granularity)
	assertDecimal(t, "260", report.Summary.TotalValue)
	require.Len(t, report.Deposits, 2)

	assert.Equal(t, 8, report.Deposits[0].TicketsOwed)
	assert.Equal(t, []int{11, 22, 33, 44, 55}, report.Deposits[0].DisplayedTickets)
	assert.True(t, report.Deposits[0].Truncated)

	assert.Equal(t, 1, report.Deposits[1].TicketsOwed)
	assert.Equal(t, []int{42}, report.Deposits[1].DisplayedTickets)
	assert.False(t, report.Deposits[1].Truncated)
}

func TestPeriodReport_ZeroReferenceUsesClock(t *testing.T) {
	svc, _, _ := newTestService([]models.DepositRecord{deposit("Ryan", "2024-03-15", "5", "u1")}, nil)

	report, err := svc.PeriodReport(context.Background(), time.Time{}, Daily)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", report.Label)
	assert.Equal(t, 1, report.Summary.Count)
}

func TestIndicatorReport(t *testing.T) {
	svc, _, ir := newTestService(nil, []models.IndicatorRecord{
		{Owner: "Ryan", Date: "2024-03-15", Leads: 3, VIP: 1},
		{Owner: "Ryan", Date: "2024-03-15", Leads: 2},
		{Owner: "Igor", Date: "2024-03-15", Leads: 7},
		{Owner: "Ryan", Date: "2024-03-14", Leads: 9},
	})

	report, err := svc.IndicatorReport(context.Background(), day(t, "2024-03-15"), Daily, "Ryan")
	require.NoError(t, err)
	assert.Len(t, report.Records, 2)
	assert.Equal(t, 5, report.Totals.Leads)
	assert.Equal(t, 1, report.Totals.VIP)
	assert.Equal(t, "Ryan", report.Owner)
	ir.AssertExpectations(t)
}
