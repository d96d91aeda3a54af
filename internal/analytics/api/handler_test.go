package analytics_api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-deposits/internal/analytics"
	"ms-deposits/internal/logger"
)

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Dashboard(ctx context.Context, owner string) (*analytics.Dashboard, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.Dashboard), args.Error(1)
}

func (m *MockReportService) PeriodReport(ctx context.Context, reference time.Time, g analytics.Granularity) (*analytics.PeriodReport, error) {
	args := m.Called(ctx, reference, g)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.PeriodReport), args.Error(1)
}

func (m *MockReportService) IndicatorReport(ctx context.Context, reference time.Time, g analytics.Granularity, owner string) (*analytics.IndicatorReport, error) {
	args := m.Called(ctx, reference, g, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.IndicatorReport), args.Error(1)
}

func setupRouter(svc *MockReportService) *chi.Mux {
	r := chi.NewRouter()
	NewHandler(svc, logger.Nop()).RegisterRoutes(r)
	return r
}

func TestGetDashboard(t *testing.T) {
	svc := new(MockReportService)
	svc.On("Dashboard", mock.Anything, "Ryan").Return(&analytics.Dashboard{
		Window: analytics.Window{Start: "2024-03-01", End: "2024-03-31"},
		Label:  "2024-03-01 to 2024-03-31",
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/dashboard?owner=Ryan", nil)
	rr := httptest.NewRecorder()
	setupRouter(svc).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "2024-03-01 to 2024-03-31", body["label"])
	svc.AssertExpectations(t)
}

func TestGetDashboard_ServiceError(t *testing.T) {
	svc := new(MockReportService)
	svc.On("Dashboard", mock.Anything, "").Return(nil, errors.New("db down"))

	rr := httptest.NewRecorder()
	setupRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/dashboard", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestGetPeriodReport(t *testing.T) {
	svc := new(MockReportService)
	ref := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	svc.On("PeriodReport", mock.Anything, ref, analytics.Weekly).Return(&analytics.PeriodReport{
		Granularity: analytics.Weekly,
		Label:       "2024-03-09 to 2024-03-15",
	}, nil)

	rr := httptest.NewRecorder()
	setupRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/period?granularity=weekly&date=2024-03-15", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "weekly", body["granularity"])
	svc.AssertExpectations(t)
}

func TestGetPeriodReport_Defaults(t *testing.T) {
	svc := new(MockReportService)
	svc.On("PeriodReport", mock.Anything, time.Time{}, analytics.Daily).Return(&analytics.PeriodReport{}, nil)

	rr := httptest.NewRecorder()
	setupRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/period", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestGetPeriodReport_BadInput(t *testing.T) {
	for _, query := range []string{"granularity=yearly", "date=15-03-2024", "date=2024-02-30"} {
		svc := new(MockReportService)
		rr := httptest.NewRecorder()
		setupRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/period?"+query, nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code, query)
		svc.AssertNotCalled(t, "PeriodReport", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestGetIndicatorReport(t *testing.T) {
	svc := new(MockReportService)
	ref := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	svc.On("IndicatorReport", mock.Anything, ref, analytics.Monthly, "Igor").Return(&analytics.IndicatorReport{Owner: "Igor"}, nil)

	rr := httptest.NewRecorder()
	setupRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/indicators?granularity=monthly&date=2024-03-15&owner=Igor", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}
