package deposit_api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-deposits/internal/deposits"
	"ms-deposits/internal/deposits/db"
	"ms-deposits/internal/logger"
	"ms-deposits/internal/models"
	"ms-deposits/internal/sse"
	"ms-deposits/internal/tickets/allocator"
	tickets "ms-deposits/internal/tickets/service"
)

type MockDepositService struct {
	mock.Mock
}

func (m *MockDepositService) List(ctx context.Context, owner string) ([]models.DepositRecord, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DepositRecord), args.Error(1)
}

func (m *MockDepositService) Get(ctx context.Context, id string) (*models.DepositRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositRecord), args.Error(1)
}

func (m *MockDepositService) Create(ctx context.Context, input models.DepositInput) (*models.DepositRecord, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositRecord), args.Error(1)
}

func (m *MockDepositService) Update(ctx context.Context, id string, input models.DepositInput) (*models.DepositRecord, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositRecord), args.Error(1)
}

func (m *MockDepositService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type stubReceipts struct{}

func (stubReceipts) ReceiptFor(deposit models.DepositRecord) ([]byte, error) {
	return []byte("\x89PNG-" + deposit.ID), nil
}

func setup(svc *MockDepositService) (*chi.Mux, *sse.DepositEventEmitter) {
	emitter := sse.NewDepositEventEmitter()
	r := chi.NewRouter()
	NewHandler(svc, stubReceipts{}, emitter, logger.Nop()).RegisterRoutes(r)
	return r, emitter
}

const createBody = `{"owner_name":"Ryan","date":"2024-03-15","amount":"120.5","user_id":"u1","is_vip":true,"ticket_quantity":1}`

func TestCreateDeposit(t *testing.T) {
	svc := new(MockDepositService)
	svc.On("Create", mock.Anything, mock.MatchedBy(func(in models.DepositInput) bool {
		return in.Owner == "Ryan" && in.VIP && in.Amount.String() == "120.5"
	})).Return(&models.DepositRecord{ID: "dep-1", Owner: "Ryan", Tickets: []int{1, 2, 3, 4}}, nil)

	router, _ := setup(svc)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/deposits", strings.NewReader(createBody)))

	require.Equal(t, http.StatusCreated, rr.Code)
	var body models.DepositRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []int{1, 2, 3, 4}, body.Tickets)
	svc.AssertExpectations(t)
}

func TestCreateDeposit_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", fmt.Errorf("%w: user_id is required", deposits.ErrValidation), http.StatusBadRequest},
		{"pool exhausted", fmt.Errorf("create deposit: %w", allocator.ErrPoolExhausted), http.StatusUnprocessableEntity},
		{"insufficient", fmt.Errorf("create deposit: %w", allocator.ErrInsufficientCapacity), http.StatusUnprocessableEntity},
		{"conflict", fmt.Errorf("create deposit: %w", tickets.ErrAllocationConflict), http.StatusConflict},
		{"unexpected", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDepositService)
			svc.On("Create", mock.Anything, mock.Anything).Return(nil, tt.err)

			router, _ := setup(svc)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/deposits", strings.NewReader(createBody)))
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestCreateDeposit_MalformedJSON(t *testing.T) {
	svc := new(MockDepositService)
	router, _ := setup(svc)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/deposits", strings.NewReader(`{"owner_name":`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListDeposits(t *testing.T) {
	svc := new(MockDepositService)
	svc.On("List", mock.Anything, "Igor").Return([]models.DepositRecord{{ID: "a"}, {ID: "b"}}, nil)

	router, _ := setup(svc)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/deposits?owner=Igor", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var list []models.DepositRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestGetDeposit_NotFound(t *testing.T) {
	svc := new(MockDepositService)
	svc.On("Get", mock.Anything, "nope").Return(nil, fmt.Errorf("%w: nope", db.ErrNotFound))

	router, _ := setup(svc)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/deposits/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateDeposit_Mismatch(t *testing.T) {
	svc := new(MockDepositService)
	svc.On("Update", mock.Anything, "dep-1", mock.Anything).Return(nil, deposits.ErrTicketCountMismatch)

	router, _ := setup(svc)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/deposits/dep-1", strings.NewReader(createBody)))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestUpdateDeposit_PassesRegenerateFlag(t *testing.T) {
	svc := new(MockDepositService)
	svc.On("Update", mock.Anything, "dep-1", mock.MatchedBy(func(in models.DepositInput) bool {
		return in.RegenerateTickets
	})).Return(&models.DepositRecord{ID: "dep-1"}, nil)

	body := strings.TrimSuffix(createBody, "}") + `,"regenerate_tickets":true}`
	router, _ := setup(svc)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/deposits/dep-1", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestDeleteDeposit(t *testing.T) {
	svc := new(MockDepositService)
	svc.On("Delete", mock.Anything, "dep-1").Return(nil)

	router, _ := setup(svc)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/deposits/dep-1", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestGetReceipt(t *testing.T) {
	svc := new(MockDepositService)
	svc.On("Get", mock.Anything, "dep-1").Return(&models.DepositRecord{ID: "dep-1"}, nil)

	router, _ := setup(svc)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/deposits/dep-1/receipt", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")))
}

func TestStreamDeposits(t *testing.T) {
	svc := new(MockDepositService)
	router, emitter := setup(svc)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/deposits/stream?owner=Ryan", nil).WithContext(ctx)
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(rr, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return emitter.ClientCount("Ryan") == 1 }, time.Second, 5*time.Millisecond)
	emitter.Emit(models.DepositEvent{Type: models.DepositCreated, Deposit: models.DepositRecord{ID: "dep-7", Owner: "Ryan"}})
	emitter.Emit(models.DepositEvent{Type: models.DepositCreated, Deposit: models.DepositRecord{ID: "dep-8", Owner: "Igor"}})

	// give the handler a moment to write before disconnecting
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rr.Body.String()
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "event: deposit_created")
	assert.Contains(t, body, "dep-7")
	assert.NotContains(t, body, "dep-8")
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
}
