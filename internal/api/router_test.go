package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mtr002/notify-dispatcher/internal/alarm"
	"github.com/mtr002/notify-dispatcher/internal/db"
	"github.com/mtr002/notify-dispatcher/internal/interfaces"
	"github.com/mtr002/notify-dispatcher/internal/stats"
	"github.com/mtr002/notify-dispatcher/internal/subcache"
	"github.com/mtr002/notify-dispatcher/internal/worker"
)

type MockPool struct {
	mock.Mock
}

func (m *MockPool) Running() bool {
	return m.Called().Bool(0)
}

func (m *MockPool) Submit(batch *interfaces.Batch) error {
	return m.Called(batch).Error(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) UpsertStatus(ctx context.Context, status *interfaces.SubscriptionStatus) error {
	return m.Called(ctx, status).Error(0)
}

func (m *MockStore) GetStatus(ctx context.Context, tenant, subscriptionID string) (*interfaces.SubscriptionStatus, error) {
	args := m.Called(ctx, tenant, subscriptionID)
	if args.Get(0) != nil {
		return args.Get(0).(*interfaces.SubscriptionStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newTestRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	AddRoutes(r, deps)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(Dependencies{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestReadiness(t *testing.T) {
	pool := new(MockPool)
	store := new(MockStore)
	pool.On("Running").Return(true)
	store.On("Ping", mock.Anything).Return(nil).Once()

	h := newTestRouter(Dependencies{Pool: pool, Store: store})
	rec := do(t, h, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "connected", resp.Database)

	store.On("Ping", mock.Anything).Return(errors.New("down")).Once()
	rec = do(t, h, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadiness_PoolStopped(t *testing.T) {
	pool := new(MockPool)
	pool.On("Running").Return(false)

	rec := do(t, newTestRouter(Dependencies{Pool: pool}), http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatistics(t *testing.T) {
	registry := stats.NewRegistry()
	registry.Increment(interfaces.NotifyContextSent, "application/json")
	simulated := &stats.Counter{}
	simulated.Inc()
	simulated.Inc()

	rec := do(t, newTestRouter(Dependencies{Stats: registry, Simulated: simulated}), http.MethodGet, "/statistics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statisticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(2), resp.SimulatedNotifications)
	assert.Equal(t, uint64(1), resp.Counters[interfaces.NotifyContextSent]["application/json"])
}

func TestAlarms(t *testing.T) {
	alarms := alarm.NewManager(false)
	alarms.Raise(context.Background(), "h:80/a", "refused")

	rec := do(t, newTestRouter(Dependencies{Alarms: alarms}), http.MethodGet, "/alarms", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Alarms []alarm.Alarm `json:"alarms"`
		Count  int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "h:80/a", resp.Alarms[0].URL)
}

func TestSubscriptionStatus(t *testing.T) {
	cache := subcache.New()
	cache.RecordStatus(context.Background(), "", "cached", interfaces.DeliveryStatus{StatusCode: 200})

	store := new(MockStore)
	store.On("GetStatus", mock.Anything, "city", "persisted").
		Return(&interfaces.SubscriptionStatus{Tenant: "city", SubscriptionID: "persisted", LastNotificationFail: true}, nil)
	store.On("GetStatus", mock.Anything, "city", "missing").Return(nil, db.ErrStatusNotFound)
	store.On("GetStatus", mock.Anything, "city", "broken").Return(nil, errors.New("db down"))

	h := newTestRouter(Dependencies{Cache: cache, Store: store})

	rec := do(t, h, http.MethodGet, "/subscriptions/-/cached/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = do(t, h, http.MethodGet, "/subscriptions/city/persisted/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"failed"`)

	rec = do(t, h, http.MethodGet, "/subscriptions/city/missing/status", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/subscriptions/city/broken/status", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSubmitBatch(t *testing.T) {
	pool := new(MockPool)
	pool.On("Submit", mock.MatchedBy(func(b *interfaces.Batch) bool {
		return b.TransactionID == "tx-9" && b.Len() == 1
	})).Return(nil).Once()

	h := newTestRouter(Dependencies{Pool: pool})
	body := `{"transaction_id":"tx-9","jobs":[{"host":"h","port":80,"verb":"POST","subscription_id":"s"}]}`

	rec := do(t, h, http.MethodPost, "/batches", body)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"jobs":1`)

	rec = do(t, h, http.MethodPost, "/batches", `{"jobs":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	pool.On("Submit", mock.Anything).Return(worker.ErrPoolStopped).Once()
	rec = do(t, h, http.MethodPost, "/batches", body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	pool.AssertExpectations(t)
}

type releasingPool struct {
	released chan struct{}
}

func (p *releasingPool) Running() bool { return true }

func (p *releasingPool) Submit(batch *interfaces.Batch) error {
	go func() {
		batch.Release()
		close(p.released)
	}()
	return nil
}

// Run with -race: the response is built from values read before Submit.
func TestSubmitBatch_ResponseSurvivesRelease(t *testing.T) {
	pool := &releasingPool{released: make(chan struct{})}
	h := newTestRouter(Dependencies{Pool: pool})
	body := `{"transaction_id":"tx-7","jobs":[{"host":"h","port":80,"verb":"POST","subscription_id":"s"},{"host":"h","port":80,"verb":"POST","subscription_id":"t"}]}`

	rec := do(t, h, http.MethodPost, "/batches", body)
	<-pool.released

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tx-7", resp["transaction_id"])
	assert.Equal(t, float64(2), resp["jobs"])
	assert.NotEmpty(t, resp["batch_id"])
}

func TestSubmitBatch_NoPool(t *testing.T) {
	rec := do(t, newTestRouter(Dependencies{}), http.MethodPost, "/batches", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
