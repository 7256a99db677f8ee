package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mamadbah2/herdwise/internal/connectivity"
	"github.com/mamadbah2/herdwise/internal/domain/models"
	"github.com/mamadbah2/herdwise/internal/offline"
	"github.com/mamadbah2/herdwise/internal/repository/memory"
	"github.com/mamadbah2/herdwise/internal/server/handlers"
	"github.com/mamadbah2/herdwise/internal/service/farmsvc"
	"github.com/mamadbah2/herdwise/internal/service/reporting"
	farmsync "github.com/mamadbah2/herdwise/internal/sync"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testServer struct {
	handler http.Handler
	svc     *farmsvc.Service
	remote  *memory.Repository
	monitor *connectivity.Monitor
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := offline.Open(filepath.Join(t.TempDir(), "herdwise.db"))
	require.NoError(t, err)

	queue := offline.NewQueue(db, nil)
	cache := offline.NewCache(db, nil)
	remote := memory.NewRepository()
	monitor := connectivity.NewMonitor(false, nil, nil)
	engine := farmsync.NewEngine(remote, queue, cache, monitor, farmsync.Config{UserID: "u1"}, nil)
	svc := farmsvc.NewService(queue, cache, engine, monitor, nil)
	monitor.OnOnline(svc.TriggerSync)

	reports := reporting.NewService(svc, nil)
	h := Handlers{
		Farm:    handlers.NewFarmHandler(svc, nil),
		Sync:    handlers.NewSyncHandler(svc, monitor, nil),
		Reports: handlers.NewReportHandler(reports, reporting.NewAssistant(reports, nil, nil), nil),
	}

	t.Cleanup(func() {
		svc.Wait()
		db.Close()
	})
	return &testServer{handler: New(h, nil), svc: svc, remote: remote, monitor: monitor}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnimalLifecycleOffline(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/animals", map[string]any{"type": "Cattle", "sex": "F", "tagNumber": "A1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	animal := decode[models.Animal](t, rec)

	rec = s.do(t, http.MethodPost, "/api/animals", map[string]any{"type": "Cattle", "sex": "F", "tagNumber": "a1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/animals/"+animal.ID+"/sell", map[string]any{"price": "1500", "date": "2024-05-01"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.AnimalSold, decode[models.Animal](t, rec).Status)

	rec = s.do(t, http.MethodPost, "/api/animals/"+animal.ID+"/deceased", map[string]any{"reason": "old"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "only active animals can die")

	rec = s.do(t, http.MethodPost, "/api/animals/missing/sell", map[string]any{"price": "1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[models.Stats](t, rec)
	assert.Equal(t, 1, stats.Sold)
	assert.Equal(t, "1500", stats.TotalIncome.String())

	rec = s.do(t, http.MethodGet, "/api/queue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	queued := decode[[]offline.Action](t, rec)
	assert.NotEmpty(t, queued)
	assert.Equal(t, 0, s.remote.Len(), "nothing reaches the remote while offline")
}

func TestDispatchEnvelope(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/actions", map[string]any{
		"type":    "ADD_TASK",
		"payload": map[string]any{"id": "t1", "description": "Dip cattle", "dueDate": "2024-06-01", "status": "Pending"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[models.Snapshot](t, rec)
	require.Len(t, snap.Tasks, 1)

	rec = s.do(t, http.MethodPost, "/api/actions", map[string]any{"type": "FLY_TO_MOON", "payload": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/actions", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/actions", map[string]any{"type": "ADD_TASK", "payload": []int{1}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "a payload of the wrong shape is a client error")

	rec = s.do(t, http.MethodPost, "/api/actions", map[string]any{
		"type":    "ADD_TRANSACTION",
		"payload": map[string]any{"type": "Expense", "description": "Salt lick", "amount": 40, "date": "2024-06-02"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap = decode[models.Snapshot](t, rec)
	require.Len(t, snap.Transactions, 1)
	assert.NotEmpty(t, snap.Transactions[0].ID, "ids are assigned to new records")

	rec = s.do(t, http.MethodPost, "/api/actions", map[string]any{
		"type":    "ADD_ANIMAL",
		"payload": map[string]any{"type": "Cattle", "sex": "F", "tagNumber": "D1"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/actions", map[string]any{
		"type":    "ADD_ANIMAL",
		"payload": map[string]any{"type": "Cattle", "sex": "F", "tagNumber": "d1"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGoingOnlineDrainsQueue(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/animals", map[string]any{"type": "Goat", "sex": "M", "tagNumber": "G1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/connectivity", map[string]any{"online": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"online":true,"changed":true}`, rec.Body.String())

	s.svc.Wait()
	rec = s.do(t, http.MethodPost, "/api/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/sync/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[farmsvc.SyncStatus](t, rec)
	assert.True(t, status.Online)
	assert.Zero(t, status.Pending)
	assert.Equal(t, 1, s.remote.Len())

	rec = s.do(t, http.MethodPut, "/api/connectivity", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackupRoundTrip(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/animals", map[string]any{"type": "Sheep", "sex": "F", "tagNumber": "S1"})

	rec := s.do(t, http.MethodGet, "/api/backup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "farm-backup-")
	exported := rec.Body.String()

	rec = s.do(t, http.MethodPost, "/api/backup", exported)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "confirmation is required")

	rec = s.do(t, http.MethodPost, "/api/backup?confirm=true", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/backup?confirm=true", `{"animals":[]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, s.svc.Snapshot().Animals)

	rec = s.do(t, http.MethodPost, "/api/backup?confirm=true", exported)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.svc.Snapshot().Animals, 1)
}

func TestReports(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/animals", map[string]any{"type": "Cattle", "breed": "Bonsmara, red", "sex": "F", "tagNumber": "C1"})

	rec := s.do(t, http.MethodGet, "/api/reports/animals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"Bonsmara, red"`)

	rec = s.do(t, http.MethodGet, "/api/reports/weather", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/reports/animals/sheets", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[[]reporting.Alert](t, rec))

	rec = s.do(t, http.MethodPost, "/api/assistant", map[string]any{"prompt": "How is the herd?"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/assistant", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
