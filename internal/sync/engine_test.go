package sync

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herdwise/internal/connectivity"
	"github.com/mamadbah2/herdwise/internal/domain/models"
	"github.com/mamadbah2/herdwise/internal/offline"
	"github.com/mamadbah2/herdwise/internal/repository/memory"
)

type call struct {
	op   string
	path string
}

// recordingRemote wraps the memory store, logs every call and lets tests
// inject failures or block writes.
type recordingRemote struct {
	*memory.Repository

	mu      gosync.Mutex
	calls   []call
	failOn  func(path string) error
	getErr  error
	blockCh chan struct{}
	entered chan struct{}
}

func newRecordingRemote() *recordingRemote {
	return &recordingRemote{Repository: memory.NewRepository()}
}

func (r *recordingRemote) record(op, path string) error {
	r.mu.Lock()
	r.calls = append(r.calls, call{op: op, path: path})
	failOn, blockCh, entered := r.failOn, r.blockCh, r.entered
	r.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if blockCh != nil {
		<-blockCh
	}
	if failOn != nil {
		return failOn(path)
	}
	return nil
}

func (r *recordingRemote) Set(ctx context.Context, path string, data json.RawMessage) error {
	if err := r.record("set", path); err != nil {
		return err
	}
	return r.Repository.Set(ctx, path, data)
}

func (r *recordingRemote) Delete(ctx context.Context, path string) error {
	if err := r.record("delete", path); err != nil {
		return err
	}
	return r.Repository.Delete(ctx, path)
}

func (r *recordingRemote) GetAll(ctx context.Context, path string) ([]json.RawMessage, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.Repository.GetAll(ctx, path)
}

func (r *recordingRemote) Calls() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

type fixture struct {
	remote  *recordingRemote
	queue   *offline.Queue
	cache   *offline.Cache
	monitor *connectivity.Monitor
}

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()
	db, err := offline.Open(filepath.Join(t.TempDir(), "herdwise.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &fixture{
		remote:  newRecordingRemote(),
		queue:   offline.NewQueue(db, nil),
		cache:   offline.NewCache(db, nil),
		monitor: connectivity.NewMonitor(online, nil, nil),
	}
}

func (f *fixture) engine(cfg Config) *Engine {
	if cfg.UserID == "" {
		cfg.UserID = "u1"
	}
	return NewEngine(f.remote, f.queue, f.cache, f.monitor, cfg, nil)
}

func (f *fixture) enqueue(t *testing.T, kind models.ActionKind, entity models.Entity, payload string) offline.Action {
	t.Helper()
	a, err := f.queue.Enqueue(context.Background(), kind, entity, json.RawMessage(payload))
	require.NoError(t, err)
	return a
}

func (f *fixture) pending(t *testing.T) []offline.Action {
	t.Helper()
	actions, err := f.queue.ListPending(context.Background())
	require.NoError(t, err)
	return actions
}

func TestSyncOfflineIsNoop(t *testing.T) {
	f := newFixture(t, false)
	f.enqueue(t, models.ActionAdd, models.EntityAnimal, `{"id":"a1"}`)

	result, err := f.engine(Config{}).Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Offline)
	assert.Len(t, f.pending(t), 1)
	assert.Empty(t, f.remote.Calls())
}

func TestSyncWithoutUser(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(t, models.ActionAdd, models.EntityAnimal, `{"id":"a1"}`)

	e := NewEngine(f.remote, f.queue, f.cache, f.monitor, Config{}, nil)
	_, err := e.Sync(context.Background())
	assert.ErrorIs(t, err, ErrNoUser)
	assert.Empty(t, f.remote.Calls())
	assert.Len(t, f.pending(t), 1)
}

func TestSyncReplaysInOrder(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(t, models.ActionAdd, models.EntityAnimal, `{"id":"a1","tagNumber":"T1"}`)
	f.enqueue(t, models.ActionUpdate, models.EntityAnimal, `{"id":"a1","tagNumber":"T1","breed":"Nguni"}`)
	f.enqueue(t, models.ActionAdd, models.EntityTransaction, `{"id":"x1","amount":100}`)
	f.enqueue(t, models.ActionDelete, models.EntityAnimal, `{"id":"a1"}`)

	result, err := f.engine(Config{}).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Applied)
	assert.Equal(t, 0, result.Failed)

	assert.Equal(t, []call{
		{op: "set", path: "users/u1/animals/a1"},
		{op: "set", path: "users/u1/animals/a1"},
		{op: "set", path: "users/u1/transactions/x1"},
		{op: "delete", path: "users/u1/animals/a1"},
	}, f.remote.Calls())

	_, ok := f.remote.Get("users/u1/animals/a1")
	assert.False(t, ok)
	doc, ok := f.remote.Get("users/u1/transactions/x1")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"x1","amount":100}`, string(doc))
	assert.Empty(t, f.pending(t))
}

func TestSyncContinuesPastFailures(t *testing.T) {
	f := newFixture(t, true)
	f.remote.failOn = func(path string) error {
		if strings.HasSuffix(path, "/bad") {
			return errors.New("permission denied")
		}
		return nil
	}
	bad := f.enqueue(t, models.ActionAdd, models.EntityTask, `{"id":"bad"}`)
	f.enqueue(t, models.ActionAdd, models.EntityTask, `{"id":"good"}`)

	e := f.engine(Config{})
	result, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 1, result.Failed)

	_, ok := f.remote.Get("users/u1/tasks/good")
	assert.True(t, ok)

	pending := f.pending(t)
	require.Len(t, pending, 1)
	assert.Equal(t, bad.ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "permission denied", pending[0].LastError)

	status := e.Status()
	assert.Equal(t, 1, status.Passes)
	assert.False(t, status.Running)
	assert.False(t, status.LastSync.IsZero())
}

func TestSyncAbandonsAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, true)
	f.remote.failOn = func(string) error { return errors.New("boom") }
	f.enqueue(t, models.ActionAdd, models.EntityEvent, `{"id":"e1"}`)

	e := f.engine(Config{MaxAttempts: 2})

	result, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Abandoned)
	assert.Len(t, f.pending(t), 1)

	result, err = e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Abandoned)
	assert.Empty(t, f.pending(t))
}

// failFirst fails the first remote write and lets every later one through.
func failFirst() func(string) error {
	failed := false
	return func(string) error {
		if failed {
			return nil
		}
		failed = true
		return errors.New("deadline exceeded")
	}
}

func TestSyncDefersLaterWritesToFailedDocument(t *testing.T) {
	f := newFixture(t, true)
	f.remote.failOn = failFirst()
	f.enqueue(t, models.ActionAdd, models.EntityAnimal, `{"id":"a1","tagNumber":"T1"}`)
	f.enqueue(t, models.ActionDelete, models.EntityAnimal, `{"id":"a1"}`)

	e := f.engine(Config{})
	result, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempted)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Deferred)
	assert.Zero(t, result.Applied)
	require.Len(t, f.pending(t), 2)

	result, err = e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Applied)
	assert.Empty(t, f.pending(t))

	_, ok := f.remote.Get("users/u1/animals/a1")
	assert.False(t, ok, "the delete queued last wins")
}

func TestSyncKeepsNewestUpdateAfterRetry(t *testing.T) {
	f := newFixture(t, true)
	f.remote.failOn = failFirst()
	f.enqueue(t, models.ActionUpdate, models.EntityAnimal, `{"id":"a1","status":"Active"}`)
	f.enqueue(t, models.ActionUpdate, models.EntityAnimal, `{"id":"a1","status":"Sold"}`)
	f.enqueue(t, models.ActionAdd, models.EntityTransaction, `{"id":"x1","amount":500}`)

	e := f.engine(Config{})
	result, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Deferred)
	assert.Equal(t, 1, result.Applied, "other documents are not held back")

	_, ok := f.remote.Get("users/u1/transactions/x1")
	assert.True(t, ok)

	_, err = e.Sync(context.Background())
	require.NoError(t, err)

	doc, ok := f.remote.Get("users/u1/animals/a1")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"a1","status":"Sold"}`, string(doc))
	assert.Empty(t, f.pending(t))
}

func TestSyncAbandonedActionDoesNotBlockDocument(t *testing.T) {
	f := newFixture(t, true)
	f.remote.failOn = failFirst()
	f.enqueue(t, models.ActionAdd, models.EntityAnimal, `{"id":"a1","status":"Active"}`)
	f.enqueue(t, models.ActionUpdate, models.EntityAnimal, `{"id":"a1","status":"Sold"}`)

	result, err := f.engine(Config{MaxAttempts: 1}).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Abandoned)
	assert.Equal(t, 1, result.Applied)
	assert.Zero(t, result.Deferred)

	doc, ok := f.remote.Get("users/u1/animals/a1")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"a1","status":"Sold"}`, string(doc))
}

func TestSyncSkipsExcludedEntities(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(t, models.ActionAdd, models.EntityCamp, `{"id":"c1","name":"North"}`)
	f.enqueue(t, models.ActionAdd, models.EntityAnimal, `{"id":"a1"}`)

	result, err := f.engine(Config{Excluded: []models.Entity{models.EntityCamp}}).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Applied)

	pending := f.pending(t)
	require.Len(t, pending, 1)
	assert.Equal(t, models.EntityCamp, pending[0].Entity)
	assert.Zero(t, pending[0].Attempts)
}

func TestSyncStripsNulls(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(t, models.ActionAdd, models.EntityAnimal, `{"id":"a1","salePrice":null,"genetics":{"notes":null,"traits":"polled"}}`)

	_, err := f.engine(Config{}).Sync(context.Background())
	require.NoError(t, err)

	doc, ok := f.remote.Get("users/u1/animals/a1")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"a1","genetics":{"traits":"polled"}}`, string(doc))
}

func TestSyncIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(t, models.ActionAdd, models.EntityAnimal, `{"id":"a1"}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.engine(Config{}).Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
}

func TestSyncRejectsConcurrentPass(t *testing.T) {
	f := newFixture(t, true)
	f.remote.blockCh = make(chan struct{})
	f.remote.entered = make(chan struct{}, 1)
	f.enqueue(t, models.ActionAdd, models.EntityAnimal, `{"id":"a1"}`)

	e := f.engine(Config{})
	done := make(chan error, 1)
	go func() {
		_, err := e.Sync(context.Background())
		done <- err
	}()

	select {
	case <-f.remote.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first pass never reached the remote")
	}
	assert.True(t, e.Status().Running)

	_, err := e.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(f.remote.blockCh)
	require.NoError(t, <-done)
	assert.Empty(t, f.pending(t))
}

func TestLoadReadThrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	require.NoError(t, f.remote.Repository.Set(ctx, "users/u1/animals/a1", json.RawMessage(`{"id":"a1"}`)))

	e := f.engine(Config{})

	loaded, err := e.Load(ctx, models.EntityAnimal)
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, loaded.Source)
	assert.JSONEq(t, `[{"id":"a1"}]`, string(loaded.Data))

	f.monitor.Set(false)
	loaded, err = e.Load(ctx, models.EntityAnimal)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, loaded.Source)
	assert.JSONEq(t, `[{"id":"a1"}]`, string(loaded.Data))

	loaded, err = e.Load(ctx, models.EntityTask)
	require.NoError(t, err)
	assert.Equal(t, SourceEmpty, loaded.Source)
	assert.JSONEq(t, `[]`, string(loaded.Data))

	f.monitor.Set(true)
	f.remote.getErr = errors.New("unavailable")
	loaded, err = e.Load(ctx, models.EntityAnimal)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, loaded.Source)
}

func TestReplaceAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	require.NoError(t, f.remote.Repository.Set(ctx, "users/u1/animals/old", json.RawMessage(`{"id":"old"}`)))
	require.NoError(t, f.remote.Repository.Set(ctx, "users/u1/tasks/t0", json.RawMessage(`{"id":"t0"}`)))

	err := f.engine(Config{}).ReplaceAll(ctx, map[models.Entity][]json.RawMessage{
		models.EntityAnimal: {json.RawMessage(`{"id":"a1","campId":null}`), json.RawMessage(`{"id":"a2"}`)},
		models.EntityTask:   {},
	})
	require.NoError(t, err)

	animals, err := f.remote.Repository.GetAll(ctx, "users/u1/animals")
	require.NoError(t, err)
	require.Len(t, animals, 2)
	assert.JSONEq(t, `{"id":"a1"}`, string(animals[0]))

	tasks, err := f.remote.Repository.GetAll(ctx, "users/u1/tasks")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	cached, err := f.cache.Get(ctx, "tasks")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(cached.Data))
}

func TestReplaceAllFailureKeepsExistingDocuments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	require.NoError(t, f.remote.Repository.Set(ctx, "users/u1/animals/a1", json.RawMessage(`{"id":"a1","breed":"Nguni"}`)))
	require.NoError(t, f.remote.Repository.Set(ctx, "users/u1/animals/old", json.RawMessage(`{"id":"old"}`)))
	f.remote.failOn = func(path string) error {
		if strings.HasSuffix(path, "/a2") {
			return errors.New("quota exceeded")
		}
		return nil
	}

	err := f.engine(Config{}).ReplaceAll(ctx, map[models.Entity][]json.RawMessage{
		models.EntityAnimal: {json.RawMessage(`{"id":"a1","breed":"Bonsmara"}`), json.RawMessage(`{"id":"a2"}`)},
	})
	require.Error(t, err)

	doc, ok := f.remote.Get("users/u1/animals/a1")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"a1","breed":"Bonsmara"}`, string(doc))
	_, ok = f.remote.Get("users/u1/animals/old")
	assert.True(t, ok, "stale documents are only removed once every write landed")

	_, err = f.cache.Get(ctx, "animals")
	assert.ErrorIs(t, err, offline.ErrCacheMiss)
}

func TestStripNulls(t *testing.T) {
	out, err := StripNulls(json.RawMessage(`{"a":null,"b":[null,{"c":null,"d":1.50}],"e":{"f":{"g":null}}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":[null,{"d":1.50}],"e":{"f":{}}}`, string(out))

	_, err = StripNulls(json.RawMessage(`{`))
	assert.Error(t, err)
}
