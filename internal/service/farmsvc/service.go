// Package farmsvc is the application layer over the farm model: every
// mutation goes through the reducer, is mirrored into the offline queue and
// the local cache, and triggers a best-effort sync.
package farmsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/internal/domain/models"
	"github.com/mamadbah2/herdwise/internal/farm"
	"github.com/mamadbah2/herdwise/internal/offline"
	farmsync "github.com/mamadbah2/herdwise/internal/sync"
)

var (
	// ErrInvalidArguments is returned when a request fails validation.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateTag is returned when a tag number is already in use.
	ErrDuplicateTag = errors.New("tag number already in use")
	// ErrConfirmationRequired guards destructive operations.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// Queue is the durable log the service appends mutations to.
type Queue interface {
	Enqueue(ctx context.Context, kind models.ActionKind, entity models.Entity, payload json.RawMessage) (offline.Action, error)
	ListPending(ctx context.Context) ([]offline.Action, error)
	Clear(ctx context.Context) error
}

// Cache keeps the local copy of each collection.
type Cache interface {
	Put(ctx context.Context, key string, data json.RawMessage) error
}

// Engine drains the queue and loads collections.
type Engine interface {
	Sync(ctx context.Context) (*farmsync.Result, error)
	Load(ctx context.Context, entity models.Entity) (farmsync.LoadResult, error)
	ReplaceAll(ctx context.Context, collections map[models.Entity][]json.RawMessage) error
	Excludes(entity models.Entity) bool
	Status() farmsync.Status
}

// Connectivity reports the current network state.
type Connectivity interface {
	Online() bool
}

// Service coordinates the store, the queue and the sync engine.
type Service struct {
	store  *farm.Store
	queue  Queue
	cache  Cache
	engine Engine
	conn   Connectivity
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	// dispatchMu keeps queue order identical to reducer order.
	dispatchMu sync.Mutex

	syncMu  sync.Mutex
	syncing bool
	rerun   bool
	wg      sync.WaitGroup
}

// NewService builds the service around an empty farm.
func NewService(queue Queue, cache Cache, engine Engine, conn Connectivity, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  farm.NewStore(models.Snapshot{}),
		queue:  queue,
		cache:  cache,
		engine: engine,
		conn:   conn,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Snapshot returns the current farm state.
func (s *Service) Snapshot() models.Snapshot {
	return s.store.Snapshot()
}

// Stats returns the derived statistics of the current state.
func (s *Service) Stats() models.Stats {
	return s.store.Snapshot().Stats
}

func (s *Service) today() string {
	return models.FormatDate(s.now())
}

// Dispatch applies action, mirrors the resulting document changes into the
// queue and the cache, and triggers a sync when online. New animals and
// inventory items go through AddAnimal and AddInventoryItem so their rules
// hold; other new records without an id get one.
func (s *Service) Dispatch(ctx context.Context, action farm.Action) (models.Snapshot, error) {
	switch a := action.(type) {
	case farm.AddAnimal:
		_, err := s.AddAnimal(ctx, a.Animal)
		return s.store.Snapshot(), err
	case farm.AddInventoryItem:
		_, err := s.AddInventoryItem(ctx, a.Item)
		return s.store.Snapshot(), err
	}

	action = s.assignID(action)
	return s.commit(ctx, func(models.Snapshot) ([]farm.Action, error) {
		return []farm.Action{action}, nil
	})
}

func (s *Service) assignID(action farm.Action) farm.Action {
	switch a := action.(type) {
	case farm.AddTransaction:
		if a.Transaction.ID == "" {
			a.Transaction.ID = s.newID()
		}
		return a
	case farm.AddTask:
		if a.Task.ID == "" {
			a.Task.ID = s.newID()
		}
		return a
	case farm.AddCamp:
		if a.Camp.ID == "" {
			a.Camp.ID = s.newID()
		}
		return a
	case farm.AddEvent:
		if a.Event.ID == "" {
			a.Event.ID = s.newID()
		}
		return a
	default:
		return action
	}
}

// plan inspects the current state and returns the actions to apply.
type plan func(models.Snapshot) ([]farm.Action, error)

// commit runs p and dispatches its actions while holding dispatchMu, so
// every check p makes still holds when its actions land, then triggers a sync.
func (s *Service) commit(ctx context.Context, p plan) (models.Snapshot, error) {
	s.dispatchMu.Lock()
	actions, err := p(s.store.Snapshot())
	if err != nil {
		s.dispatchMu.Unlock()
		return models.Snapshot{}, err
	}
	after, err := s.dispatchLocked(ctx, actions...)
	s.dispatchMu.Unlock()
	if err != nil {
		return after, err
	}

	s.TriggerSync()
	return after, nil
}

// dispatchLocked must be called with dispatchMu held.
func (s *Service) dispatchLocked(ctx context.Context, actions ...farm.Action) (models.Snapshot, error) {
	if len(actions) == 0 {
		return s.store.Snapshot(), nil
	}

	var before, after models.Snapshot
	for i, action := range actions {
		b, a := s.store.Dispatch(action)
		if i == 0 {
			before = b
		}
		after = a
		s.logger.Debug("action applied", zap.String("action", farm.Name(action)))
	}

	changes, err := farm.Diff(before, after)
	if err != nil {
		return after, fmt.Errorf("diff snapshots: %w", err)
	}
	if err := s.record(ctx, changes, after); err != nil {
		return after, err
	}
	if len(changes) > 0 {
		s.logger.Info("mutations queued", zap.Int("changes", len(changes)))
	}
	return after, nil
}

// record enqueues changes in order and refreshes the cached copy of every
// touched collection. The store has already applied the changes, so when
// Enqueue fails the cache still follows the store; the changes that never
// reached the queue are logged and the error is returned.
func (s *Service) record(ctx context.Context, changes []farm.Change, after models.Snapshot) error {
	var queueErr error
	touched := make(map[models.Entity]bool)

	for i, c := range changes {
		touched[c.Entity] = true
		if queueErr != nil {
			continue
		}
		if _, err := s.queue.Enqueue(ctx, c.Kind, c.Entity, c.Payload); err != nil {
			queueErr = fmt.Errorf("queue %s %s %s: %w", c.Kind, c.Entity, c.DocID, err)
			s.logUnqueued(changes[i:], err)
		}
	}

	for _, entity := range models.Entities {
		if !touched[entity] {
			continue
		}
		if err := s.cacheCollection(ctx, after, entity); err != nil {
			s.logger.Warn("failed to cache collection", zap.String("entity", string(entity)), zap.Error(err))
		}
	}
	return queueErr
}

func (s *Service) logUnqueued(changes []farm.Change, cause error) {
	lost := make([]string, 0, len(changes))
	for _, c := range changes {
		lost = append(lost, fmt.Sprintf("%s %s/%s", c.Kind, c.Entity.Collection(), c.DocID))
	}
	s.logger.Error("mutation applied locally but not queued for sync",
		zap.Strings("unqueued", lost),
		zap.Error(cause),
	)
}

func (s *Service) cacheCollection(ctx context.Context, snap models.Snapshot, entity models.Entity) error {
	var items any
	switch entity {
	case models.EntityAnimal:
		items = nonNil(snap.Animals)
	case models.EntityCamp:
		items = nonNil(snap.Camps)
	case models.EntityTransaction:
		items = nonNil(snap.Transactions)
	case models.EntityTask:
		items = nonNil(snap.Tasks)
	case models.EntityInventory:
		items = nonNil(snap.Inventory)
	case models.EntityEvent:
		items = nonNil(snap.Events)
	default:
		return fmt.Errorf("unknown entity %q", entity)
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", entity.Collection(), err)
	}
	return s.cache.Put(ctx, entity.Collection(), data)
}

// TriggerSync starts a background pass when online. Triggers that arrive
// while a pass is running coalesce into a single follow-up pass.
func (s *Service) TriggerSync() {
	if !s.conn.Online() {
		return
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	if s.syncing {
		s.rerun = true
		return
	}
	s.syncing = true
	s.wg.Add(1)
	go s.syncLoop()
}

func (s *Service) syncLoop() {
	defer s.wg.Done()
	for {
		s.runSync()

		s.syncMu.Lock()
		if !s.rerun {
			s.syncing = false
			s.syncMu.Unlock()
			return
		}
		s.rerun = false
		s.syncMu.Unlock()
	}
}

func (s *Service) runSync() {
	_, err := s.engine.Sync(context.Background())
	switch {
	case err == nil:
	case errors.Is(err, farmsync.ErrSyncInProgress):
		s.logger.Debug("sync already running")
	default:
		s.logger.Error("background sync failed", zap.Error(err))
	}
}

// SyncNow runs a pass in the caller's goroutine.
func (s *Service) SyncNow(ctx context.Context) (*farmsync.Result, error) {
	return s.engine.Sync(ctx)
}

// Wait blocks until background sync passes have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// SyncStatus describes the sync state for operators. Replayable leaves out
// actions on entities the engine never replays.
type SyncStatus struct {
	Online     bool            `json:"online"`
	Pending    int             `json:"pending"`
	Replayable int             `json:"replayable"`
	Engine     farmsync.Status `json:"engine"`
}

// SyncStatus reports connectivity, queue depth and engine state.
func (s *Service) SyncStatus(ctx context.Context) (SyncStatus, error) {
	actions, err := s.queue.ListPending(ctx)
	if err != nil {
		return SyncStatus{}, err
	}

	replayable := 0
	for _, a := range actions {
		if !s.engine.Excludes(a.Entity) {
			replayable++
		}
	}
	return SyncStatus{
		Online:     s.conn.Online(),
		Pending:    len(actions),
		Replayable: replayable,
		Engine:     s.engine.Status(),
	}, nil
}

// PendingActions lists the queued mutations.
func (s *Service) PendingActions(ctx context.Context) ([]offline.Action, error) {
	return s.queue.ListPending(ctx)
}

// ClearQueue drops every queued mutation.
func (s *Service) ClearQueue(ctx context.Context) error {
	return s.queue.Clear(ctx)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
