// Package sync drains the offline action queue into the remote document
// store and serves read-through collection loads backed by the local cache.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/herdwise/internal/domain/models"
	"github.com/mamadbah2/herdwise/internal/offline"
)

var (
	// ErrNoUser is returned when no user id is configured.
	ErrNoUser = errors.New("no user id configured")
	// ErrSyncInProgress is returned when a pass is already running.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// RemoteStore is the path-addressed remote document store.
type RemoteStore interface {
	Set(ctx context.Context, path string, data json.RawMessage) error
	Delete(ctx context.Context, path string) error
	GetAll(ctx context.Context, collectionPath string) ([]json.RawMessage, error)
	DeleteAll(ctx context.Context, collectionPath string) error
}

// Queue is the durable log of pending actions.
type Queue interface {
	ListPending(ctx context.Context) ([]offline.Action, error)
	Remove(ctx context.Context, ids ...string) error
	MarkFailed(ctx context.Context, id string, cause error) error
}

// Cache keeps the last known snapshot of each collection.
type Cache interface {
	Put(ctx context.Context, key string, data json.RawMessage) error
	Get(ctx context.Context, key string) (offline.CacheEntry, error)
}

// Connectivity reports whether the remote store should be reachable.
type Connectivity interface {
	Online() bool
}

// Config tunes the engine.
type Config struct {
	UserID string
	// ActionTimeout bounds every remote call made during a pass.
	ActionTimeout time.Duration
	// MaxAttempts abandons an action after that many failed replays; 0 retries forever.
	MaxAttempts int
	// Excluded entities stay queued and are never replayed.
	Excluded []models.Entity
}

// Result summarises one sync pass. Deferred counts actions held back behind
// a failed action on the same document.
type Result struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Offline   bool          `json:"offline"`
	Attempted int           `json:"attempted"`
	Applied   int           `json:"applied"`
	Failed    int           `json:"failed"`
	Abandoned int           `json:"abandoned"`
	Skipped   int           `json:"skipped"`
	Deferred  int           `json:"deferred"`
}

// Status is the engine state exposed to operators.
type Status struct {
	Running    bool      `json:"running"`
	Passes     int       `json:"passes"`
	LastSync   time.Time `json:"lastSync,omitempty"`
	LastError  string    `json:"lastError,omitempty"`
	LastResult *Result   `json:"lastResult,omitempty"`
}

// Source tells where a loaded collection came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
	SourceEmpty  Source = "empty"
)

// Engine replays queued actions against the remote store.
type Engine struct {
	remote RemoteStore
	queue  Queue
	cache  Cache
	conn   Connectivity
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	excluded map[models.Entity]bool

	running sync.Mutex
	mu      sync.Mutex
	status  Status
}

// NewEngine wires an engine. A zero ActionTimeout defaults to 15 seconds.
func NewEngine(remote RemoteStore, queue Queue, cache Cache, conn Connectivity, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 15 * time.Second
	}

	excluded := make(map[models.Entity]bool, len(cfg.Excluded))
	for _, e := range cfg.Excluded {
		excluded[e] = true
	}

	return &Engine{
		remote:   remote,
		queue:    queue,
		cache:    cache,
		conn:     conn,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		excluded: excluded,
	}
}

// Status returns a copy of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	status := e.status
	if status.LastResult != nil {
		r := *status.LastResult
		status.LastResult = &r
	}
	return status
}

// Excludes reports whether actions on entity stay queued and are never replayed.
func (e *Engine) Excludes(entity models.Entity) bool {
	return e.excluded[entity]
}

// Sync runs one pass over the queue. While offline it is a no-op that leaves
// the queue untouched. Once started, a pass is not interrupted by ctx
// cancellation; each remote call is bounded by ActionTimeout instead.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	if e.cfg.UserID == "" {
		return nil, ErrNoUser
	}
	if !e.conn.Online() {
		return &Result{StartedAt: e.now(), Offline: true}, nil
	}
	if !e.running.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer e.running.Unlock()

	e.setRunning(true)
	ctx = context.WithoutCancel(ctx)

	result := &Result{StartedAt: e.now()}
	err := e.drain(ctx, result)
	result.Duration = e.now().Sub(result.StartedAt)

	e.finish(result, err)
	if err != nil {
		return result, err
	}

	e.logger.Info("sync pass finished",
		zap.Int("attempted", result.Attempted),
		zap.Int("applied", result.Applied),
		zap.Int("failed", result.Failed),
		zap.Int("abandoned", result.Abandoned),
		zap.Int("skipped", result.Skipped),
		zap.Int("deferred", result.Deferred),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (e *Engine) drain(ctx context.Context, result *Result) error {
	actions, err := e.queue.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("load pending actions: %w", err)
	}

	// Documents whose oldest queued action is still pending; later actions
	// on them wait so a retry never lands on top of a newer write.
	blocked := make(map[string]bool)

	for _, action := range actions {
		if e.excluded[action.Entity] {
			result.Skipped++
			continue
		}

		logger := e.logger.With(
			zap.String("action_id", action.ID),
			zap.String("kind", string(action.Kind)),
			zap.String("entity", string(action.Entity)),
		)

		key := documentKey(action)
		if key != "" && blocked[key] {
			result.Deferred++
			logger.Debug("action deferred behind a failed write to the same document")
			continue
		}
		result.Attempted++

		if err := e.apply(ctx, action); err != nil {
			result.Failed++
			if e.recordFailure(ctx, action, err, result, logger) && key != "" {
				blocked[key] = true
			}
			continue
		}

		if err := e.queue.Remove(ctx, action.ID); err != nil {
			logger.Error("failed to dequeue applied action", zap.Error(err))
			if key != "" {
				blocked[key] = true
			}
			continue
		}
		result.Applied++
	}

	return nil
}

// documentKey identifies the remote document an action targets, or "" when
// the payload names none.
func documentKey(action offline.Action) string {
	docID, err := action.DocID()
	if err != nil {
		return ""
	}
	return string(action.Entity) + "/" + docID
}

// recordFailure counts a failed replay and reports whether the action is
// still queued.
func (e *Engine) recordFailure(ctx context.Context, action offline.Action, cause error, result *Result, logger *zap.Logger) bool {
	attempts := action.Attempts + 1
	if e.cfg.MaxAttempts > 0 && attempts >= e.cfg.MaxAttempts {
		logger.Error("abandoning action after repeated failures", zap.Int("attempts", attempts), zap.Error(cause))
		if err := e.queue.Remove(ctx, action.ID); err != nil {
			logger.Error("failed to drop abandoned action", zap.Error(err))
			return true
		}
		result.Abandoned++
		return false
	}

	logger.Warn("action replay failed", zap.Int("attempts", attempts), zap.Error(cause))
	if err := e.queue.MarkFailed(ctx, action.ID, cause); err != nil {
		logger.Error("failed to record action failure", zap.Error(err))
	}
	return true
}

func (e *Engine) apply(ctx context.Context, action offline.Action) error {
	docID, err := action.DocID()
	if err != nil {
		return err
	}
	path := models.DocumentPath(e.cfg.UserID, action.Entity.Collection(), docID)

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.ActionTimeout)
	defer cancel()

	switch action.Kind {
	case models.ActionAdd, models.ActionUpdate:
		data, err := StripNulls(action.Payload)
		if err != nil {
			return fmt.Errorf("clean payload for %s: %w", path, err)
		}
		return e.remote.Set(callCtx, path, data)
	case models.ActionDelete:
		return e.remote.Delete(callCtx, path)
	default:
		return fmt.Errorf("unsupported action kind %q", action.Kind)
	}
}

func (e *Engine) setRunning(running bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Running = running
}

func (e *Engine) finish(result *Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.status.Running = false
	e.status.Passes++
	e.status.LastResult = result
	if err != nil {
		e.status.LastError = err.Error()
		return
	}
	e.status.LastSync = result.StartedAt.Add(result.Duration)
	e.status.LastError = ""
}

// LoadResult is a collection snapshot returned by Load.
type LoadResult struct {
	Entity models.Entity   `json:"entity"`
	Data   json.RawMessage `json:"data"`
	Source Source          `json:"source"`
}

// Load reads a collection. While online it reads the remote store and
// refreshes the cache; offline, or when the remote read fails, it serves the
// cached snapshot. Excluded entities are never drained, so the cache stays
// their source of truth. A collection never seen before loads as an empty array.
func (e *Engine) Load(ctx context.Context, entity models.Entity) (LoadResult, error) {
	if e.cfg.UserID == "" {
		return LoadResult{}, ErrNoUser
	}

	key := entity.Collection()
	logger := e.logger.With(zap.String("entity", string(entity)))

	if e.conn.Online() && !e.excluded[entity] {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.ActionTimeout)
		docs, err := e.remote.GetAll(callCtx, models.CollectionPath(e.cfg.UserID, key))
		cancel()
		if err == nil {
			data, err := joinDocuments(docs)
			if err != nil {
				return LoadResult{}, err
			}
			if err := e.cache.Put(ctx, key, data); err != nil {
				logger.Warn("failed to refresh cache", zap.Error(err))
			}
			return LoadResult{Entity: entity, Data: data, Source: SourceRemote}, nil
		}
		logger.Warn("remote load failed, falling back to cache", zap.Error(err))
	}

	entry, err := e.cache.Get(ctx, key)
	if errors.Is(err, offline.ErrCacheMiss) {
		return LoadResult{Entity: entity, Data: json.RawMessage("[]"), Source: SourceEmpty}, nil
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("load %s from cache: %w", key, err)
	}
	return LoadResult{Entity: entity, Data: entry.Data, Source: SourceCache}, nil
}

// ReplaceAll overwrites whole remote collections, then caches them.
// Collections are handled concurrently. Within a collection every new
// document is written before stale ones are removed, so a failure part way
// leaves the remote holding a superset of the replacement.
func (e *Engine) ReplaceAll(ctx context.Context, collections map[models.Entity][]json.RawMessage) error {
	if e.cfg.UserID == "" {
		return ErrNoUser
	}
	ctx = context.WithoutCancel(ctx)

	g, gctx := errgroup.WithContext(ctx)
	for entity, docs := range collections {
		g.Go(func() error {
			return e.replaceCollection(gctx, entity, docs)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for entity, docs := range collections {
		data, err := joinDocuments(docs)
		if err != nil {
			return err
		}
		if err := e.cache.Put(ctx, entity.Collection(), data); err != nil {
			return fmt.Errorf("cache %s: %w", entity.Collection(), err)
		}
	}

	e.logger.Info("remote collections replaced", zap.Int("collections", len(collections)))
	return nil
}

func (e *Engine) replaceCollection(ctx context.Context, entity models.Entity, docs []json.RawMessage) error {
	collectionPath := models.CollectionPath(e.cfg.UserID, entity.Collection())

	if len(docs) == 0 {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.ActionTimeout)
		defer cancel()
		if err := e.remote.DeleteAll(callCtx, collectionPath); err != nil {
			return fmt.Errorf("clear %s: %w", collectionPath, err)
		}
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.ActionTimeout)
	existing, err := e.remote.GetAll(callCtx, collectionPath)
	cancel()
	if err != nil {
		return fmt.Errorf("list %s: %w", collectionPath, err)
	}

	kept := make(map[string]bool, len(docs))
	for _, doc := range docs {
		docID, err := documentID(doc)
		if err != nil {
			return fmt.Errorf("write %s: %w", collectionPath, err)
		}
		data, err := StripNulls(doc)
		if err != nil {
			return fmt.Errorf("clean %s/%s: %w", collectionPath, docID, err)
		}

		callCtx, cancel := context.WithTimeout(ctx, e.cfg.ActionTimeout)
		err = e.remote.Set(callCtx, models.DocumentPath(e.cfg.UserID, entity.Collection(), docID), data)
		cancel()
		if err != nil {
			return fmt.Errorf("write %s/%s: %w", collectionPath, docID, err)
		}
		kept[docID] = true
	}

	for _, doc := range existing {
		docID, err := documentID(doc)
		if err != nil || kept[docID] {
			continue
		}
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.ActionTimeout)
		err = e.remote.Delete(callCtx, models.DocumentPath(e.cfg.UserID, entity.Collection(), docID))
		cancel()
		if err != nil {
			return fmt.Errorf("remove %s/%s: %w", collectionPath, docID, err)
		}
	}
	return nil
}

func joinDocuments(docs []json.RawMessage) (json.RawMessage, error) {
	if docs == nil {
		docs = []json.RawMessage{}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return data, nil
}

func documentID(doc json.RawMessage) (string, error) {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(doc, &head); err != nil {
		return "", fmt.Errorf("decode document: %w", err)
	}
	if head.ID == "" {
		return "", errors.New("document has no id")
	}
	return head.ID, nil
}
