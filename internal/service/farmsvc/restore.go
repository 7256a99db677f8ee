package farmsvc

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/internal/backup"
	"github.com/mamadbah2/herdwise/internal/domain/models"
	"github.com/mamadbah2/herdwise/internal/farm"
	"github.com/mamadbah2/herdwise/internal/offline"
	farmsync "github.com/mamadbah2/herdwise/internal/sync"
)

// Export returns a backup of the current state.
func (s *Service) Export() backup.Backup {
	return backup.Export(s.store.Snapshot(), s.now())
}

// Restore replaces every collection with the backup contents. While online
// the remote collections are replaced wholesale and the queue is emptied.
// Offline, the difference is queued. When the remote replace fails part way,
// every restored document is queued again, since the remote may already have
// lost documents the local state still holds.
func (s *Service) Restore(ctx context.Context, b backup.Backup, confirm bool) (models.Snapshot, error) {
	if !confirm {
		return s.store.Snapshot(), ErrConfirmationRequired
	}

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	before, after := s.store.Dispatch(farm.RestoreAll{
		Animals:      b.Animals,
		Camps:        b.Camps,
		Transactions: b.Transactions,
		Tasks:        b.Tasks,
		Inventory:    b.Inventory,
		Events:       b.Events,
	})
	s.logger.Info("farm restored from backup",
		zap.Int("animals", len(after.Animals)),
		zap.String("version", b.Version),
	)

	diff := farm.Diff
	if s.conn.Online() {
		err := s.replaceRemote(ctx, b)
		if err == nil {
			return after, nil
		}
		s.logger.Error("remote replace failed, queueing every restored document", zap.Error(err))
		diff = farm.Rewrite
	}

	changes, err := diff(before, after)
	if err != nil {
		return after, fmt.Errorf("diff snapshots: %w", err)
	}
	if err := s.record(ctx, changes, after); err != nil {
		return after, err
	}
	s.TriggerSync()
	return after, nil
}

func (s *Service) replaceRemote(ctx context.Context, b backup.Backup) error {
	collections, err := b.Collections()
	if err != nil {
		return err
	}
	if err := s.engine.ReplaceAll(ctx, collections); err != nil {
		return err
	}
	if err := s.queue.Clear(ctx); err != nil {
		return fmt.Errorf("clear superseded actions: %w", err)
	}
	return nil
}

// LoadSummary tells where each collection came from during Bootstrap.
type LoadSummary map[models.Entity]string

// Bootstrap loads every collection through the engine, draining pending
// actions first when online so the remote reflects local work. Actions still
// queued afterwards are laid over the remote collections, so local work that
// has not reached the remote yet stays visible.
func (s *Service) Bootstrap(ctx context.Context) (LoadSummary, error) {
	if s.conn.Online() {
		// A pass started by the online transition must finish first.
		s.Wait()
		if _, err := s.engine.Sync(ctx); err != nil {
			s.logger.Warn("initial sync failed", zap.Error(err))
		}
	}

	pending, err := s.queue.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending actions: %w", err)
	}

	var restore farm.RestoreAll
	summary := make(LoadSummary, len(models.Entities))

	for _, entity := range models.Entities {
		loaded, err := s.engine.Load(ctx, entity)
		if err != nil {
			return summary, fmt.Errorf("load %s: %w", entity.Collection(), err)
		}
		summary[entity] = string(loaded.Source)

		data := loaded.Data
		if loaded.Source == farmsync.SourceRemote {
			merged, changed, err := overlayPending(data, entity, pending)
			if err != nil {
				return summary, fmt.Errorf("merge pending %s: %w", entity.Collection(), err)
			}
			if changed {
				data = merged
				if err := s.cache.Put(ctx, entity.Collection(), data); err != nil {
					s.logger.Warn("failed to cache merged collection", zap.String("entity", string(entity)), zap.Error(err))
				}
			}
		}

		var target any
		switch entity {
		case models.EntityAnimal:
			target = &restore.Animals
		case models.EntityCamp:
			target = &restore.Camps
		case models.EntityTransaction:
			target = &restore.Transactions
		case models.EntityTask:
			target = &restore.Tasks
		case models.EntityInventory:
			target = &restore.Inventory
		case models.EntityEvent:
			target = &restore.Events
		}
		if err := json.Unmarshal(data, target); err != nil {
			return summary, fmt.Errorf("decode %s: %w", entity.Collection(), err)
		}
	}

	s.dispatchMu.Lock()
	s.store.Dispatch(restore)
	s.dispatchMu.Unlock()

	s.logger.Info("farm loaded", zap.Any("sources", summary), zap.Int("pending", len(pending)))
	return summary, nil
}

// overlayPending replays the queued actions on entity over a collection
// read from the remote, in queue order. It reports whether anything changed.
func overlayPending(data json.RawMessage, entity models.Entity, pending []offline.Action) (json.RawMessage, bool, error) {
	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, false, fmt.Errorf("decode collection: %w", err)
	}

	index := make(map[string]int, len(docs))
	for i, doc := range docs {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(doc, &head); err == nil && head.ID != "" {
			index[head.ID] = i
		}
	}

	changed := false
	for _, action := range pending {
		if action.Entity != entity {
			continue
		}
		docID, err := action.DocID()
		if err != nil {
			continue
		}

		switch action.Kind {
		case models.ActionAdd, models.ActionUpdate:
			if i, ok := index[docID]; ok {
				docs[i] = action.Payload
			} else {
				index[docID] = len(docs)
				docs = append(docs, action.Payload)
			}
		case models.ActionDelete:
			i, ok := index[docID]
			if !ok {
				continue
			}
			docs[i] = nil
			delete(index, docID)
		default:
			continue
		}
		changed = true
	}
	if !changed {
		return data, false, nil
	}

	kept := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		if doc != nil {
			kept = append(kept, doc)
		}
	}
	merged, err := json.Marshal(kept)
	if err != nil {
		return nil, false, fmt.Errorf("encode collection: %w", err)
	}
	return merged, true, nil
}
