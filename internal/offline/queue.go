package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

// Action is a pending mutation waiting to be replayed against the remote store.
type Action struct {
	ID        string            `json:"id"`
	Kind      models.ActionKind `json:"kind"`
	Entity    models.Entity     `json:"entity"`
	Payload   json.RawMessage   `json:"payload"`
	CreatedAt time.Time         `json:"createdAt"`
	Attempts  int               `json:"attempts"`
	LastError string            `json:"lastError,omitempty"`
}

// DocID extracts the target document id from the payload.
func (a Action) DocID() (string, error) {
	var doc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(a.Payload, &doc); err != nil {
		return "", fmt.Errorf("decode payload of %s: %w", a.ID, err)
	}
	if doc.ID == "" {
		return "", fmt.Errorf("payload of %s has no id", a.ID)
	}
	return doc.ID, nil
}

// Queue is the durable append log of pending actions.
type Queue struct {
	db     *DB
	logger *zap.Logger
	now    func() time.Time
}

// NewQueue builds a queue on top of an opened local store.
func NewQueue(db *DB, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{db: db, logger: logger, now: time.Now}
}

// Enqueue appends a new action. The id combines kind, entity, wall-clock
// milliseconds and a random suffix, so no coordination is needed.
func (q *Queue) Enqueue(ctx context.Context, kind models.ActionKind, entity models.Entity, payload json.RawMessage) (Action, error) {
	now := q.now().UTC()
	action := Action{
		ID:        fmt.Sprintf("%s_%s_%d_%s", kind, entity, now.UnixMilli(), uuid.NewString()),
		Kind:      kind,
		Entity:    entity,
		Payload:   payload,
		CreatedAt: now,
	}

	_, err := q.db.ExecContext(ctx,
		`INSERT INTO offline_actions (id, kind, entity, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		action.ID, string(kind), string(entity), string(payload), now.UnixNano())
	if err != nil {
		return Action{}, fmt.Errorf("enqueue %s %s: %w", kind, entity, err)
	}

	q.logger.Debug("action queued", zap.String("action_id", action.ID))
	return action, nil
}

// ListPending returns every queued action, oldest first. Actions created in
// the same instant keep their insertion order.
func (q *Queue) ListPending(ctx context.Context) ([]Action, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, kind, entity, payload, created_at, attempts, last_error
		 FROM offline_actions ORDER BY created_at ASC, seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pending actions: %w", err)
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		var (
			a         Action
			kind      string
			entity    string
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &kind, &entity, &payload, &createdAt, &a.Attempts, &a.LastError); err != nil {
			return nil, fmt.Errorf("scan pending action: %w", err)
		}
		a.Kind = models.ActionKind(kind)
		a.Entity = models.Entity(entity)
		a.Payload = json.RawMessage(payload)
		a.CreatedAt = time.Unix(0, createdAt).UTC()
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending actions: %w", err)
	}

	return actions, nil
}

// Count returns the number of queued actions.
func (q *Queue) Count(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offline_actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending actions: %w", err)
	}
	return n, nil
}

// Remove deletes the given actions. Unknown ids are ignored.
func (q *Queue) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := q.db.ExecContext(ctx, `DELETE FROM offline_actions WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("remove %d actions: %w", len(ids), err)
	}
	return nil
}

// MarkFailed records a failed replay attempt; the action stays queued.
func (q *Queue) MarkFailed(ctx context.Context, id string, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}

	if _, err := q.db.ExecContext(ctx,
		`UPDATE offline_actions SET attempts = attempts + 1, last_error = ? WHERE id = ?`, message, id); err != nil {
		return fmt.Errorf("mark action %s failed: %w", id, err)
	}
	return nil
}

// Clear drops every queued action.
func (q *Queue) Clear(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM offline_actions`); err != nil {
		return fmt.Errorf("clear pending actions: %w", err)
	}
	q.logger.Info("pending actions cleared")
	return nil
}
