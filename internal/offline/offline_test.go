package offline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "local", "herdwise.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestQueueEnqueueAndList(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(openTestDB(t), nil)

	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return fixed }

	first, err := q.Enqueue(ctx, models.ActionAdd, models.EntityAnimal, json.RawMessage(`{"id":"a1"}`))
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, models.ActionDelete, models.EntityAnimal, json.RawMessage(`{"id":"a1"}`))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Regexp(t, `^ADD_animal_\d+_[0-9a-f-]{36}$`, first.ID)

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID, "equal timestamps keep insertion order")
	assert.Equal(t, second.ID, pending[1].ID)
	assert.Equal(t, fixed, pending[0].CreatedAt)
	assert.JSONEq(t, `{"id":"a1"}`, string(pending[0].Payload))
}

func TestQueueOrdersByCreatedAt(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(openTestDB(t), nil)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	stamps := []time.Time{base.Add(2 * time.Second), base, base.Add(time.Second)}
	for i, ts := range stamps {
		ts := ts
		q.now = func() time.Time { return ts }
		_, err := q.Enqueue(ctx, models.ActionUpdate, models.EntityTask, json.RawMessage(`{"id":"t`+string(rune('0'+i))+`"}`))
		require.NoError(t, err)
	}

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for i := 1; i < len(pending); i++ {
		assert.False(t, pending[i].CreatedAt.Before(pending[i-1].CreatedAt))
	}
	assert.JSONEq(t, `{"id":"t1"}`, string(pending[0].Payload))
}

func TestQueueSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "herdwise.db")

	db, err := Open(path)
	require.NoError(t, err)
	_, err = NewQueue(db, nil).Enqueue(ctx, models.ActionAdd, models.EntityEvent, json.RawMessage(`{"id":"e1"}`))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := NewQueue(reopened, nil).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestQueueMarkFailedRemoveClear(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(openTestDB(t), nil)

	a, err := q.Enqueue(ctx, models.ActionAdd, models.EntityCamp, json.RawMessage(`{"id":"c1"}`))
	require.NoError(t, err)
	b, err := q.Enqueue(ctx, models.ActionAdd, models.EntityCamp, json.RawMessage(`{"id":"c2"}`))
	require.NoError(t, err)

	require.NoError(t, q.MarkFailed(ctx, a.ID, errors.New("timeout")))
	require.NoError(t, q.MarkFailed(ctx, a.ID, errors.New("refused")))

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 2, pending[0].Attempts)
	assert.Equal(t, "refused", pending[0].LastError)

	require.NoError(t, q.Remove(ctx, b.ID, "missing"))
	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, q.Clear(ctx))
	pending, err = q.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestActionDocID(t *testing.T) {
	id, err := Action{ID: "x", Payload: json.RawMessage(`{"id":"a1","type":"Cattle"}`)}.DocID()
	require.NoError(t, err)
	assert.Equal(t, "a1", id)

	_, err = Action{ID: "x", Payload: json.RawMessage(`{"type":"Cattle"}`)}.DocID()
	assert.Error(t, err)

	_, err = Action{ID: "x", Payload: json.RawMessage(`not json`)}.DocID()
	assert.Error(t, err)
}

func TestCachePutGetClear(t *testing.T) {
	ctx := context.Background()
	c := NewCache(openTestDB(t), nil)

	_, err := c.Get(ctx, "animals")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Put(ctx, "animals", json.RawMessage(`[{"id":"a1"}]`)))
	require.NoError(t, c.Put(ctx, "animals", json.RawMessage(`[{"id":"a2"}]`)))

	entry, err := c.Get(ctx, "animals")
	require.NoError(t, err)
	assert.Equal(t, "animals", entry.Key)
	assert.JSONEq(t, `[{"id":"a2"}]`, string(entry.Data), "put overwrites the whole entry")
	assert.False(t, entry.CachedAt.IsZero())

	require.NoError(t, c.Clear(ctx))
	_, err = c.Get(ctx, "animals")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
