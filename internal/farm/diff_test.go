package farm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

func TestDiff(t *testing.T) {
	before := Apply(models.Snapshot{}, AddAnimal{Animal: animal("a1", "T1", models.AnimalActive)})
	before = Apply(before, AddAnimal{Animal: animal("a2", "T2", models.AnimalActive)})
	before = Apply(before, AddTask{Task: models.Task{ID: "t1", Description: "dip"}})

	after := Apply(before, UpdateAnimal{Animal: animal("a1", "T1", models.AnimalSold)})
	after = Apply(after, RemoveAnimal{ID: "a2"})
	after = Apply(after, AddAnimal{Animal: animal("a3", "T3", models.AnimalActive)})
	after = Apply(after, AddEvent{Event: models.Event{ID: "e1", Type: "Vaccination"}})

	changes, err := Diff(before, after)
	require.NoError(t, err)
	require.Len(t, changes, 4)

	assert.Equal(t, Change{Kind: models.ActionUpdate, Entity: models.EntityAnimal, DocID: "a1", Payload: changes[0].Payload}, changes[0])
	assert.Equal(t, models.ActionAdd, changes[1].Kind)
	assert.Equal(t, "a3", changes[1].DocID)
	assert.Equal(t, models.ActionDelete, changes[2].Kind)
	assert.Equal(t, "a2", changes[2].DocID)
	assert.JSONEq(t, `{"id":"a2"}`, string(changes[2].Payload))
	assert.Equal(t, models.EntityEvent, changes[3].Entity)
	assert.Equal(t, models.ActionAdd, changes[3].Kind)
}

func TestDiffUnchanged(t *testing.T) {
	s := Apply(models.Snapshot{}, AddAnimal{Animal: animal("a1", "T1", models.AnimalActive)})
	changes, err := Diff(s, Apply(s, UpdateTask{Task: models.Task{ID: "none"}}))
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestRewrite(t *testing.T) {
	before := Apply(models.Snapshot{}, AddAnimal{Animal: animal("a1", "T1", models.AnimalActive)})
	before = Apply(before, AddAnimal{Animal: animal("a2", "T2", models.AnimalActive)})
	after := Apply(before, RemoveAnimal{ID: "a2"})
	after = Apply(after, AddTask{Task: models.Task{ID: "t1", Description: "dip"}})

	changes, err := Rewrite(before, after)
	require.NoError(t, err)
	require.Len(t, changes, 3)

	assert.Equal(t, models.ActionAdd, changes[0].Kind)
	assert.Equal(t, "a1", changes[0].DocID, "unchanged documents are written again")
	assert.Equal(t, models.ActionAdd, changes[1].Kind)
	assert.Equal(t, "t1", changes[1].DocID)
	assert.Equal(t, models.ActionDelete, changes[2].Kind)
	assert.Equal(t, "a2", changes[2].DocID)
}
