package farm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

// Change is a document-level mutation derived from two snapshots.
type Change struct {
	Kind    models.ActionKind
	Entity  models.Entity
	DocID   string
	Payload json.RawMessage
}

type deletePayload struct {
	ID string `json:"id"`
}

// Diff lists the document mutations that turn before into after: additions
// and updates in the order they appear in after, then deletions in the order
// they appeared in before.
func Diff(before, after models.Snapshot) ([]Change, error) {
	var changes []Change

	steps := []func() ([]Change, error){
		func() ([]Change, error) {
			return diffCollection(models.EntityAnimal, before.Animals, after.Animals, func(a models.Animal) string { return a.ID })
		},
		func() ([]Change, error) {
			return diffCollection(models.EntityCamp, before.Camps, after.Camps, func(c models.Camp) string { return c.ID })
		},
		func() ([]Change, error) {
			return diffCollection(models.EntityTransaction, before.Transactions, after.Transactions, func(t models.Transaction) string { return t.ID })
		},
		func() ([]Change, error) {
			return diffCollection(models.EntityTask, before.Tasks, after.Tasks, func(t models.Task) string { return t.ID })
		},
		func() ([]Change, error) {
			return diffCollection(models.EntityInventory, before.Inventory, after.Inventory, func(i models.InventoryItem) string { return i.ID })
		},
		func() ([]Change, error) {
			return diffCollection(models.EntityEvent, before.Events, after.Events, func(e models.Event) string { return e.ID })
		},
	}

	for _, step := range steps {
		c, err := step()
		if err != nil {
			return nil, err
		}
		changes = append(changes, c...)
	}
	return changes, nil
}

func diffCollection[T any](entity models.Entity, before, after []T, id func(T) string) ([]Change, error) {
	previous := make(map[string][]byte, len(before))
	for _, item := range before {
		encoded, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", entity, id(item), err)
		}
		previous[id(item)] = encoded
	}

	var changes []Change
	seen := make(map[string]struct{}, len(after))

	for _, item := range after {
		docID := id(item)
		seen[docID] = struct{}{}

		encoded, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", entity, docID, err)
		}

		old, existed := previous[docID]
		switch {
		case !existed:
			changes = append(changes, Change{Kind: models.ActionAdd, Entity: entity, DocID: docID, Payload: encoded})
		case !bytes.Equal(old, encoded):
			changes = append(changes, Change{Kind: models.ActionUpdate, Entity: entity, DocID: docID, Payload: encoded})
		}
	}

	for _, item := range before {
		docID := id(item)
		if _, ok := seen[docID]; ok {
			continue
		}
		encoded, err := json.Marshal(deletePayload{ID: docID})
		if err != nil {
			return nil, fmt.Errorf("encode %s delete %s: %w", entity, docID, err)
		}
		changes = append(changes, Change{Kind: models.ActionDelete, Entity: entity, DocID: docID, Payload: encoded})
	}

	return changes, nil
}

// Rewrite lists the changes that rebuild after on a store whose contents are
// unknown: an ADD for every document in after, then the deletions Diff would
// emit for documents dropped since before.
func Rewrite(before, after models.Snapshot) ([]Change, error) {
	changes, err := Diff(models.Snapshot{}, after)
	if err != nil {
		return nil, err
	}

	dropped, err := Diff(before, after)
	if err != nil {
		return nil, err
	}
	for _, c := range dropped {
		if c.Kind == models.ActionDelete {
			changes = append(changes, c)
		}
	}
	return changes, nil
}
