// Package backup converts the farm snapshot to and from the portable
// backup document, and renders tabular exports as CSV.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

// Version is written into every exported backup.
const Version = "1.0"

// ErrMalformedBackup is returned when a backup document cannot be read.
var ErrMalformedBackup = errors.New("malformed backup")

// Backup is the portable copy of every collection.
type Backup struct {
	Animals      []models.Animal        `json:"animals"`
	Transactions []models.Transaction   `json:"transactions"`
	Tasks        []models.Task          `json:"tasks"`
	Camps        []models.Camp          `json:"camps"`
	Inventory    []models.InventoryItem `json:"inventory"`
	Events       []models.Event         `json:"events"`
	ExportDate   time.Time              `json:"exportDate"`
	Version      string                 `json:"version"`
}

// Export copies the snapshot collections into a backup stamped with now.
func Export(s models.Snapshot, now time.Time) Backup {
	return Backup{
		Animals:      nonNil(s.Animals),
		Transactions: nonNil(s.Transactions),
		Tasks:        nonNil(s.Tasks),
		Camps:        nonNil(s.Camps),
		Inventory:    nonNil(s.Inventory),
		Events:       nonNil(s.Events),
		ExportDate:   now.UTC(),
		Version:      Version,
	}
}

// Marshal renders the backup as indented JSON.
func Marshal(b Backup) ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

// Parse reads a backup document. Anything that is not a JSON object of the
// expected shape is rejected as a whole with ErrMalformedBackup; missing
// collections read as empty.
func Parse(data []byte) (Backup, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Backup{}, fmt.Errorf("%w: expected a JSON object", ErrMalformedBackup)
	}

	var b Backup
	if err := json.Unmarshal(trimmed, &b); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}

	b.Animals = nonNil(b.Animals)
	b.Transactions = nonNil(b.Transactions)
	b.Tasks = nonNil(b.Tasks)
	b.Camps = nonNil(b.Camps)
	b.Inventory = nonNil(b.Inventory)
	b.Events = nonNil(b.Events)
	return b, nil
}

// Collections returns each collection as raw documents keyed by entity,
// the shape used for a wholesale remote replace.
func (b Backup) Collections() (map[models.Entity][]json.RawMessage, error) {
	out := make(map[models.Entity][]json.RawMessage, len(models.Entities))

	add := func(entity models.Entity, items any) error {
		var docs []json.RawMessage
		encoded, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("encode %s: %w", entity.Collection(), err)
		}
		if err := json.Unmarshal(encoded, &docs); err != nil {
			return fmt.Errorf("split %s: %w", entity.Collection(), err)
		}
		if docs == nil {
			docs = []json.RawMessage{}
		}
		out[entity] = docs
		return nil
	}

	steps := []struct {
		entity models.Entity
		items  any
	}{
		{models.EntityAnimal, b.Animals},
		{models.EntityCamp, b.Camps},
		{models.EntityTransaction, b.Transactions},
		{models.EntityTask, b.Tasks},
		{models.EntityInventory, b.Inventory},
		{models.EntityEvent, b.Events},
	}
	for _, step := range steps {
		if err := add(step.entity, step.items); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
