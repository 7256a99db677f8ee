package farm

import (
	"fmt"
	"sort"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

// Apply returns the snapshot that results from applying action to s. The
// input snapshot is never modified: every touched collection is copied.
// Stats are recomputed from scratch after every action.
func Apply(s models.Snapshot, action Action) models.Snapshot {
	next := s

	switch a := action.(type) {
	case AddAnimal:
		next.Animals = appendCopy(s.Animals, a.Animal)
	case UpdateAnimal:
		next.Animals = replaceWhere(s.Animals, func(x models.Animal) bool { return x.ID == a.Animal.ID }, a.Animal)
	case RemoveAnimal:
		next.Animals = removeWhere(s.Animals, func(x models.Animal) bool { return x.ID == a.ID })
	case BulkUpdateAnimalsCamp:
		ids := make(map[string]struct{}, len(a.AnimalIDs))
		for _, id := range a.AnimalIDs {
			ids[id] = struct{}{}
		}
		next.Animals = mapItems(s.Animals, func(x models.Animal) models.Animal {
			if _, ok := ids[x.ID]; ok {
				x.CampID = a.CampID
			}
			return x
		})
	case AddTransaction:
		next.Transactions = appendCopy(s.Transactions, a.Transaction)
	case RemoveTransaction:
		next.Transactions = removeWhere(s.Transactions, func(x models.Transaction) bool { return x.ID == a.ID })
	case AddTask:
		next.Tasks = appendCopy(s.Tasks, a.Task)
	case UpdateTask:
		next.Tasks = replaceWhere(s.Tasks, func(x models.Task) bool { return x.ID == a.Task.ID }, a.Task)
	case RemoveTask:
		next.Tasks = removeWhere(s.Tasks, func(x models.Task) bool { return x.ID == a.ID })
	case AddCamp:
		next.Camps = appendCopy(s.Camps, a.Camp)
	case UpdateCamp:
		next.Camps = replaceWhere(s.Camps, func(x models.Camp) bool { return x.ID == a.Camp.ID }, a.Camp)
	case DeleteCamp:
		next.Camps = removeWhere(s.Camps, func(x models.Camp) bool { return x.ID == a.ID })
		next.Animals = mapItems(s.Animals, func(x models.Animal) models.Animal {
			if x.CampID == a.ID {
				x.CampID = ""
			}
			return x
		})
	case AddEvent:
		next.Events = appendCopy(s.Events, a.Event)
	case UpdateEvent:
		next.Events = replaceWhere(s.Events, func(x models.Event) bool { return x.ID == a.Event.ID }, a.Event)
	case RemoveEvent:
		next.Events = removeWhere(s.Events, func(x models.Event) bool { return x.ID == a.ID })
	case AddWeightRecord:
		next.Animals = mapItems(s.Animals, func(x models.Animal) models.Animal {
			if x.ID != a.AnimalID {
				return x
			}
			return withWeightRecord(x, a.Record)
		})
	case AddInventoryItem:
		next.Inventory = appendCopy(s.Inventory, a.Item)
	case UpdateInventoryItem:
		next.Inventory = replaceWhere(s.Inventory, func(x models.InventoryItem) bool { return x.ID == a.Item.ID }, a.Item)
	case LogInventoryUsage:
		next.Inventory = mapItems(s.Inventory, func(x models.InventoryItem) models.InventoryItem {
			if x.ID != a.ItemID {
				return x
			}
			x.Quantity += a.Change
			x.History = appendCopy(x.History, models.InventoryChange{Date: a.Date, Change: a.Change, Reason: a.Reason})
			if a.Change < 0 {
				x.LastUsed = a.Date
			}
			return x
		})
	case RestoreAll:
		next = models.Snapshot{
			Animals:      cloneSlice(a.Animals),
			Camps:        cloneSlice(a.Camps),
			Transactions: cloneSlice(a.Transactions),
			Tasks:        cloneSlice(a.Tasks),
			Inventory:    cloneSlice(a.Inventory),
			Events:       cloneSlice(a.Events),
		}
	default:
		return s
	}

	next.Stats = ComputeStats(next)
	return next
}

func withWeightRecord(animal models.Animal, record models.WeightRecord) models.Animal {
	idx := sort.Search(len(animal.WeightRecords), func(i int) bool {
		return animal.WeightRecords[i].Date > record.Date
	})

	records := make([]models.WeightRecord, 0, len(animal.WeightRecords)+1)
	records = append(records, animal.WeightRecords[:idx]...)
	records = append(records, record)
	records = append(records, animal.WeightRecords[idx:]...)
	animal.WeightRecords = records

	description := fmt.Sprintf("Weight: %gkg", record.WeightKg)
	if record.Notes != "" {
		description += " | Notes: " + record.Notes
	}
	animal.History = appendCopy(animal.History, models.HistoryEvent{Date: record.Date, Description: description})
	return animal
}

func appendCopy[T any](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items...)
	return append(out, item)
}

func replaceWhere[T any](items []T, match func(T) bool, replacement T) []T {
	return mapItems(items, func(x T) T {
		if match(x) {
			return replacement
		}
		return x
	})
}

func removeWhere[T any](items []T, match func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, x := range items {
		if !match(x) {
			out = append(out, x)
		}
	}
	return out
}

func mapItems[T any](items []T, fn func(T) T) []T {
	out := make([]T, len(items))
	for i, x := range items {
		out[i] = fn(x)
	}
	return out
}

func cloneSlice[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
