// Package farm holds the in-memory farm model: the typed actions, the pure
// reducer that applies them and the Store that serialises dispatch.
package farm

import "github.com/mamadbah2/herdwise/internal/domain/models"

// Action is a typed mutation of the farm snapshot. The set of actions is
// closed; Apply switches over every variant.
type Action interface {
	farmAction()
}

type AddAnimal struct{ Animal models.Animal }

type UpdateAnimal struct{ Animal models.Animal }

type RemoveAnimal struct{ ID string }

// BulkUpdateAnimalsCamp moves several animals into one camp. An empty
// CampID unassigns them.
type BulkUpdateAnimalsCamp struct {
	AnimalIDs []string
	CampID    string
}

type AddTransaction struct{ Transaction models.Transaction }

type RemoveTransaction struct{ ID string }

type AddTask struct{ Task models.Task }

type UpdateTask struct{ Task models.Task }

type RemoveTask struct{ ID string }

type AddCamp struct{ Camp models.Camp }

type UpdateCamp struct{ Camp models.Camp }

// DeleteCamp removes a camp and unassigns, never deletes, its animals.
type DeleteCamp struct{ ID string }

type AddEvent struct{ Event models.Event }

type UpdateEvent struct{ Event models.Event }

type RemoveEvent struct{ ID string }

// AddWeightRecord appends a weighing to an animal, keeping records ordered by date.
type AddWeightRecord struct {
	AnimalID string
	Record   models.WeightRecord
}

type AddInventoryItem struct{ Item models.InventoryItem }

type UpdateInventoryItem struct{ Item models.InventoryItem }

// LogInventoryUsage adjusts an item's quantity by Change (negative for usage).
type LogInventoryUsage struct {
	ItemID string
	Change float64
	Reason string
	Date   string
}

type RemoveInventoryItem struct{ ID string }

// RestoreAll replaces every collection wholesale.
type RestoreAll struct {
	Animals      []models.Animal
	Camps        []models.Camp
	Transactions []models.Transaction
	Tasks        []models.Task
	Inventory    []models.InventoryItem
	Events       []models.Event
}

func (AddAnimal) farmAction()             {}
func (UpdateAnimal) farmAction()          {}
func (RemoveAnimal) farmAction()          {}
func (BulkUpdateAnimalsCamp) farmAction() {}
func (AddTransaction) farmAction()        {}
func (RemoveTransaction) farmAction()     {}
func (AddTask) farmAction()               {}
func (UpdateTask) farmAction()            {}
func (RemoveTask) farmAction()            {}
func (AddCamp) farmAction()               {}
func (UpdateCamp) farmAction()            {}
func (DeleteCamp) farmAction()            {}
func (AddEvent) farmAction()              {}
func (UpdateEvent) farmAction()           {}
func (RemoveEvent) farmAction()           {}
func (AddWeightRecord) farmAction()       {}
func (AddInventoryItem) farmAction()      {}
func (UpdateInventoryItem) farmAction()   {}
func (LogInventoryUsage) farmAction()     {}
func (RemoveInventoryItem) farmAction()   {}
func (RestoreAll) farmAction()            {}
