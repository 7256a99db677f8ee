package farm

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

var (
	// ErrUnknownAction is returned for envelope types that name no action.
	ErrUnknownAction = errors.New("unknown action type")
	// ErrInvalidAction is returned when an envelope payload does not fit its type.
	ErrInvalidAction = errors.New("invalid action payload")
)

// Envelope is the wire form of an action: a type tag plus its payload.
type Envelope struct {
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

type idPayload struct {
	ID string `json:"id"`
}

type bulkCampPayload struct {
	AnimalIDs []string `json:"animalIds"`
	CampID    string   `json:"campId"`
}

type weightPayload struct {
	AnimalID string              `json:"animalId"`
	Record   models.WeightRecord `json:"record"`
}

type usagePayload struct {
	ID     string  `json:"id"`
	Change float64 `json:"change"`
	Reason string  `json:"reason"`
	Date   string  `json:"date"`
}

type restorePayload struct {
	Animals      []models.Animal        `json:"animals"`
	Camps        []models.Camp          `json:"camps"`
	Transactions []models.Transaction   `json:"transactions"`
	Tasks        []models.Task          `json:"tasks"`
	Inventory    []models.InventoryItem `json:"inventory"`
	Events       []models.Event         `json:"events"`
}

// Decode turns an envelope into its typed action.
func (e Envelope) Decode() (Action, error) {
	switch e.Type {
	case "ADD_ANIMAL":
		return decodeAs(e.Payload, func(v models.Animal) Action { return AddAnimal{Animal: v} })
	case "UPDATE_ANIMAL":
		return decodeAs(e.Payload, func(v models.Animal) Action { return UpdateAnimal{Animal: v} })
	case "REMOVE_ANIMAL":
		return decodeAs(e.Payload, func(v idPayload) Action { return RemoveAnimal{ID: v.ID} })
	case "BULK_UPDATE_ANIMALS_CAMP":
		return decodeAs(e.Payload, func(v bulkCampPayload) Action {
			return BulkUpdateAnimalsCamp{AnimalIDs: v.AnimalIDs, CampID: v.CampID}
		})
	case "ADD_TRANSACTION":
		return decodeAs(e.Payload, func(v models.Transaction) Action { return AddTransaction{Transaction: v} })
	case "REMOVE_TRANSACTION":
		return decodeAs(e.Payload, func(v idPayload) Action { return RemoveTransaction{ID: v.ID} })
	case "ADD_TASK":
		return decodeAs(e.Payload, func(v models.Task) Action { return AddTask{Task: v} })
	case "UPDATE_TASK":
		return decodeAs(e.Payload, func(v models.Task) Action { return UpdateTask{Task: v} })
	case "REMOVE_TASK":
		return decodeAs(e.Payload, func(v idPayload) Action { return RemoveTask{ID: v.ID} })
	case "ADD_CAMP":
		return decodeAs(e.Payload, func(v models.Camp) Action { return AddCamp{Camp: v} })
	case "UPDATE_CAMP":
		return decodeAs(e.Payload, func(v models.Camp) Action { return UpdateCamp{Camp: v} })
	case "DELETE_CAMP":
		return decodeAs(e.Payload, func(v idPayload) Action { return DeleteCamp{ID: v.ID} })
	case "ADD_EVENT":
		return decodeAs(e.Payload, func(v models.Event) Action { return AddEvent{Event: v} })
	case "UPDATE_EVENT":
		return decodeAs(e.Payload, func(v models.Event) Action { return UpdateEvent{Event: v} })
	case "REMOVE_EVENT":
		return decodeAs(e.Payload, func(v idPayload) Action { return RemoveEvent{ID: v.ID} })
	case "ADD_WEIGHT_RECORD":
		return decodeAs(e.Payload, func(v weightPayload) Action {
			return AddWeightRecord{AnimalID: v.AnimalID, Record: v.Record}
		})
	case "ADD_INVENTORY_ITEM":
		return decodeAs(e.Payload, func(v models.InventoryItem) Action { return AddInventoryItem{Item: v} })
	case "UPDATE_INVENTORY_ITEM":
		return decodeAs(e.Payload, func(v models.InventoryItem) Action { return UpdateInventoryItem{Item: v} })
	case "LOG_INVENTORY_USAGE":
		return decodeAs(e.Payload, func(v usagePayload) Action {
			return LogInventoryUsage{ItemID: v.ID, Change: v.Change, Reason: v.Reason, Date: v.Date}
		})
	case "REMOVE_INVENTORY_ITEM":
		return decodeAs(e.Payload, func(v idPayload) Action { return RemoveInventoryItem{ID: v.ID} })
	case "RESTORE_ALL":
		return decodeAs(e.Payload, func(v restorePayload) Action {
			return RestoreAll{
				Animals:      v.Animals,
				Camps:        v.Camps,
				Transactions: v.Transactions,
				Tasks:        v.Tasks,
				Inventory:    v.Inventory,
				Events:       v.Events,
			}
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, e.Type)
	}
}

// Name returns the envelope type tag of an action, for logging.
func Name(action Action) string {
	switch action.(type) {
	case AddAnimal:
		return "ADD_ANIMAL"
	case UpdateAnimal:
		return "UPDATE_ANIMAL"
	case RemoveAnimal:
		return "REMOVE_ANIMAL"
	case BulkUpdateAnimalsCamp:
		return "BULK_UPDATE_ANIMALS_CAMP"
	case AddTransaction:
		return "ADD_TRANSACTION"
	case RemoveTransaction:
		return "REMOVE_TRANSACTION"
	case AddTask:
		return "ADD_TASK"
	case UpdateTask:
		return "UPDATE_TASK"
	case RemoveTask:
		return "REMOVE_TASK"
	case AddCamp:
		return "ADD_CAMP"
	case UpdateCamp:
		return "UPDATE_CAMP"
	case DeleteCamp:
		return "DELETE_CAMP"
	case AddEvent:
		return "ADD_EVENT"
	case UpdateEvent:
		return "UPDATE_EVENT"
	case RemoveEvent:
		return "REMOVE_EVENT"
	case AddWeightRecord:
		return "ADD_WEIGHT_RECORD"
	case AddInventoryItem:
		return "ADD_INVENTORY_ITEM"
	case UpdateInventoryItem:
		return "UPDATE_INVENTORY_ITEM"
	case LogInventoryUsage:
		return "LOG_INVENTORY_USAGE"
	case RemoveInventoryItem:
		return "REMOVE_INVENTORY_ITEM"
	case RestoreAll:
		return "RESTORE_ALL"
	default:
		return "UNKNOWN"
	}
}

func decodeAs[T any](raw json.RawMessage, build func(T) Action) (Action, error) {
	var value T
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing payload", ErrInvalidAction)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}
	return build(value), nil
}
