package models

import "github.com/shopspring/decimal"

// Stats are derived from the snapshot collections and never stored on their own.
type Stats struct {
	Active        int             `json:"active"`
	Sold          int             `json:"sold"`
	Deceased      int             `json:"deceased"`
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	Balance       decimal.Decimal `json:"balance"`
	PendingTasks  int             `json:"pendingTasks"`
	LowStockItems int             `json:"lowStockItems"`
}

// Snapshot is the full in-memory farm model.
type Snapshot struct {
	Animals      []Animal        `json:"animals"`
	Camps        []Camp          `json:"camps"`
	Transactions []Transaction   `json:"transactions"`
	Tasks        []Task          `json:"tasks"`
	Inventory    []InventoryItem `json:"inventory"`
	Events       []Event         `json:"events"`
	Stats        Stats           `json:"stats"`
}

// FindAnimal returns the animal with the given id.
func (s Snapshot) FindAnimal(id string) (Animal, bool) {
	for _, a := range s.Animals {
		if a.ID == id {
			return a, true
		}
	}
	return Animal{}, false
}

// FindInventoryItem returns the inventory item with the given id.
func (s Snapshot) FindInventoryItem(id string) (InventoryItem, bool) {
	for _, item := range s.Inventory {
		if item.ID == id {
			return item, true
		}
	}
	return InventoryItem{}, false
}

// FindCamp returns the camp with the given id.
func (s Snapshot) FindCamp(id string) (Camp, bool) {
	for _, c := range s.Camps {
		if c.ID == id {
			return c, true
		}
	}
	return Camp{}, false
}
