package models

import "github.com/shopspring/decimal"

// InventoryCategory groups stock items.
type InventoryCategory string

const (
	InventoryMedicine  InventoryCategory = "medicine"
	InventoryFeed      InventoryCategory = "feed"
	InventoryFencing   InventoryCategory = "fencing"
	InventoryEquipment InventoryCategory = "equipment"
	InventoryOther     InventoryCategory = "other"
)

// InventoryItem is a stocked consumable or asset.
type InventoryItem struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Category          InventoryCategory `json:"category"`
	Quantity          float64           `json:"quantity"`
	Unit              string            `json:"unit,omitempty"`
	Price             decimal.Decimal   `json:"price"`
	LowStockThreshold *float64          `json:"lowStockThreshold,omitempty"`
	LastUsed          string            `json:"lastUsed,omitempty"`
	History           []InventoryChange `json:"history"`
}

// InventoryChange records a quantity adjustment.
type InventoryChange struct {
	Date   string  `json:"date"`
	Change float64 `json:"change"`
	Reason string  `json:"reason,omitempty"`
}

// LowStock reports whether the item is at or below its reorder level.
func (i InventoryItem) LowStock() bool {
	if i.LowStockThreshold != nil {
		return i.Quantity <= *i.LowStockThreshold
	}
	return i.Quantity <= 0
}
