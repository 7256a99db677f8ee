package farmsvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/herdwise/internal/domain/models"
	"github.com/mamadbah2/herdwise/internal/farm"
)

// AddInventoryItem stocks a new item and books its purchase as an expense
// when price times quantity is positive.
func (s *Service) AddInventoryItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error) {
	if strings.TrimSpace(item.Name) == "" {
		return models.InventoryItem{}, fmt.Errorf("%w: name is required", ErrInvalidArguments)
	}
	if item.Quantity < 0 || item.Price.IsNegative() {
		return models.InventoryItem{}, fmt.Errorf("%w: quantity and price cannot be negative", ErrInvalidArguments)
	}

	today := s.today()
	if item.ID == "" {
		item.ID = s.newID()
	}
	if item.Category == "" {
		item.Category = models.InventoryOther
	}
	if len(item.History) == 0 {
		item.History = []models.InventoryChange{{Date: today, Change: item.Quantity, Reason: "Initial stock"}}
	}

	actions := []farm.Action{farm.AddInventoryItem{Item: item}}
	cost := item.Price.Mul(decimal.NewFromFloat(item.Quantity))
	if cost.IsPositive() {
		actions = append(actions, farm.AddTransaction{Transaction: models.Transaction{
			ID:          s.newID(),
			Type:        models.TransactionExpense,
			Description: "Inventory: " + item.Name,
			Amount:      cost,
			Date:        today,
		}})
	}

	_, err := s.commit(ctx, func(models.Snapshot) ([]farm.Action, error) {
		return actions, nil
	})
	return item, err
}

// LogInventoryUsage consumes amount units of an item. The amount must be
// positive and cannot exceed the quantity in stock.
func (s *Service) LogInventoryUsage(ctx context.Context, id string, amount float64, reason, date string) (models.InventoryItem, error) {
	date, err := s.dateOrToday(date)
	if err != nil {
		return models.InventoryItem{}, err
	}

	after, err := s.commit(ctx, func(snap models.Snapshot) ([]farm.Action, error) {
		item, ok := snap.FindInventoryItem(id)
		if !ok {
			return nil, fmt.Errorf("%w: inventory item %s", ErrNotFound, id)
		}
		if amount <= 0 || amount > item.Quantity {
			return nil, fmt.Errorf("%w: usage must be between 0 and %g %s", ErrInvalidArguments, item.Quantity, item.Unit)
		}
		return []farm.Action{farm.LogInventoryUsage{ItemID: id, Change: -amount, Reason: strings.TrimSpace(reason), Date: date}}, nil
	})
	if err != nil {
		return models.InventoryItem{}, err
	}
	updated, _ := after.FindInventoryItem(id)
	return updated, nil
}
