package farm

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

// ComputeStats derives the dashboard counters from the snapshot collections.
func ComputeStats(s models.Snapshot) models.Stats {
	stats := models.Stats{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
	}

	for _, a := range s.Animals {
		switch a.Status {
		case models.AnimalActive:
			stats.Active++
		case models.AnimalSold:
			stats.Sold++
		case models.AnimalDeceased:
			stats.Deceased++
		}
	}

	for _, t := range s.Transactions {
		switch t.Type {
		case models.TransactionIncome:
			stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
		case models.TransactionExpense:
			stats.TotalExpenses = stats.TotalExpenses.Add(t.Amount)
		}
	}
	stats.Balance = stats.TotalIncome.Sub(stats.TotalExpenses)

	for _, t := range s.Tasks {
		if t.Status == models.TaskPending {
			stats.PendingTasks++
		}
	}

	for _, item := range s.Inventory {
		if item.LowStock() {
			stats.LowStockItems++
		}
	}

	return stats
}
