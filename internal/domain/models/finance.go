package models

import "github.com/shopspring/decimal"

func init() {
	// Backups and remote documents carry amounts as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType distinguishes income from expenses.
type TransactionType string

const (
	TransactionIncome  TransactionType = "Income"
	TransactionExpense TransactionType = "Expense"
)

// Transaction is a single financial movement.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Location    string          `json:"location,omitempty"`
}
