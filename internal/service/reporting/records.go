package reporting

import (
	"strconv"

	"github.com/mamadbah2/herdwise/internal/backup"
	"github.com/mamadbah2/herdwise/internal/domain/models"
)

func animalRecords(snap models.Snapshot) []backup.Record {
	campNames := make(map[string]string, len(snap.Camps))
	for _, c := range snap.Camps {
		campNames[c.ID] = c.Name
	}

	records := make([]backup.Record, 0, len(snap.Animals))
	for _, a := range snap.Animals {
		salePrice := ""
		if a.SalePrice != nil {
			salePrice = a.SalePrice.StringFixed(2)
		}
		latestWeight := ""
		if n := len(a.WeightRecords); n > 0 {
			latestWeight = formatFloat(a.WeightRecords[n-1].WeightKg)
		}

		records = append(records, backup.Record{
			{Name: "Tag Number", Value: a.TagNumber},
			{Name: "Type", Value: a.Type},
			{Name: "Breed", Value: a.Breed},
			{Name: "Sex", Value: string(a.Sex)},
			{Name: "Birthdate", Value: a.Birthdate},
			{Name: "Status", Value: string(a.Status)},
			{Name: "Camp", Value: campNames[a.CampID]},
			{Name: "Mother Tag", Value: a.MotherTag},
			{Name: "Father Tag", Value: a.FatherTag},
			{Name: "Latest Weight (kg)", Value: latestWeight},
			{Name: "Sale Price", Value: salePrice},
			{Name: "Sale Date", Value: a.SaleDate},
			{Name: "Deceased Reason", Value: a.DeceasedReason},
			{Name: "Deceased Date", Value: a.DeceasedDate},
		})
	}
	return records
}

func transactionRecords(snap models.Snapshot) []backup.Record {
	records := make([]backup.Record, 0, len(snap.Transactions))
	for _, t := range snap.Transactions {
		records = append(records, backup.Record{
			{Name: "Date", Value: t.Date},
			{Name: "Type", Value: string(t.Type)},
			{Name: "Description", Value: t.Description},
			{Name: "Amount", Value: t.Amount.StringFixed(2)},
			{Name: "Location", Value: t.Location},
		})
	}
	return records
}

func inventoryRecords(snap models.Snapshot) []backup.Record {
	records := make([]backup.Record, 0, len(snap.Inventory))
	for _, item := range snap.Inventory {
		threshold := ""
		if item.LowStockThreshold != nil {
			threshold = formatFloat(*item.LowStockThreshold)
		}
		lowStock := "No"
		if item.LowStock() {
			lowStock = "Yes"
		}

		records = append(records, backup.Record{
			{Name: "Name", Value: item.Name},
			{Name: "Category", Value: string(item.Category)},
			{Name: "Quantity", Value: formatFloat(item.Quantity)},
			{Name: "Unit", Value: item.Unit},
			{Name: "Price", Value: item.Price.StringFixed(2)},
			{Name: "Low Stock Threshold", Value: threshold},
			{Name: "Low Stock", Value: lowStock},
			{Name: "Last Used", Value: item.LastUsed},
		})
	}
	return records
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
