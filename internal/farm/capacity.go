package farm

import (
	"math"

	"github.com/paulmach/orb/geo"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

const (
	defaultLargeStockRate = 0.1
	defaultSmallStockRate = 0.5
	squareMetresPerHa     = 10000
)

var (
	largeStockTypes = map[string]bool{"Cattle": true, "Horse": true}
	smallStockTypes = map[string]bool{"Sheep": true, "Goat": true, "Pig": true}
)

// CampCapacity compares a camp's head count with what its area can carry.
type CampCapacity struct {
	CampID         string             `json:"campId"`
	AreaHa         float64            `json:"areaHa"`
	Animals        int                `json:"animals"`
	LSUCount       int                `json:"lsuCount"`
	SSUCount       int                `json:"ssuCount"`
	Rates          map[string]float64 `json:"rates"`
	LSUMax         float64            `json:"lsuMax"`
	SSUMax         float64            `json:"ssuMax"`
	LSUOverstocked bool               `json:"lsuOverstocked"`
	SSUOverstocked bool               `json:"ssuOverstocked"`
}

// Capacity evaluates the stocking of campID. Point boundaries and camps
// without a boundary have zero area.
func Capacity(s models.Snapshot, campID string) (CampCapacity, bool) {
	camp, ok := s.FindCamp(campID)
	if !ok {
		return CampCapacity{}, false
	}

	result := CampCapacity{
		CampID: camp.ID,
		Rates:  StockingRates(camp),
	}

	if camp.Boundary != nil {
		if geometry := camp.Boundary.Geometry(); geometry != nil {
			result.AreaHa = math.Abs(geo.Area(geometry)) / squareMetresPerHa
		}
	}

	for _, a := range s.Animals {
		if a.CampID != camp.ID || a.Status != models.AnimalActive {
			continue
		}
		result.Animals++
		switch {
		case largeStockTypes[a.Type]:
			result.LSUCount++
		case smallStockTypes[a.Type]:
			result.SSUCount++
		}
	}

	lsuRate := result.Rates[models.StockingUnitLarge]
	ssuRate := result.Rates[models.StockingUnitSmall]
	result.LSUMax = maxHeads(result.AreaHa, lsuRate)
	result.SSUMax = maxHeads(result.AreaHa, ssuRate)
	result.LSUOverstocked = lsuRate > 0 && float64(result.LSUCount) > result.LSUMax
	result.SSUOverstocked = ssuRate > 0 && float64(result.SSUCount) > result.SSUMax

	return result, true
}

// StockingRates returns the camp's hectares-per-unit rates with defaults
// filled in for missing or non-positive entries.
func StockingRates(camp models.Camp) map[string]float64 {
	rates := map[string]float64{
		models.StockingUnitLarge: defaultLargeStockRate,
		models.StockingUnitSmall: defaultSmallStockRate,
	}
	for key, value := range camp.RecommendedStockingRates {
		if _, known := rates[key]; known && value > 0 {
			rates[key] = value
		}
	}
	return rates
}

func maxHeads(areaHa, rate float64) float64 {
	if rate <= 0 {
		return areaHa
	}
	return areaHa / rate
}
