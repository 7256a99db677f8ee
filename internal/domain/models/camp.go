package models

import "github.com/paulmach/orb/geojson"

// Stocking unit keys used in Camp.RecommendedStockingRates.
const (
	StockingUnitLarge = "LSU"
	StockingUnitSmall = "SSU"
)

// Camp is a grazing area. Animals reference camps through Animal.CampID;
// the camp does not own them.
type Camp struct {
	ID                       string             `json:"id"`
	Name                     string             `json:"name"`
	Boundary                 *geojson.Geometry  `json:"boundary,omitempty"`
	RecommendedStockingRates map[string]float64 `json:"recommendedStockingRates,omitempty"`
	Notes                    string             `json:"notes,omitempty"`
}
