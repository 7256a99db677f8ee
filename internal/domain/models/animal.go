package models

import "github.com/shopspring/decimal"

// AnimalStatus enumerates the lifecycle states of an animal.
type AnimalStatus string

const (
	AnimalActive   AnimalStatus = "Active"
	AnimalSold     AnimalStatus = "Sold"
	AnimalDeceased AnimalStatus = "Deceased"
)

// Sex of an animal.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// Animal is a single tagged head of livestock.
//
// CampID, MotherTag, FatherTag and OffspringTags are weak references: they
// may point at camps or animals that no longer exist, and the pedigree they
// describe may contain cycles.
type Animal struct {
	ID             string           `json:"id"`
	Type           string           `json:"type"`
	Breed          string           `json:"breed,omitempty"`
	Sex            Sex              `json:"sex"`
	TagNumber      string           `json:"tagNumber"`
	TagColor       string           `json:"tagColor,omitempty"`
	Birthdate      string           `json:"birthdate,omitempty"`
	CampID         string           `json:"campId,omitempty"`
	Status         AnimalStatus     `json:"status"`
	SalePrice      *decimal.Decimal `json:"salePrice,omitempty"`
	SaleDate       string           `json:"saleDate,omitempty"`
	DeceasedReason string           `json:"deceasedReason,omitempty"`
	DeceasedDate   string           `json:"deceasedDate,omitempty"`
	MotherTag      string           `json:"motherTag,omitempty"`
	FatherTag      string           `json:"fatherTag,omitempty"`
	OffspringTags  []string         `json:"offspringTags"`
	Genetics       GeneticInfo      `json:"genetics"`
	Health         []HealthRecord   `json:"health"`
	WeightRecords  []WeightRecord   `json:"weightRecords"`
	History        []HistoryEvent   `json:"history"`
}

// GeneticInfo holds free-form breeding information.
type GeneticInfo struct {
	Traits  map[string]string `json:"traits,omitempty"`
	Lineage []string          `json:"lineage,omitempty"`
	Notes   string            `json:"notes,omitempty"`
}

// HealthRecord captures a vaccination, treatment or check-up.
type HealthRecord struct {
	Date              string `json:"date"`
	Type              string `json:"type"`
	Description       string `json:"description"`
	Performer         string `json:"performer,omitempty"`
	NextScheduledDate string `json:"nextScheduledDate,omitempty"`
}

// WeightRecord is one weighing of an animal.
type WeightRecord struct {
	Date     string  `json:"date"`
	WeightKg float64 `json:"weightKg"`
	Notes    string  `json:"notes,omitempty"`
}

// HistoryEvent is an entry of the animal's audit log.
type HistoryEvent struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}
