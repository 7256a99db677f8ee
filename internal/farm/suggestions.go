package farm

import (
	"strings"
	"time"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

const (
	vaccinationInterval = 365 * 24 * time.Hour
	breedingAge         = 365 * 24 * time.Hour
	siblingWarnCount    = 3
)

// Suggestions returns husbandry hints for one animal based on its history,
// age and relatives. The order of the hints is fixed.
func Suggestions(s models.Snapshot, animalID string, now time.Time) ([]string, bool) {
	animal, ok := s.FindAnimal(animalID)
	if !ok {
		return nil, false
	}

	var hints []string

	lastVaccination, vaccinated := latestHistory(animal, "vaccin")
	switch {
	case !vaccinated:
		hints = append(hints, "No vaccination record found. Consider scheduling a vaccination.")
	case now.Sub(lastVaccination) > vaccinationInterval:
		hints = append(hints, "Last vaccination was over a year ago. Schedule a new vaccination.")
	}

	if animal.Sex == models.SexFemale && animal.Status == models.AnimalActive {
		if born, err := models.ParseDate(animal.Birthdate); err == nil && now.Sub(born) > breedingAge {
			if _, bred := latestHistory(animal, "bred"); !bred {
				hints = append(hints, "This female is of breeding age and has not been bred yet. Consider scheduling breeding.")
			}
		}
	}

	if animal.CampID != "" && hasRelativeInCamp(s.Animals, animal) {
		hints = append(hints, "Potential inbreeding risk: close relatives are in the same camp.")
	}

	if animal.MotherTag != "" && animal.FatherTag != "" {
		siblings := 0
		for _, other := range s.Animals {
			if other.TagNumber != animal.TagNumber && other.MotherTag == animal.MotherTag && other.FatherTag == animal.FatherTag {
				siblings++
			}
		}
		if siblings > siblingWarnCount {
			hints = append(hints, "Many siblings detected. Consider introducing new genetics for diversity.")
		}
	}

	return hints, true
}

func latestHistory(animal models.Animal, keyword string) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, event := range animal.History {
		if !strings.Contains(strings.ToLower(event.Description), keyword) {
			continue
		}
		found = true
		if date, err := models.ParseDate(event.Date); err == nil && date.After(latest) {
			latest = date
		}
	}
	return latest, found
}

func hasRelativeInCamp(animals []models.Animal, animal models.Animal) bool {
	for _, other := range animals {
		if other.TagNumber == animal.TagNumber || other.CampID != animal.CampID {
			continue
		}
		sameMother := animal.MotherTag != "" && other.MotherTag == animal.MotherTag
		sameFather := animal.FatherTag != "" && other.FatherTag == animal.FatherTag
		if sameMother || sameFather {
			return true
		}
	}
	return false
}
