package farmsvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/herdwise/internal/domain/models"
	"github.com/mamadbah2/herdwise/internal/farm"
)

// AddAnimal registers a new animal. Tag numbers are unique across the herd,
// including sold and deceased animals.
func (s *Service) AddAnimal(ctx context.Context, animal models.Animal) (models.Animal, error) {
	animal.TagNumber = strings.TrimSpace(animal.TagNumber)
	if animal.TagNumber == "" || strings.TrimSpace(animal.Type) == "" {
		return models.Animal{}, fmt.Errorf("%w: type and tag number are required", ErrInvalidArguments)
	}
	if animal.Sex != "" && animal.Sex != models.SexMale && animal.Sex != models.SexFemale {
		return models.Animal{}, fmt.Errorf("%w: sex must be M or F", ErrInvalidArguments)
	}

	if animal.ID == "" {
		animal.ID = s.newID()
	}
	if animal.Status == "" {
		animal.Status = models.AnimalActive
	}
	if len(animal.History) == 0 {
		animal.History = []models.HistoryEvent{{Date: s.today(), Description: "Added to herd"}}
	}

	_, err := s.commit(ctx, func(snap models.Snapshot) ([]farm.Action, error) {
		for _, existing := range snap.Animals {
			if strings.EqualFold(existing.TagNumber, animal.TagNumber) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateTag, animal.TagNumber)
			}
		}
		return []farm.Action{farm.AddAnimal{Animal: animal}}, nil
	})
	return animal, err
}

// SellAnimal marks an active animal as sold and, for a positive price,
// books the sale as income. An empty date means today.
func (s *Service) SellAnimal(ctx context.Context, id string, price decimal.Decimal, date string) (models.Animal, error) {
	if price.IsNegative() {
		return models.Animal{}, fmt.Errorf("%w: sale price cannot be negative", ErrInvalidArguments)
	}
	date, err := s.dateOrToday(date)
	if err != nil {
		return models.Animal{}, err
	}

	var sold models.Animal
	_, err = s.commit(ctx, func(snap models.Snapshot) ([]farm.Action, error) {
		animal, err := activeAnimal(snap, id)
		if err != nil {
			return nil, err
		}

		animal.Status = models.AnimalSold
		animal.SalePrice = &price
		animal.SaleDate = date
		animal.History = append(append([]models.HistoryEvent(nil), animal.History...),
			models.HistoryEvent{Date: date, Description: "Sold for " + price.StringFixed(2)})
		sold = animal

		actions := []farm.Action{farm.UpdateAnimal{Animal: animal}}
		if price.IsPositive() {
			actions = append(actions, farm.AddTransaction{Transaction: models.Transaction{
				ID:          s.newID(),
				Type:        models.TransactionIncome,
				Description: fmt.Sprintf("Sold %s (Tag: %s)", animal.Type, animal.TagNumber),
				Amount:      price,
				Date:        date,
			}})
		}
		return actions, nil
	})
	return sold, err
}

// MarkDeceased records the death of an active animal. An empty date means today.
func (s *Service) MarkDeceased(ctx context.Context, id, reason, date string) (models.Animal, error) {
	date, err := s.dateOrToday(date)
	if err != nil {
		return models.Animal{}, err
	}

	var dead models.Animal
	_, err = s.commit(ctx, func(snap models.Snapshot) ([]farm.Action, error) {
		animal, err := activeAnimal(snap, id)
		if err != nil {
			return nil, err
		}

		animal.Status = models.AnimalDeceased
		animal.DeceasedReason = strings.TrimSpace(reason)
		animal.DeceasedDate = date

		description := "Deceased"
		if animal.DeceasedReason != "" {
			description += ": " + animal.DeceasedReason
		}
		animal.History = append(append([]models.HistoryEvent(nil), animal.History...),
			models.HistoryEvent{Date: date, Description: description})
		dead = animal

		return []farm.Action{farm.UpdateAnimal{Animal: animal}}, nil
	})
	return dead, err
}

// Offspring lists the known offspring of an animal.
func (s *Service) Offspring(id string) ([]models.Animal, error) {
	snap := s.store.Snapshot()
	animal, ok := snap.FindAnimal(id)
	if !ok {
		return nil, fmt.Errorf("%w: animal %s", ErrNotFound, id)
	}
	return farm.Offspring(snap, animal.TagNumber), nil
}

// Ancestors lists every known ancestor of an animal.
func (s *Service) Ancestors(id string) ([]models.Animal, error) {
	snap := s.store.Snapshot()
	animal, ok := snap.FindAnimal(id)
	if !ok {
		return nil, fmt.Errorf("%w: animal %s", ErrNotFound, id)
	}
	return farm.Ancestors(snap, animal.TagNumber), nil
}

// Suggestions returns management hints for an animal.
func (s *Service) Suggestions(id string) ([]string, error) {
	hints, ok := farm.Suggestions(s.store.Snapshot(), id, s.now())
	if !ok {
		return nil, fmt.Errorf("%w: animal %s", ErrNotFound, id)
	}
	return hints, nil
}

// CampCapacity reports the stocking situation of a camp.
func (s *Service) CampCapacity(id string) (farm.CampCapacity, error) {
	capacity, ok := farm.Capacity(s.store.Snapshot(), id)
	if !ok {
		return farm.CampCapacity{}, fmt.Errorf("%w: camp %s", ErrNotFound, id)
	}
	return capacity, nil
}

func activeAnimal(snap models.Snapshot, id string) (models.Animal, error) {
	animal, ok := snap.FindAnimal(id)
	if !ok {
		return models.Animal{}, fmt.Errorf("%w: animal %s", ErrNotFound, id)
	}
	if animal.Status != models.AnimalActive {
		return models.Animal{}, fmt.Errorf("%w: animal %s is %s", ErrInvalidArguments, id, animal.Status)
	}
	return animal, nil
}

func (s *Service) dateOrToday(date string) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return s.today(), nil
	}
	parsed, err := models.ParseDate(date)
	if err != nil {
		return "", fmt.Errorf("%w: date %q", ErrInvalidArguments, date)
	}
	return models.FormatDate(parsed), nil
}
