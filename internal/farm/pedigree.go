package farm

import (
	"sort"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

// Offspring returns the animals descending directly from the animal(s)
// carrying tag. A child is found either through its MotherTag/FatherTag or
// through a parent's OffspringTags; tags that resolve to nothing are ignored.
// The result is sorted by tag number and then id.
func Offspring(s models.Snapshot, tag string) []models.Animal {
	if tag == "" {
		return nil
	}

	byTag := indexByTag(s.Animals)
	found := make(map[string]models.Animal)

	for _, a := range s.Animals {
		if a.MotherTag == tag || a.FatherTag == tag {
			found[a.ID] = a
		}
	}

	for _, parent := range byTag[tag] {
		for _, childTag := range parent.OffspringTags {
			for _, child := range byTag[childTag] {
				found[child.ID] = child
			}
		}
	}

	// A cyclic pedigree can list a parent as its own child.
	for _, parent := range byTag[tag] {
		delete(found, parent.ID)
	}
	return sortedAnimals(found)
}

// Ancestors walks MotherTag/FatherTag links upwards from tag. Every tag is
// visited at most once, so cyclic pedigrees terminate; dangling tags are
// skipped. The animal(s) carrying tag are never part of the result.
func Ancestors(s models.Snapshot, tag string) []models.Animal {
	if tag == "" {
		return nil
	}

	byTag := indexByTag(s.Animals)
	visited := map[string]bool{tag: true}
	queue := parentTags(byTag[tag])
	found := make(map[string]models.Animal)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == "" || visited[current] {
			continue
		}
		visited[current] = true

		animals := byTag[current]
		for _, a := range animals {
			found[a.ID] = a
		}
		queue = append(queue, parentTags(animals)...)
	}

	return sortedAnimals(found)
}

func indexByTag(animals []models.Animal) map[string][]models.Animal {
	byTag := make(map[string][]models.Animal, len(animals))
	for _, a := range animals {
		if a.TagNumber == "" {
			continue
		}
		byTag[a.TagNumber] = append(byTag[a.TagNumber], a)
	}
	return byTag
}

func parentTags(animals []models.Animal) []string {
	tags := make([]string, 0, len(animals)*2)
	for _, a := range animals {
		tags = append(tags, a.MotherTag, a.FatherTag)
	}
	return tags
}

func sortedAnimals(set map[string]models.Animal) []models.Animal {
	out := make([]models.Animal, 0, len(set))
	for _, a := range set {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TagNumber != out[j].TagNumber {
			return out[i].TagNumber < out[j].TagNumber
		}
		return out[i].ID < out[j].ID
	})
	return out
}
