package reporting

import (
	"fmt"
	"sort"
	"time"

	"github.com/mamadbah2/herdwise/internal/domain/models"
	"github.com/mamadbah2/herdwise/internal/farm"
)

// healthLookahead is how far ahead scheduled treatments are flagged.
const healthLookahead = 7 * 24 * time.Hour

// AlertKind classifies an alert.
type AlertKind string

const (
	AlertOverdueTask   AlertKind = "overdue_task"
	AlertLowStock      AlertKind = "low_stock"
	AlertOverstocked   AlertKind = "overstocked_camp"
	AlertHealthDue     AlertKind = "health_due"
	AlertEventUpcoming AlertKind = "event_upcoming"
)

// Alert is something the farmer should act on.
type Alert struct {
	Kind    AlertKind `json:"kind"`
	Subject string    `json:"subject"`
	Message string    `json:"message"`
}

// Alerts lists overdue tasks, low stock, overstocked camps and treatments
// or events due within the next week, in that order.
func (s *Service) Alerts(now time.Time) []Alert {
	snap := s.source.Snapshot()
	today := models.FormatDate(now)
	horizon := models.FormatDate(now.Add(healthLookahead))

	var alerts []Alert

	for _, t := range snap.Tasks {
		if t.Status == models.TaskPending && t.DueDate != "" && t.DueDate < today {
			alerts = append(alerts, Alert{
				Kind:    AlertOverdueTask,
				Subject: t.ID,
				Message: fmt.Sprintf("Task overdue since %s: %s", t.DueDate, t.Description),
			})
		}
	}

	for _, item := range snap.Inventory {
		if item.LowStock() {
			alerts = append(alerts, Alert{
				Kind:    AlertLowStock,
				Subject: item.ID,
				Message: fmt.Sprintf("Low stock: %s (%s %s left)", item.Name, formatFloat(item.Quantity), item.Unit),
			})
		}
	}

	for _, camp := range snap.Camps {
		capacity, ok := farm.Capacity(snap, camp.ID)
		if !ok {
			continue
		}
		if capacity.LSUOverstocked {
			alerts = append(alerts, Alert{
				Kind:    AlertOverstocked,
				Subject: camp.ID,
				Message: fmt.Sprintf("Camp %s carries %d large stock, recommended max %.1f", camp.Name, capacity.LSUCount, capacity.LSUMax),
			})
		}
		if capacity.SSUOverstocked {
			alerts = append(alerts, Alert{
				Kind:    AlertOverstocked,
				Subject: camp.ID,
				Message: fmt.Sprintf("Camp %s carries %d small stock, recommended max %.1f", camp.Name, capacity.SSUCount, capacity.SSUMax),
			})
		}
	}

	var due []Alert
	for _, a := range snap.Animals {
		if a.Status != models.AnimalActive {
			continue
		}
		for _, h := range a.Health {
			if h.NextScheduledDate != "" && h.NextScheduledDate >= today && h.NextScheduledDate <= horizon {
				due = append(due, Alert{
					Kind:    AlertHealthDue,
					Subject: a.ID,
					Message: fmt.Sprintf("%s due for %s (Tag: %s) on %s", h.Type, a.Type, a.TagNumber, h.NextScheduledDate),
				})
			}
		}
	}
	for _, e := range snap.Events {
		if e.Status != models.TaskCompleted && e.Date >= today && e.Date <= horizon {
			due = append(due, Alert{
				Kind:    AlertEventUpcoming,
				Subject: e.ID,
				Message: fmt.Sprintf("%s scheduled on %s for %d animals", e.Type, e.Date, len(e.AnimalTagNumbers)),
			})
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].Message < due[j].Message })

	return append(alerts, due...)
}
