package models

// TaskStatus is either pending or completed.
type TaskStatus string

const (
	TaskPending   TaskStatus = "Pending"
	TaskCompleted TaskStatus = "Completed"
)

// Task is a to-do item with a due date.
type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	DueDate     string     `json:"dueDate"`
	Status      TaskStatus `json:"status"`
}

// Event is a scheduled activity involving one or more animals.
type Event struct {
	ID               string     `json:"id"`
	Type             string     `json:"type"`
	Date             string     `json:"date"`
	Notes            string     `json:"notes,omitempty"`
	AnimalTagNumbers []string   `json:"animalTagNumbers"`
	Status           TaskStatus `json:"status,omitempty"`
}
