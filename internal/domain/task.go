package domain

import "time"

// TaskStatus is a simulation task's lifecycle state.
type TaskStatus string

const (
	StatusQueued     TaskStatus = "QUEUED"
	StatusProcessing TaskStatus = "PROCESSING"
	StatusCompleted  TaskStatus = "COMPLETED"
	StatusFailed     TaskStatus = "FAILED"
)

// Terminal reports whether the status is final. Terminal tasks are
// immutable and never transition again.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is one simulation's record: identity, submitted parameters, lifecycle
// state, and (once completed) the result. Records are replaced whole in the
// store, never mutated in place.
type Task struct {
	ID        string  `json:"simulation_id"`
	SiteID    string  `json:"site_id"`
	Calamity  string  `json:"calamity_type"`
	Magnitude float64 `json:"magnitude"`
	Unit      string  `json:"unit,omitempty"`
	Engine    string  `json:"engine,omitempty"`

	Status      TaskStatus `json:"status"`
	Progress    int        `json:"progress_percentage"`
	CurrentStep string     `json:"current_step"`
	Error       string     `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Result *Result `json:"result,omitempty"`
}
