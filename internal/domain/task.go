package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"   // Open; created from a recommendation
	TaskCompleted TaskStatus = "completed" // Marked fixed by the user
	TaskVerified  TaskStatus = "verified"  // A later reliable scan confirmed the fix
	TaskRegressed TaskStatus = "regressed" // Reappeared after being completed
)

// Task is a durable, per-site improvement item spanning many scans.
type Task struct {
	ID             string      `json:"id" validate:"required"`
	Domain         string      `json:"domain" validate:"required"`
	Key            string      `json:"key" validate:"required"`
	Category       CategoryKey `json:"category" validate:"required"`
	RuleID         string      `json:"ruleId,omitempty"`
	Title          string      `json:"title" validate:"required,max=200"`
	Description    string      `json:"description"`
	HowTo          string      `json:"howTo,omitempty"`
	Effort         Effort      `json:"effort" validate:"oneof=Kolay Orta Zor"`
	Priority       Priority    `json:"priority" validate:"oneof=critical high medium low"`
	Status         TaskStatus  `json:"status" validate:"oneof=pending completed verified regressed"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	CompletedAt    *time.Time  `json:"completedAt"`
	LastSeenScanID string      `json:"lastSeenScanId,omitempty"`
}

// Outstanding reports whether the task still needs work. Regressed tasks
// count as open.
func (t Task) Outstanding() bool {
	return t.Status == TaskPending || t.Status == TaskRegressed
}

// Resolved reports whether the user has marked the issue fixed at some point
// and it has not come back since.
func (t Task) Resolved() bool {
	return t.Status == TaskCompleted || t.Status == TaskVerified
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required fields and enum values.
func (t *Task) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("task %q: %w", t.Key, err)
	}
	return nil
}

func (r *Recommendation) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("recommendation %q: %w", r.Key, err)
	}
	return nil
}
