package model

import "time"

// Task is a single to-do item with its Pomodoro progress.
type Task struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name               string    `gorm:"not null" json:"name"`
	EstimatedPomodoros int       `gorm:"default:1" json:"estimated_pomodoros"`
	CompletedPomodoros int       `gorm:"default:0" json:"completed_pomodoros"`
	IsComplete         bool      `gorm:"default:false" json:"is_complete"`
	Priority           string    `gorm:"default:medium" json:"priority"` // low, medium or high
	Notes              *string   `json:"notes"`
	CreatedAt          time.Time `gorm:"autoCreateTime:false;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime:false;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Priority values accepted by the service layer. The database does not enforce them.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// PriorityRank orders priorities from most to least urgent.
func PriorityRank(p string) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}
