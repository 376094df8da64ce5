package models

import "time"

// DiagnosticLog is one entry of the silent-log tier: failures that are
// recorded but never surfaced to the user.
type DiagnosticLog struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
	Level     string    `gorm:"size:16" json:"level"`   // ERROR, WARN
	Source    string    `gorm:"size:64" json:"source"`  // Operation that failed (load, resolve, stats)
	Message   string    `gorm:"type:text" json:"message"`
	Detail    string    `gorm:"type:text" json:"detail"`
	Stack     string    `gorm:"type:text" json:"stack"`
	Context   string    `gorm:"type:text" json:"context"` // Context information (JSON format)
}
