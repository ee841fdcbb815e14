package entities

import "time"

// GenerationTask queues one background mashup generation request. Workers
// claim rows with FOR UPDATE SKIP LOCKED, so a row is never processed twice.
type GenerationTask struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   string `gorm:"type:varchar(64);index;not null"`
	Status      string `gorm:"type:varchar(20);index;not null;default:'queued'"`
	Attempts    int    `gorm:"not null;default:0"`
	LastError   string `gorm:"type:text"`
	QueuedAt    time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// TableName specifies the table name for GenerationTask.
func (GenerationTask) TableName() string {
	return "generation_tasks"
}
