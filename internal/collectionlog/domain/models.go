package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	subsidydomain "github.com/subsidytracker/subsidytracker/internal/subsidy/domain"
)

type CollectionStatus string

const (
	StatusRunning            CollectionStatus = "Running"
	StatusCompleted          CollectionStatus = "Completed"
	StatusPartiallyCompleted CollectionStatus = "PartiallyCompleted"
	StatusFailed             CollectionStatus = "Failed"
)

// CollectionLog is one row per collector invocation. It is created with
// status Running before any fetch and finalized exactly once on every
// exit path.
type CollectionLog struct {
	ID             snowflake.ID             `gorm:"primaryKey" json:"id"`
	Source         string                   `gorm:"size:100;not null" json:"source"`
	SourceType     subsidydomain.SourceType `gorm:"size:40;not null" json:"source_type"`
	StartedAt      time.Time                `gorm:"not null;index" json:"started_at"`
	CompletedAt    *time.Time               `json:"completed_at,omitempty"`
	ItemsCollected int                      `gorm:"not null;default:0" json:"items_collected"`
	ItemsUpdated   int                      `gorm:"not null;default:0" json:"items_updated"`
	ItemsSkipped   int                      `gorm:"not null;default:0" json:"items_skipped"`
	Status         CollectionStatus         `gorm:"size:30;not null" json:"status"`
	ErrorMessage   *string                  `gorm:"type:text" json:"error_message,omitempty"`
}

func (CollectionLog) TableName() string { return "collection_logs" }
