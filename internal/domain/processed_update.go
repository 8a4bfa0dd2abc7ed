// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// ProcessedUpdate marks a platform update id as claimed by the dispatcher.
// The unique index makes a second delivery of the same update (for example the
// tail of a polling batch racing a webhook cutover) a detectable no-op, giving
// the pipeline at-least-once tolerance without exactly-once machinery.
type ProcessedUpdate struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UpdateID  int64     `gorm:"not null;uniqueIndex:ux_processed_update_id"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedUpdate) TableName() string { return "processed_updates" }
