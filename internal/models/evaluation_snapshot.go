package models

import (
	"time"

	"gorm.io/datatypes"
)

// EvaluationSnapshot keeps the last successfully fetched evaluation list for
// a candidate so a restarted portal can show it, marked stale, before the
// first fetch completes.
type EvaluationSnapshot struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CandidateID string         `gorm:"size:191;uniqueIndex;not null" json:"candidate_id"`
	Records     datatypes.JSON `json:"records"`
	RecordCount int            `gorm:"not null;default:0" json:"record_count"`
	FetchedAt   time.Time      `gorm:"index" json:"fetched_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
