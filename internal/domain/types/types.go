// Package types contains common types used across the application
package types

import "time"

// Entry represents a review-queue row: one analyzed clip ranked by how
// suspicious its verdict was.
type Entry struct {
	Rank       int       `json:"rank"`
	JobID      string    `json:"job_id"`
	Score      float64   `json:"score"`
	Label      string    `json:"label"`
	Backend    string    `json:"backend"`
	RecordedAt time.Time `json:"recorded_at"`
}
