package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run tracks one enhancement of one post. POST /enhance returns a run_id;
// callers may poll GET /runs/{run_id} until status is completed or failed.
type Run struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	PostID       int64      `db:"post_id"       json:"post_id"`
	PostURL      string     `db:"post_url"      json:"post_url,omitempty"`
	Title        string     `db:"title"         json:"title"`
	Status       string     `db:"status"        json:"status"`
	ImageURL     *string    `db:"image_url"     json:"image_url,omitempty"`
	MediaID      *int64     `db:"media_id"      json:"media_id,omitempty"`
	VideoID      *string    `db:"video_id"      json:"video_id,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}

// Terminal reports whether the run has finished, successfully or not.
func (r *Run) Terminal() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}
