package dto

import "time"

// ScheduleRequest asks for a draft content item to be queued for publication.
type ScheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Platforms   []string  `json:"platforms" binding:"required"`
}

// RescheduleRequest moves an already-scheduled item to a new time.
type RescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}

// ProcessResponse is returned by the cron and manual trigger endpoints.
type ProcessResponse struct {
	Success   bool        `json:"success"`
	Stats     interface{} `json:"stats,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
