package dto

import "time"

type CreateAnnouncementRequest struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Body        string     `json:"body"`
	CreatedByID string     `json:"createdById"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

type CreateEventRequest struct {
	Title                  string     `json:"title" binding:"required,max=255"`
	Description            string     `json:"description"`
	Location               string     `json:"location"`
	StartsAt               time.Time  `json:"startsAt" binding:"required"`
	EndsAt                 *time.Time `json:"endsAt"`
	CreatedByID            string     `json:"createdById"`
	ReminderOffsetsMinutes []int      `json:"reminderOffsetsMinutes" binding:"omitempty,dive,gt=0"`
}
