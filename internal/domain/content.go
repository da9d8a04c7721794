package domain

import "time"

type ItemType string

const (
	ItemAnnouncement  ItemType = "ANNOUNCEMENT"
	ItemEvent         ItemType = "EVENT"
	ItemEventReminder ItemType = "EVENT_REMINDER"
)

func (t ItemType) IsValid() bool {
	return t == ItemAnnouncement || t == ItemEvent || t == ItemEventReminder
}

// Schedulable reports whether items of this type carry a dispatch gate
// and can be picked up by the due-item claimer.
func (t ItemType) Schedulable() bool {
	return t == ItemAnnouncement || t == ItemEventReminder
}

// Announcement is gated by PublishedAt: nil until claimed or dispatched.
type Announcement struct {
	ID            string     `json:"id" db:"id"`
	FamilyGroupID string     `json:"familyGroupId" db:"family_group_id"`
	Title         string     `json:"title" db:"title"`
	Body          string     `json:"body" db:"body"`
	CreatedByID   string     `json:"createdById" db:"created_by_id"`
	ScheduledAt   *time.Time `json:"scheduledAt" db:"scheduled_at"`
	PublishedAt   *time.Time `json:"publishedAt" db:"published_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

type Event struct {
	ID            string     `json:"id" db:"id"`
	FamilyGroupID string     `json:"familyGroupId" db:"family_group_id"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	Location      string     `json:"location" db:"location"`
	StartsAt      time.Time  `json:"startsAt" db:"starts_at"`
	EndsAt        *time.Time `json:"endsAt" db:"ends_at"`
	CreatedByID   string     `json:"createdById" db:"created_by_id"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

// EventReminder is gated by SentAt. It has no group of its own; the
// owning group is the event's.
type EventReminder struct {
	ID          string     `json:"id" db:"id"`
	EventID     string     `json:"eventId" db:"event_id"`
	ScheduledAt time.Time  `json:"scheduledAt" db:"scheduled_at"`
	SentAt      *time.Time `json:"sentAt" db:"sent_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}

// DueItem is a schedulable item whose scheduled time has passed and whose
// gate is still open.
type DueItem struct {
	Type          ItemType
	ID            string
	FamilyGroupID string
	ScheduledAt   time.Time
}
