package domain

import "time"

type DeliveryStatus string

const (
	StatusQueued DeliveryStatus = "QUEUED"
	StatusSent   DeliveryStatus = "SENT"
	StatusFailed DeliveryStatus = "FAILED"
)

// DeliveryAttempt is one ledger row: one item, one channel, one recipient.
// Rows are immutable once SENT or FAILED.
type DeliveryAttempt struct {
	ID                string         `json:"id" db:"id"`
	ItemType          ItemType       `json:"itemType" db:"item_type"`
	ItemID            string         `json:"itemId" db:"item_id"`
	Channel           Channel        `json:"channel" db:"channel"`
	Status            DeliveryStatus `json:"status" db:"status"`
	UserID            string         `json:"userId" db:"user_id"`
	Destination       string         `json:"destination" db:"destination"`
	ProviderMessageID *string        `json:"providerMessageId" db:"provider_message_id"`
	Error             *string        `json:"error" db:"error"`
	CreatedAt         time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time      `json:"updatedAt" db:"updated_at"`
}

// ChannelStatusCount is one bucket of a grouped ledger count.
type ChannelStatusCount struct {
	Channel Channel
	Status  DeliveryStatus
	Count   int64
}

// StatusCount is one bucket of a ledger count grouped by status only.
type StatusCount struct {
	Status DeliveryStatus
	Count  int64
}

// LedgerBounds holds min(created_at) and max(updated_at) over an item's rows.
type LedgerBounds struct {
	FirstCreatedAt *time.Time
	LastUpdatedAt  *time.Time
}

// AttemptResolution is the terminal update applied to a QUEUED row.
type AttemptResolution struct {
	Status            DeliveryStatus
	ProviderMessageID *string
	Error             *string
	At                time.Time
}
