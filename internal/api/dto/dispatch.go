package dto

type DispatchAnnouncementRequest struct {
	AnnouncementID string `json:"announcementId" binding:"required"`
	FamilyGroupID  string `json:"familyGroupId" binding:"required"`
}

// DispatchEventRequest addresses a reminder by eventReminderId, or the
// initial notice of an event by eventId.
type DispatchEventRequest struct {
	EventID         string `json:"eventId"`
	EventReminderID string `json:"eventReminderId"`
	FamilyGroupID   string `json:"familyGroupId" binding:"required"`
	IsInitial       bool   `json:"isInitial"`
}

type DispatchResponse struct {
	Success  bool   `json:"success"`
	ItemType string `json:"itemType"`
	ItemID   string `json:"itemId"`
	Attempts int    `json:"attempts"`
	Sent     int    `json:"sent"`
	Failed   int    `json:"failed"`
}

type CronResponse struct {
	Processed int `json:"processed"`
}

type JobResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
