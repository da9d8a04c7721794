package api

import (
	"net/http"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/api/dto"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/services"

	"github.com/gin-gonic/gin"
)

// createAnnouncementHandler
// @Summary      Creates an announcement
// @Description  Stores the announcement. Without scheduledAt, or with one in the past, it is dispatched right away.
// @Tags         Content
// @Accept       json
// @Produce      json
// @Param        groupId  path      string                         true  "group id"
// @Param        request  body      dto.CreateAnnouncementRequest  true  "Announcement"
// @Success      201      {object}  services.Created[domain.Announcement]
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /groups/{groupId}/announcements [post]
func (h *Handler) createAnnouncementHandler(c *gin.Context) {
	var req dto.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Request: " + err.Error()})
		return
	}

	created, err := h.contentService.CreateAnnouncement(c.Request.Context(), services.CreateAnnouncementInput{
		FamilyGroupID: c.Param("groupId"),
		Title:         req.Title,
		Body:          req.Body,
		CreatedByID:   req.CreatedByID,
		ScheduledAt:   req.ScheduledAt,
	})
	if err != nil {
		writeError(c, err, "unexpected error occurred while creating announcement.")
		return
	}

	c.JSON(http.StatusCreated, created)
}

// listAnnouncementsHandler
// @Summary      Lists announcements of a group
// @Tags         Content
// @Produce      json
// @Param        groupId  path     string  true  "group id"
// @Success      200      {array}  domain.Announcement
// @Failure      404      {object} dto.ErrorResponse
// @Failure      500      {object} dto.ErrorResponse
// @Router       /groups/{groupId}/announcements [get]
func (h *Handler) listAnnouncementsHandler(c *gin.Context) {
	list, err := h.contentService.ListAnnouncements(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		writeError(c, err, "unexpected error occurred while fetching announcements.")
		return
	}

	c.JSON(http.StatusOK, list)
}

// deleteAnnouncementHandler
// @Summary      Deletes an announcement
// @Description  Removes the announcement together with its delivery ledger.
// @Tags         Content
// @Param        groupId         path  string  true  "group id"
// @Param        announcementId  path  string  true  "announcement id"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /groups/{groupId}/announcements/{announcementId} [delete]
func (h *Handler) deleteAnnouncementHandler(c *gin.Context) {
	if err := h.contentService.DeleteAnnouncement(c.Request.Context(), c.Param("groupId"), c.Param("announcementId")); err != nil {
		writeError(c, err, "unexpected error occurred while deleting announcement.")
		return
	}

	c.Status(http.StatusNoContent)
}

type createEventResponse struct {
	services.Created[domain.Event]
	Reminders []domain.EventReminder `json:"reminders"`
}

// createEventHandler
// @Summary      Creates an event
// @Description  Stores the event and one reminder per offset before its start, then sends the initial event notice.
// @Tags         Content
// @Accept       json
// @Produce      json
// @Param        groupId  path      string                  true  "group id"
// @Param        request  body      dto.CreateEventRequest  true  "Event"
// @Success      201      {object}  createEventResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /groups/{groupId}/events [post]
func (h *Handler) createEventHandler(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Request: " + err.Error()})
		return
	}

	created, reminders, err := h.contentService.CreateEvent(c.Request.Context(), services.CreateEventInput{
		FamilyGroupID:          c.Param("groupId"),
		Title:                  req.Title,
		Description:            req.Description,
		Location:               req.Location,
		StartsAt:               req.StartsAt,
		EndsAt:                 req.EndsAt,
		CreatedByID:            req.CreatedByID,
		ReminderOffsetsMinutes: req.ReminderOffsetsMinutes,
	})
	if err != nil {
		writeError(c, err, "unexpected error occurred while creating event.")
		return
	}

	c.JSON(http.StatusCreated, createEventResponse{Created: *created, Reminders: reminders})
}

// listEventsHandler
// @Summary      Lists events of a group
// @Tags         Content
// @Produce      json
// @Param        groupId  path     string  true  "group id"
// @Success      200      {array}  domain.Event
// @Failure      404      {object} dto.ErrorResponse
// @Failure      500      {object} dto.ErrorResponse
// @Router       /groups/{groupId}/events [get]
func (h *Handler) listEventsHandler(c *gin.Context) {
	list, err := h.contentService.ListEvents(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		writeError(c, err, "unexpected error occurred while fetching events.")
		return
	}

	c.JSON(http.StatusOK, list)
}
