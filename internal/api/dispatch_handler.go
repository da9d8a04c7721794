package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/api/dto"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/services"

	"github.com/gin-gonic/gin"
)

// dispatchDueHandler
// @Summary      Dispatches every due item
// @Description  Claims due announcements and event reminders and dispatches them. Called by an external cron.
// @Tags         Dispatch
// @Produce      json
// @Security     CronSecret
// @Success      200  {object}  dto.CronResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /cron/dispatch-due [get]
func (h *Handler) dispatchDueHandler(c *gin.Context) {
	if !h.authorizedCron(c.GetHeader("Authorization")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	res, err := h.schedulerService.ProcessDue(c.Request.Context())
	if err != nil {
		writeError(c, err, "unexpected error occurred while processing due items.")
		return
	}

	c.JSON(http.StatusOK, dto.CronResponse{Processed: res.Processed})
}

// An empty secret rejects every caller.
func (h *Handler) authorizedCron(header string) bool {
	if h.cronSecret == "" {
		return false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

// dispatchAnnouncementHandler
// @Summary      Dispatches an announcement
// @Description  Sends the announcement to every eligible member channel of its group and records one ledger row per attempt.
// @Tags         Dispatch
// @Accept       json
// @Produce      json
// @Param        request  body      dto.DispatchAnnouncementRequest  true  "Announcement to dispatch"
// @Success      200      {object}  dto.DispatchResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /dispatch/announcement [post]
func (h *Handler) dispatchAnnouncementHandler(c *gin.Context) {
	var req dto.DispatchAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Request: " + err.Error()})
		return
	}

	res, err := h.dispatchService.DispatchAnnouncement(c.Request.Context(), services.AnnouncementDispatch{
		AnnouncementID: req.AnnouncementID,
		FamilyGroupID:  req.FamilyGroupID,
	})
	if err != nil {
		writeError(c, err, "unexpected error occurred while dispatching announcement.")
		return
	}

	c.JSON(http.StatusOK, toDispatchResponse(res))
}

// dispatchEventHandler
// @Summary      Dispatches an event notice or reminder
// @Description  With eventReminderId sends that reminder; with eventId (or isInitial) sends the initial event notice.
// @Tags         Dispatch
// @Accept       json
// @Produce      json
// @Param        request  body      dto.DispatchEventRequest  true  "Event or reminder to dispatch"
// @Success      200      {object}  dto.DispatchResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /dispatch/event [post]
func (h *Handler) dispatchEventHandler(c *gin.Context) {
	var req dto.DispatchEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Request: " + err.Error()})
		return
	}
	if req.EventID == "" && req.EventReminderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Request: eventId or eventReminderId is required"})
		return
	}

	res, err := h.dispatchService.DispatchEventReminder(c.Request.Context(), services.EventReminderDispatch{
		EventReminderID: req.EventReminderID,
		EventID:         req.EventID,
		FamilyGroupID:   req.FamilyGroupID,
		IsInitial:       req.IsInitial,
	})
	if err != nil {
		writeError(c, err, "unexpected error occurred while dispatching event.")
		return
	}

	c.JSON(http.StatusOK, toDispatchResponse(res))
}

// progressHandler
// @Summary      Gets delivery progress of an item
// @Tags         Dispatch
// @Produce      json
// @Param        itemType  path      string  true  "ANNOUNCEMENT, EVENT or EVENT_REMINDER"
// @Param        itemId    path      string  true  "item id"
// @Success      200       {object}  domain.ProgressReport
// @Failure      400       {object}  dto.ErrorResponse
// @Failure      500       {object}  dto.ErrorResponse
// @Router       /progress/{itemType}/{itemId} [get]
func (h *Handler) progressHandler(c *gin.Context) {
	itemType := domain.ItemType(strings.ToUpper(c.Param("itemType")))

	report, err := h.progressService.GetDeliveryProgress(c.Request.Context(), itemType, c.Param("itemId"))
	if err != nil {
		writeError(c, err, "unexpected error occurred while fetching delivery progress.")
		return
	}

	c.JSON(http.StatusOK, report)
}

// toggleSchedulerJobHandler
// @Summary      Starts or stops the scheduler job
// @Description  Toggles the in-process due items job. If it is running it is stopped, otherwise it is started.
// @Tags         Dispatch
// @Produce      json
// @Success      200  {object}  dto.JobResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /scheduler/toggle [put]
func (h *Handler) toggleSchedulerJobHandler(c *gin.Context) {
	var err error
	var response dto.JobResponse

	if h.jobManager.IsRunning() {
		err = h.jobManager.Stop()
		response = dto.JobResponse{Status: "stopped"}
	} else {
		err = h.jobManager.Start(h.appCtx)
		response = dto.JobResponse{Status: "started"}
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

func toDispatchResponse(res *services.DispatchResult) dto.DispatchResponse {
	return dto.DispatchResponse{
		Success:  true,
		ItemType: string(res.ItemType),
		ItemID:   res.ItemID,
		Attempts: res.Attempts,
		Sent:     res.Sent,
		Failed:   res.Failed,
	}
}
