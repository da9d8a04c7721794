package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/services"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	dispatchService   services.DispatchService
	schedulerService  services.SchedulerService
	progressService   services.ProgressService
	statsService      services.StatsService
	contentService    services.ContentService
	membershipService services.MembershipService
	jobManager        *worker.JobManager
	cronSecret        string
	appCtx            context.Context
}

type Services struct {
	Dispatch   services.DispatchService
	Scheduler  services.SchedulerService
	Progress   services.ProgressService
	Stats      services.StatsService
	Content    services.ContentService
	Membership services.MembershipService
}

func NewHandler(svc Services, jobManager *worker.JobManager, cronSecret string, ctx context.Context) *Handler {
	return &Handler{
		dispatchService:   svc.Dispatch,
		schedulerService:  svc.Scheduler,
		progressService:   svc.Progress,
		statsService:      svc.Stats,
		contentService:    svc.Content,
		membershipService: svc.Membership,
		jobManager:        jobManager,
		cronSecret:        cronSecret,
		appCtx:            ctx,
	}
}

// writeError maps service errors onto status codes. Internal failures are
// logged and answered with a generic message.
func writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, types.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, types.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, types.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
