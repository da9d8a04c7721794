package api

import (
	"github.com/Zvi-Yafi/family-notify-sub001/docs"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(h *Handler) *gin.Engine {

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	docs.SwaggerInfo.BasePath = "/api"

	apiRoutes := router.Group("/api")
	{
		apiRoutes.GET("/cron/dispatch-due", h.dispatchDueHandler)
		apiRoutes.POST("/dispatch/announcement", h.dispatchAnnouncementHandler)
		apiRoutes.POST("/dispatch/event", h.dispatchEventHandler)
		apiRoutes.GET("/progress/:itemType/:itemId", h.progressHandler)
		apiRoutes.PUT("/scheduler/toggle", h.toggleSchedulerJobHandler)
		apiRoutes.GET("/admin/stats", h.superAdminStatsHandler)

		apiRoutes.POST("/groups", h.createGroupHandler)
		apiRoutes.POST("/users", h.createUserHandler)
		apiRoutes.PUT("/users/:userId/preferences/:channel", h.setPreferenceHandler)
	}

	groupRoutes := apiRoutes.Group("/groups/:groupId")
	{
		groupRoutes.GET("/stats", h.groupStatsHandler)
		groupRoutes.POST("/announcements", h.createAnnouncementHandler)
		groupRoutes.GET("/announcements", h.listAnnouncementsHandler)
		groupRoutes.DELETE("/announcements/:announcementId", h.deleteAnnouncementHandler)
		groupRoutes.POST("/events", h.createEventHandler)
		groupRoutes.GET("/events", h.listEventsHandler)
		groupRoutes.POST("/members", h.addMemberHandler)
		groupRoutes.DELETE("/members/:userId", h.removeMemberHandler)
	}

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}
