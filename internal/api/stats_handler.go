package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// groupStatsHandler
// @Summary      Gets statistics of a group
// @Description  Served from cache when fresh.
// @Tags         Stats
// @Produce      json
// @Param        groupId  path      string  true  "group id"
// @Success      200      {object}  domain.StatsResult
// @Failure      404      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /groups/{groupId}/stats [get]
func (h *Handler) groupStatsHandler(c *gin.Context) {
	stats, err := h.statsService.GetGroupStats(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		writeError(c, err, "unexpected error occurred while fetching group stats.")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// superAdminStatsHandler
// @Summary      Gets system wide statistics
// @Tags         Stats
// @Produce      json
// @Success      200  {object}  domain.SuperAdminStats
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /admin/stats [get]
func (h *Handler) superAdminStatsHandler(c *gin.Context) {
	stats, err := h.statsService.GetSuperAdminStats(c.Request.Context())
	if err != nil {
		writeError(c, err, "unexpected error occurred while fetching system stats.")
		return
	}

	c.JSON(http.StatusOK, stats)
}
