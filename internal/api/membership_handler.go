package api

import (
	"net/http"
	"strings"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/api/dto"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"

	"github.com/gin-gonic/gin"
)

// createGroupHandler
// @Summary      Creates a family group
// @Tags         Membership
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CreateGroupRequest  true  "Group"
// @Success      201      {object}  domain.Group
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /groups [post]
func (h *Handler) createGroupHandler(c *gin.Context) {
	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Request: " + err.Error()})
		return
	}

	group, err := h.membershipService.CreateGroup(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		writeError(c, err, "unexpected error occurred while creating group.")
		return
	}

	c.JSON(http.StatusCreated, group)
}

// createUserHandler
// @Summary      Creates a user
// @Tags         Membership
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CreateUserRequest  true  "User"
// @Success      201      {object}  domain.User
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /users [post]
func (h *Handler) createUserHandler(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Request: " + err.Error()})
		return
	}

	user, err := h.membershipService.CreateUser(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		writeError(c, err, "unexpected error occurred while creating user.")
		return
	}

	c.JSON(http.StatusCreated, user)
}

// addMemberHandler
// @Summary      Adds a user to a group
// @Tags         Membership
// @Accept       json
// @Produce      json
// @Param        groupId  path      string                true  "group id"
// @Param        request  body      dto.AddMemberRequest  true  "Membership"
// @Success      201      {object}  domain.Membership
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /groups/{groupId}/members [post]
func (h *Handler) addMemberHandler(c *gin.Context) {
	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Request: " + err.Error()})
		return
	}

	m, err := h.membershipService.AddMember(c.Request.Context(), c.Param("groupId"), req.UserID, domain.Role(req.Role))
	if err != nil {
		writeError(c, err, "unexpected error occurred while adding member.")
		return
	}

	c.JSON(http.StatusCreated, m)
}

// removeMemberHandler
// @Summary      Removes a user from a group
// @Tags         Membership
// @Param        groupId  path  string  true  "group id"
// @Param        userId   path  string  true  "user id"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /groups/{groupId}/members/{userId} [delete]
func (h *Handler) removeMemberHandler(c *gin.Context) {
	if err := h.membershipService.RemoveMember(c.Request.Context(), c.Param("groupId"), c.Param("userId")); err != nil {
		writeError(c, err, "unexpected error occurred while removing member.")
		return
	}

	c.Status(http.StatusNoContent)
}

// setPreferenceHandler
// @Summary      Sets a channel preference
// @Description  Opts the user in or out of one channel. An enabled channel needs a destination.
// @Tags         Membership
// @Accept       json
// @Produce      json
// @Param        userId   path      string                    true  "user id"
// @Param        channel  path      string                    true  "EMAIL, SMS, WHATSAPP, PUSH or VOICE_CALL"
// @Param        request  body      dto.SetPreferenceRequest  true  "Preference"
// @Success      200      {object}  domain.Preference
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /users/{userId}/preferences/{channel} [put]
func (h *Handler) setPreferenceHandler(c *gin.Context) {
	var req dto.SetPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Request: " + err.Error()})
		return
	}

	pref, err := h.membershipService.SetPreference(c.Request.Context(), domain.Preference{
		UserID:      c.Param("userId"),
		Channel:     domain.Channel(strings.ToUpper(c.Param("channel"))),
		Enabled:     req.Enabled,
		Destination: req.Destination,
	})
	if err != nil {
		writeError(c, err, "unexpected error occurred while saving preference.")
		return
	}

	c.JSON(http.StatusOK, pref)
}
