package main

import (
	"net/http"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"github.com/gin-gonic/gin"
)

func listUsersHandler(c *gin.Context) {
	filter := models.UserFilter{
		Search:     c.Query("search"),
		Pagination: paginationFromQuery(c),
	}
	switch c.Query("is_active") {
	case "true":
		isActive := true
		filter.IsActive = &isActive
	case "false":
		isActive := false
		filter.IsActive = &isActive
	}

	users, pagination, err := models.GetUsers(c.Request.Context(), filter)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendPaginated(c, "users", users, pagination)
}

func createUserHandler(c *gin.Context) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	user, err := models.SignUp(c.Request.Context(), &input)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, "shopkeeper created", user)
}

func getUserHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	user, err := models.GetShopkeeper(c.Request.Context(), id)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "shopkeeper", user)
}

func updateUserHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	var input models.UpdateShopkeeperInput
	if err := c.ShouldBindJSON(&input); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	user, err := models.UpdateShopkeeper(c.Request.Context(), id, &input)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "shopkeeper updated", user)
}

func deleteUserHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	if err := models.DeleteShopkeeper(c.Request.Context(), id); err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "shopkeeper deleted", nil)
}

func userStatsHandler(c *gin.Context) {
	stats, err := models.GetUserStats(c.Request.Context())
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "user stats", stats)
}

func toggleUserStatusHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	user, err := models.ToggleUserStatus(c.Request.Context(), id)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "user status updated", user)
}

func updateUserFeaturesHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	var input models.UpdateFeaturesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	user, err := models.UpdateUserFeatures(c.Request.Context(), id, &input)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "user features updated", user)
}
