package main

import (
	"net/http"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"github.com/gin-gonic/gin"
)

func listWholesalersHandler(c *gin.Context) {
	filter := models.WholesalerFilter{
		Search:     c.Query("search"),
		Status:     models.EntityStatusFilter(c.Query("status")),
		DuesFilter: models.DuesFilter(c.Query("dues")),
		SortBy:     c.Query("sort_by"),
		Pagination: paginationFromQuery(c),
	}

	wholesalers, pagination, err := models.GetWholesalers(c.Request.Context(), filter)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendPaginated(c, "wholesalers", wholesalers, pagination)
}

func createWholesalerHandler(c *gin.Context) {
	var input models.NewWholesaler
	if err := c.ShouldBindJSON(&input); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	wholesaler, err := models.CreateWholesaler(c.Request.Context(), &input)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, "wholesaler created", wholesaler)
}

func getWholesalerHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	wholesaler, err := models.GetWholesaler(c.Request.Context(), id)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "wholesaler", wholesaler)
}

func updateWholesalerHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	var input models.NewWholesaler
	if err := c.ShouldBindJSON(&input); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	wholesaler, err := models.UpdateWholesaler(c.Request.Context(), id, &input)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "wholesaler updated", wholesaler)
}

func deleteWholesalerHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	wholesaler, err := models.DeleteWholesaler(c.Request.Context(), id)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "wholesaler deleted", wholesaler)
}

func restoreWholesalerHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	wholesaler, err := models.RestoreWholesaler(c.Request.Context(), id)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "wholesaler restored", wholesaler)
}

func wholesalerStatsHandler(c *gin.Context) {
	stats, err := models.GetWholesalerStats(c.Request.Context())
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "wholesaler stats", stats)
}
