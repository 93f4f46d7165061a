package main

import (
	"net/http"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"github.com/gin-gonic/gin"
)

func listCustomersHandler(c *gin.Context) {
	filter := models.CustomerFilter{
		Search:     c.Query("search"),
		Type:       models.CustomerType(c.Query("type")),
		Status:     models.EntityStatusFilter(c.Query("status")),
		DuesFilter: models.DuesFilter(c.Query("dues")),
		SortBy:     c.Query("sort_by"),
		Pagination: paginationFromQuery(c),
	}

	customers, pagination, err := models.GetCustomers(c.Request.Context(), filter)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendPaginated(c, "customers", customers, pagination)
}

func createCustomerHandler(c *gin.Context) {
	var input models.NewCustomer
	if err := c.ShouldBindJSON(&input); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	customer, err := models.CreateCustomer(c.Request.Context(), &input)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, "customer created", customer)
}

func getCustomerHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	customer, err := models.GetCustomer(c.Request.Context(), id)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "customer", customer)
}

func updateCustomerHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	var input models.NewCustomer
	if err := c.ShouldBindJSON(&input); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	customer, err := models.UpdateCustomer(c.Request.Context(), id, &input)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "customer updated", customer)
}

func deleteCustomerHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	customer, err := models.DeleteCustomer(c.Request.Context(), id)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "customer deleted", customer)
}

func restoreCustomerHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	customer, err := models.RestoreCustomer(c.Request.Context(), id)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "customer restored", customer)
}

func customerStatsHandler(c *gin.Context) {
	stats, err := models.GetCustomerStats(c.Request.Context())
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "customer stats", stats)
}
