package main

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"github.com/gin-gonic/gin"
)

func parseDateQuery(c *gin.Context, key string) *time.Time {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil
	}
	return &t
}

func listBillsHandler(c *gin.Context) {
	filter := models.BillFilter{
		BillType:       models.BillType(c.Query("bill_type")),
		EntityType:     models.EntityType(c.Query("entity_type")),
		PaymentMethod:  models.PaymentMethod(c.Query("payment_method")),
		IncludeDeleted: c.Query("include_deleted") == "true",
		Search:         c.Query("search"),
		StartDate:      parseDateQuery(c, "start_date"),
		EndDate:        parseDateQuery(c, "end_date"),
		Pagination:     paginationFromQuery(c),
	}
	if entityId, err := strconv.Atoi(c.Query("entity_id")); err == nil {
		filter.EntityId = entityId
	}
	switch c.Query("is_edited") {
	case "true":
		isEdited := true
		filter.IsEdited = &isEdited
	case "false":
		isEdited := false
		filter.IsEdited = &isEdited
	}

	bills, pagination, err := models.GetBills(c.Request.Context(), filter)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendPaginated(c, "bills", bills, pagination)
}

func createBillHandler(c *gin.Context) {
	var input models.NewBill
	if err := c.ShouldBindJSON(&input); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	bill, err := models.CreateBill(c.Request.Context(), &input)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, "bill created", bill)
}

func getBillHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	bill, err := models.GetBill(c.Request.Context(), id)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "bill", bill)
}

func updateBillHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	var input models.NewBill
	if err := c.ShouldBindJSON(&input); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	bill, err := models.UpdateBill(c.Request.Context(), id, &input)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "bill updated", bill)
}

func deleteBillHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	bill, err := models.DeleteBill(c.Request.Context(), id)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "bill deleted", bill)
}

func billStatsHandler(c *gin.Context) {
	stats, err := models.GetBillStats(c.Request.Context())
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "bill stats", stats)
}
