package main

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func listPaymentsHandler(c *gin.Context) {
	filter := models.PaymentFilter{
		EntityType:    models.PaymentEntityType(c.Query("entity_type")),
		PaymentMethod: models.PaymentMethod(c.Query("payment_method")),
		StartDate:     parseDateQuery(c, "start_date"),
		EndDate:       parseDateQuery(c, "end_date"),
		Pagination:    paginationFromQuery(c),
	}
	if entityId, err := strconv.Atoi(c.Query("entity_id")); err == nil {
		filter.EntityId = entityId
	}

	payments, pagination, err := models.GetPayments(c.Request.Context(), filter)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendPaginated(c, "payments", payments, pagination)
}

func createPaymentHandler(c *gin.Context) {
	var input models.NewPayment
	if err := c.ShouldBindJSON(&input); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	payment, err := models.CreatePayment(c.Request.Context(), &input)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, "payment recorded", payment)
}

// entityPaymentHandler records a payment posted against a specific customer
// or wholesaler route. The entity comes from the path, not the body.
func entityPaymentHandler(c *gin.Context, entityType models.PaymentEntityType) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	var body struct {
		Amount        decimal.Decimal      `json:"amount" binding:"required"`
		PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required,oneof=cash card online"`
		Notes         string               `json:"notes"`
		BillId        *int                 `json:"bill_id"`
		PaymentDate   *time.Time           `json:"payment_date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	payment, err := models.CreatePayment(c.Request.Context(), &models.NewPayment{
		EntityType:    entityType,
		EntityId:      id,
		Amount:        body.Amount,
		PaymentMethod: body.PaymentMethod,
		Notes:         body.Notes,
		BillId:        body.BillId,
		PaymentDate:   body.PaymentDate,
	})
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, "payment recorded", payment)
}

func createCustomerPaymentHandler(c *gin.Context) {
	entityPaymentHandler(c, models.PaymentEntityCustomer)
}

func createWholesalerPaymentHandler(c *gin.Context) {
	entityPaymentHandler(c, models.PaymentEntityWholesaler)
}

func getPaymentHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	payment, err := models.GetPayment(c.Request.Context(), id)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "payment", payment)
}

func listTransactionsHandler(c *gin.Context) {
	filter := models.TransactionFilter{
		Type:       models.TransactionType(c.Query("type")),
		Category:   c.Query("category"),
		StartDate:  parseDateQuery(c, "start_date"),
		EndDate:    parseDateQuery(c, "end_date"),
		Pagination: paginationFromQuery(c),
	}

	transactions, pagination, err := models.GetTransactions(c.Request.Context(), filter)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendPaginated(c, "transactions", transactions, pagination)
}
