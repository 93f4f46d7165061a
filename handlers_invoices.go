package main

import (
	"net/http"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"github.com/gin-gonic/gin"
)

func listInvoicesHandler(c *gin.Context) {
	filter := models.InvoiceFilter{
		Status:     models.InvoiceStatus(c.Query("status")),
		Search:     c.Query("search"),
		StartDate:  parseDateQuery(c, "start_date"),
		EndDate:    parseDateQuery(c, "end_date"),
		Pagination: paginationFromQuery(c),
	}

	invoices, pagination, err := models.GetInvoices(c.Request.Context(), filter)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendPaginated(c, "invoices", invoices, pagination)
}

func createInvoiceHandler(c *gin.Context) {
	var input models.NewInvoice
	if err := c.ShouldBindJSON(&input); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	invoice, err := models.CreateInvoice(c.Request.Context(), &input)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, "invoice saved", invoice)
}

func getInvoiceHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	invoice, err := models.GetInvoice(c.Request.Context(), id)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "invoice", invoice)
}

type updateInvoiceStatusRequest struct {
	Status models.InvoiceStatus `json:"status" binding:"required"`
}

func updateInvoiceStatusHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	var req updateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	invoice, err := models.UpdateInvoiceStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "invoice status updated", invoice)
}

func deleteInvoiceHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	if err := models.DeleteInvoice(c.Request.Context(), id); err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "invoice deleted", nil)
}

func shareInvoiceHandler(c *gin.Context) {
	id, ok := parseIdParam(c)
	if !ok {
		return
	}
	invoice, err := models.GetInvoice(c.Request.Context(), id)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "share link", gin.H{
		"invoice_number": invoice.InvoiceNumber,
		"whatsapp_url":   invoice.WhatsAppShareLink(),
	})
}

func invoiceStatsHandler(c *gin.Context) {
	stats, err := models.GetInvoiceStats(c.Request.Context())
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "invoice stats", stats)
}
