package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"github.com/gin-gonic/gin"
)

func dashboardHandler(c *gin.Context) {
	dashboard, err := models.GetDashboard(c.Request.Context())
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "dashboard", dashboard)
}

func dailyReportHandler(c *gin.Context) {
	day := time.Now()
	if d := parseDateQuery(c, "date"); d != nil {
		day = *d
	}

	report, err := models.GetDailyReport(c.Request.Context(), day)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "daily report", report)
}

func monthlyReportHandler(c *gin.Context) {
	now := time.Now()
	year := now.Year()
	month := now.Month()
	if v, err := strconv.Atoi(c.Query("year")); err == nil && v > 0 {
		year = v
	}
	if v, err := strconv.Atoi(c.Query("month")); err == nil && v >= 1 && v <= 12 {
		month = time.Month(v)
	}

	report, err := models.GetMonthlyReport(c.Request.Context(), year, month)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "monthly report", report)
}

func outstandingDuesHandler(c *gin.Context) {
	report, err := models.GetOutstandingDuesReport(c.Request.Context())
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "outstanding dues", report)
}

func exportDuesHandler(c *gin.Context) {
	file, err := models.ExportOutstandingDuesExcel(c.Request.Context())
	if err != nil {
		sendModelError(c, err)
		return
	}

	filename := fmt.Sprintf("outstanding-dues-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		c.Error(err)
	}
}

func storageUsageHandler(c *gin.Context) {
	usage, err := models.GetStorageUsage(c.Request.Context())
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "storage usage", usage)
}

func allStorageHandler(c *gin.Context) {
	usages, err := models.GetAllStorage(c.Request.Context())
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "storage usage for all shops", usages)
}

func compareStorageHandler(c *gin.Context) {
	comparison, err := models.CompareStorage(c.Request.Context())
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "storage comparison", comparison)
}
