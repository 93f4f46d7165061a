package main

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"bitbucket.org/mmsoftdev/shopbooks_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func sendSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func sendPaginated(c *gin.Context, message string, data interface{}, pagination models.Pagination) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    message,
		"data":       data,
		"pagination": pagination,
	})
}

func sendError(c *gin.Context, status int, message string, err error) {
	body := gin.H{
		"success": false,
		"message": message,
	}
	if err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			body["error"] = utils.ProcessValidationErrors(validationErrs)
		} else {
			body["error"] = err.Error()
		}
		c.Error(err)
	}
	c.JSON(status, body)
}

// sendModelError maps model-layer errors onto HTTP statuses. Not-found
// becomes 404; everything else is treated as a client error, since the model
// layer surfaces infrastructure failures through the error log already.
func sendModelError(c *gin.Context, err error) {
	logger := config.GetLogger()
	if errors.Is(err, utils.ErrorRecordNotFound) {
		sendError(c, http.StatusNotFound, "record not found", err)
		return
	}
	config.LogError(logger, "handlers", c.FullPath(), c.Request.Method, nil, err)
	sendError(c, http.StatusBadRequest, err.Error(), err)
}

func parseIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		sendError(c, http.StatusBadRequest, "invalid id", err)
		return 0, false
	}
	return id, true
}

func paginationFromQuery(c *gin.Context) models.PaginationParams {
	return models.GetPaginationParams(c.Query("page"), c.Query("limit"))
}
