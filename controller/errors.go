package controller

import (
	"errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"net/http"
	"qrmenu/database"
	"qrmenu/excel"
	"qrmenu/service"
)

// respondError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as a generic 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case service.IsClientError(err), errors.Is(err, excel.ErrNoRows), errors.Is(err, excel.ErrUnreadable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, database.ErrDuplicate), errors.Is(err, service.ErrTransitionNotAllowed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
