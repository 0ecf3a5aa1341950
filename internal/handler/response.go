package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/pricewatch/internal/model"
	"go.uber.org/zap"
)

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var fetchErr *model.PriceFetchError
	switch {
	case errors.Is(err, model.ErrValidation):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Not found", Message: err.Error()})
	case errors.As(err, &fetchErr):
		c.JSON(http.StatusBadGateway, model.ErrorResponse{Error: "Price unavailable", Message: err.Error()})
	default:
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Internal server error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
}
