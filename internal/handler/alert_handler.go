package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/pricewatch/internal/middleware"
	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/quocanhngo/pricewatch/internal/service"
	"go.uber.org/zap"
)

// AlertHandler handles price alert endpoints
type AlertHandler struct {
	alertService *service.AlertService
	log          *zap.Logger
}

func NewAlertHandler(alertService *service.AlertService, log *zap.Logger) *AlertHandler {
	return &AlertHandler{alertService: alertService, log: log}
}

// ListAlerts godoc
// @Summary List price alerts
// @Description Returns the current user's alerts, newest first
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.PriceAlert
// @Router /alerts [get]
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.alertService.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if alerts == nil {
		alerts = []*model.PriceAlert{}
	}
	c.JSON(http.StatusOK, alerts)
}

// CreateAlert godoc
// @Summary Create a price alert
// @Tags Alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateAlertRequest true "Alert definition"
// @Success 201 {object} model.PriceAlert
// @Failure 400 {object} model.ErrorResponse
// @Router /alerts [post]
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	var req model.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	alert, err := h.alertService.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

// GetAlert godoc
// @Summary Get a price alert
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.PriceAlert
// @Failure 404 {object} model.ErrorResponse
// @Router /alerts/{id} [get]
func (h *AlertHandler) GetAlert(c *gin.Context) {
	alert, err := h.alertService.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// UpdateAlert godoc
// @Summary Update a price alert
// @Description Partial update; omitted fields keep their value
// @Tags Alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Param body body model.UpdateAlertRequest true "Fields to change"
// @Success 200 {object} model.PriceAlert
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /alerts/{id} [put]
func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	var req model.UpdateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	alert, err := h.alertService.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// DeleteAlert godoc
// @Summary Delete a price alert
// @Description Deleting a missing alert succeeds
// @Tags Alerts
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 204
// @Router /alerts/{id} [delete]
func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	if err := h.alertService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleAlert godoc
// @Summary Toggle a price alert on or off
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.PriceAlert
// @Failure 404 {object} model.ErrorResponse
// @Router /alerts/{id}/toggle [post]
func (h *AlertHandler) ToggleAlert(c *gin.Context) {
	alert, err := h.alertService.Toggle(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// CheckAlert godoc
// @Summary Evaluate one alert now
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.CheckAlertResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /alerts/{id}/check [post]
func (h *AlertHandler) CheckAlert(c *gin.Context) {
	resp, err := h.alertService.Check(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
