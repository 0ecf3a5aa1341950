package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/pricewatch/internal/service"
	"go.uber.org/zap"
)

type StatsHandler struct {
	devices *service.DeviceService
	alerts  *service.AlertService
	log     *zap.Logger
}

func NewStatsHandler(devices *service.DeviceService, alerts *service.AlertService, log *zap.Logger) *StatsHandler {
	return &StatsHandler{devices: devices, alerts: alerts, log: log}
}

// DeviceStats godoc
// @Summary Device registry statistics
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.DeviceStats
// @Router /stats/devices [get]
func (h *StatsHandler) DeviceStats(c *gin.Context) {
	stats, err := h.devices.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// PriceStats godoc
// @Summary Price cache statistics
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.PriceStats
// @Router /stats/prices [get]
func (h *StatsHandler) PriceStats(c *gin.Context) {
	stats, err := h.alerts.PriceStats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
