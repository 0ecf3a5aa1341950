package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/pricewatch/internal/middleware"
	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/quocanhngo/pricewatch/internal/service"
	"go.uber.org/zap"
)

// DeviceHandler handles push device registration
type DeviceHandler struct {
	deviceService *service.DeviceService
	log           *zap.Logger
}

func NewDeviceHandler(deviceService *service.DeviceService, log *zap.Logger) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService, log: log}
}

// ListDevices godoc
// @Summary List registered devices
// @Tags Devices
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.UserDevice
// @Router /devices [get]
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	devices, err := h.deviceService.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if devices == nil {
		devices = []model.UserDevice{}
	}
	c.JSON(http.StatusOK, devices)
}

// RegisterDevice godoc
// @Summary Register a device for push notifications
// @Description Re-registering the same device id replaces its token and reactivates it
// @Tags Devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.RegisterDeviceRequest true "Device"
// @Success 200 {object} model.UserDevice
// @Failure 400 {object} model.ErrorResponse
// @Router /devices [post]
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	device, err := h.deviceService.Register(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

// UnregisterDevice godoc
// @Summary Remove a device
// @Tags Devices
// @Produce json
// @Security BearerAuth
// @Param deviceId path string true "Device ID"
// @Success 200 {object} model.SuccessResponse
// @Router /devices/{deviceId} [delete]
func (h *DeviceHandler) UnregisterDevice(c *gin.Context) {
	if err := h.deviceService.Unregister(c.Request.Context(), middleware.UserID(c), c.Param("deviceId")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Device unregistered"})
}
