package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/pricewatch/internal/middleware"
	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/quocanhngo/pricewatch/internal/service"
	"go.uber.org/zap"
)

// NotificationHandler serves preferences, direct sends and history
type NotificationHandler struct {
	notifications *service.NotificationService
	preferences   *service.PreferenceService
	log           *zap.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, preferences *service.PreferenceService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, preferences: preferences, log: log}
}

// GetPreferences godoc
// @Summary Get notification preferences
// @Description Users without stored preferences get the defaults
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.NotificationPreferences
// @Router /notifications/preferences [get]
func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.preferences.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences godoc
// @Summary Replace notification preferences
// @Description All five flags are required
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.UpdatePreferencesRequest true "Preferences"
// @Success 200 {object} model.NotificationPreferences
// @Failure 400 {object} model.ErrorResponse
// @Router /notifications/preferences [put]
func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	var req model.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	prefs, err := h.preferences.Update(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// SendNotification godoc
// @Summary Send a notification to your own devices
// @Description Gated by the category in data.type; messages without one count as test notifications
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.PushMessage true "Message"
// @Success 200 {object} model.DeliveryReport
// @Failure 400 {object} model.ErrorResponse
// @Router /notifications/send [post]
func (h *NotificationHandler) SendNotification(c *gin.Context) {
	var msg model.PushMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		badRequest(c, err)
		return
	}
	if err := msg.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	report := h.notifications.Send(c.Request.Context(), middleware.UserID(c), msg)
	c.JSON(http.StatusOK, report)
}

// SendTestNotification godoc
// @Summary Send a test notification
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.DeliveryReport
// @Router /notifications/test [post]
func (h *NotificationHandler) SendTestNotification(c *gin.Context) {
	report := h.notifications.SendTest(c.Request.Context(), middleware.UserID(c))
	c.JSON(http.StatusOK, report)
}

// GetHistory godoc
// @Summary Recent notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max entries (default 50)"
// @Success 200 {array} model.NotificationRecord
// @Router /notifications/history [get]
func (h *NotificationHandler) GetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultHistoryLimit)))
	if err != nil || limit <= 0 {
		limit = service.DefaultHistoryLimit
	}

	records := h.notifications.History(middleware.UserID(c), limit)
	if records == nil {
		records = []model.NotificationRecord{}
	}
	c.JSON(http.StatusOK, records)
}
