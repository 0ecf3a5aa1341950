package service

import (
	"context"
	"strings"
	"time"

	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/quocanhngo/pricewatch/internal/repository"
	"go.uber.org/zap"
)

// DeviceService is the device registry
type DeviceService struct {
	store repository.DeviceStore
	now   func() time.Time
	log   *zap.Logger
}

func NewDeviceService(store repository.DeviceStore, log *zap.Logger) *DeviceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeviceService{store: store, now: time.Now, log: log}
}

// Register stores an active device, replacing any earlier record with the
// same device id for this user.
func (s *DeviceService) Register(ctx context.Context, userID string, req model.RegisterDeviceRequest) (*model.UserDevice, error) {
	platform := model.Platform(strings.ToLower(string(req.Platform)))
	switch {
	case strings.TrimSpace(req.DeviceID) == "":
		return nil, model.NewValidationError("device_id", "must not be empty")
	case strings.TrimSpace(req.PushToken) == "":
		return nil, model.NewValidationError("push_token", "must not be empty")
	case !platform.Valid():
		return nil, model.NewValidationError("platform", "must be ios or android")
	}

	device := model.UserDevice{
		UserID:       userID,
		DeviceID:     req.DeviceID,
		PushToken:    req.PushToken,
		Platform:     platform,
		RegisteredAt: s.now().UTC(),
		IsActive:     true,
	}
	if err := s.store.Upsert(ctx, device); err != nil {
		return nil, err
	}

	s.log.Info("device registered",
		zap.String("user_id", userID),
		zap.String("device_id", device.DeviceID),
		zap.String("platform", string(platform)),
	)
	return &device, nil
}

// Unregister is idempotent
func (s *DeviceService) Unregister(ctx context.Context, userID, deviceID string) error {
	if err := s.store.Remove(ctx, userID, deviceID); err != nil {
		return err
	}
	s.log.Info("device unregistered", zap.String("user_id", userID), zap.String("device_id", deviceID))
	return nil
}

func (s *DeviceService) List(ctx context.Context, userID string) ([]model.UserDevice, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *DeviceService) ActiveDevices(ctx context.Context, userID string) ([]model.UserDevice, error) {
	return s.store.ListActive(ctx, userID)
}

// Deactivate disables a device whose token was rejected. It is a no-op when
// the device has been re-registered with a different token since.
func (s *DeviceService) Deactivate(ctx context.Context, userID, deviceID, pushToken string) (bool, error) {
	return s.store.Deactivate(ctx, userID, deviceID, pushToken)
}

func (s *DeviceService) Stats(ctx context.Context) (model.DeviceStats, error) {
	return s.store.Stats(ctx)
}
