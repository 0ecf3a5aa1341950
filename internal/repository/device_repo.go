package repository

import (
	"context"

	"github.com/quocanhngo/pricewatch/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository is the PostgreSQL-backed DeviceStore
type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert adds a device or replaces the one with the same device ID
func (r *DeviceRepository) Upsert(ctx context.Context, device model.UserDevice) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"push_token", "platform", "registered_at", "is_active"}),
	}).Create(&device).Error
}

// Remove deletes a device registration
func (r *DeviceRepository) Remove(ctx context.Context, userID, deviceID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		Delete(&model.UserDevice{}).Error
}

// ListByUser gets all devices for a user
func (r *DeviceRepository) ListByUser(ctx context.Context, userID string) ([]model.UserDevice, error) {
	var devices []model.UserDevice
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("device_id").
		Find(&devices).Error
	return devices, err
}

// ListActive gets the devices that still accept pushes
func (r *DeviceRepository) ListActive(ctx context.Context, userID string) ([]model.UserDevice, error) {
	var devices []model.UserDevice
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("device_id").
		Find(&devices).Error
	return devices, err
}

// Deactivate disables a device whose token was rejected by the push provider
func (r *DeviceRepository) Deactivate(ctx context.Context, userID, deviceID, pushToken string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.UserDevice{}).
		Where("user_id = ? AND device_id = ? AND push_token = ? AND is_active = ?", userID, deviceID, pushToken, true).
		Update("is_active", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Stats aggregates device counts in a single query
func (r *DeviceRepository) Stats(ctx context.Context) (model.DeviceStats, error) {
	var row struct {
		Total   int64
		Active  int64
		IOS     int64 `gorm:"column:ios"`
		Android int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.UserDevice{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_active) AS active,
			COUNT(*) FILTER (WHERE platform = ?) AS ios,
			COUNT(*) FILTER (WHERE platform = ?) AS android`, model.PlatformIOS, model.PlatformAndroid).
		Scan(&row).Error
	if err != nil {
		return model.DeviceStats{}, err
	}
	return model.DeviceStats{
		TotalDevices:   int(row.Total),
		ActiveDevices:  int(row.Active),
		IOSDevices:     int(row.IOS),
		AndroidDevices: int(row.Android),
	}, nil
}
