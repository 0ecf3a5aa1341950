package model

import (
	"time"
)

// Platform is the push platform of a device
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

func (p Platform) Valid() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// UserDevice represents a user's device for push notifications.
// (UserID, DeviceID) is unique; re-registering replaces the record.
type UserDevice struct {
	UserID       string    `json:"user_id" gorm:"size:128;primaryKey"`
	DeviceID     string    `json:"device_id" gorm:"size:255;primaryKey"`
	PushToken    string    `json:"push_token" gorm:"size:512;not null"`
	Platform     Platform  `json:"platform" gorm:"size:20;not null"`
	RegisteredAt time.Time `json:"registered_at"`
	IsActive     bool      `json:"is_active" gorm:"not null"`
}

func (UserDevice) TableName() string {
	return "user_devices"
}

// DeviceStats summarises the registry
type DeviceStats struct {
	TotalDevices   int `json:"total_devices"`
	ActiveDevices  int `json:"active_devices"`
	IOSDevices     int `json:"ios_devices"`
	AndroidDevices int `json:"android_devices"`
}

// Add counts one device into the stats
func (s *DeviceStats) Add(d UserDevice) {
	s.TotalDevices++
	if d.IsActive {
		s.ActiveDevices++
	}
	switch d.Platform {
	case PlatformIOS:
		s.IOSDevices++
	case PlatformAndroid:
		s.AndroidDevices++
	}
}
