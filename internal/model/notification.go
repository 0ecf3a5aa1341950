package model

import (
	"fmt"
	"time"
)

// Priority is a delivery hint passed to push providers
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// PushMessage is one logical notification fanned out to a user's devices
type PushMessage struct {
	Title    string            `json:"title" binding:"required"`
	Body     string            `json:"body" binding:"required"`
	Data     map[string]string `json:"data,omitempty"`
	Priority Priority          `json:"priority,omitempty" binding:"omitempty,oneof=normal high"`
	Sound    string            `json:"sound,omitempty"`
}

// MaxDataBytes caps the summed key and value length of PushMessage.Data,
// matching the FCM data payload limit
const MaxDataBytes = 4096

// Validate rejects messages no push provider would accept
func (m PushMessage) Validate() error {
	size := 0
	for k, v := range m.Data {
		size += len(k) + len(v)
	}
	if size > MaxDataBytes {
		return NewValidationError("data", fmt.Sprintf("payload exceeds %d bytes", MaxDataBytes))
	}
	return nil
}

// Category reads the category tag carried in Data
func (m PushMessage) Category() NotificationCategory {
	return NotificationCategory(m.Data["type"])
}

// DeliveryReport summarises one Send call. Gated means user preferences
// dropped the message before any device was tried.
type DeliveryReport struct {
	UserID      string   `json:"user_id"`
	Attempted   int      `json:"attempted"`
	Delivered   int      `json:"delivered"`
	Failed      int      `json:"failed"`
	Deactivated []string `json:"deactivated,omitempty"`
	Gated       bool     `json:"gated,omitempty"`
}

// NotificationRecord is an entry in a user's notification history
type NotificationRecord struct {
	ID      string               `json:"id"`
	Type    NotificationCategory `json:"type"`
	Title   string               `json:"title"`
	Message string               `json:"message"`
	SentAt  time.Time            `json:"sent_at"`
	IsRead  bool                 `json:"is_read"`
	Data    map[string]string    `json:"data,omitempty"`
	Devices int                  `json:"devices"`
}
