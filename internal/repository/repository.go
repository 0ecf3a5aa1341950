package repository

import (
	"context"

	"github.com/quocanhngo/pricewatch/internal/model"
)

// AlertStore owns price alert records. Implementations serialize access per
// record; Modify is the atomic read-modify-write used by every writer that
// only changes a few fields.
type AlertStore interface {
	Create(ctx context.Context, alert *model.PriceAlert) error
	Get(ctx context.Context, id string) (*model.PriceAlert, error)
	// Update replaces the stored record wholesale (last write wins)
	Update(ctx context.Context, alert *model.PriceAlert) error
	Modify(ctx context.Context, id string, fn func(*model.PriceAlert) error) (*model.PriceAlert, error)
	// Delete is idempotent
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]*model.PriceAlert, error)
	ListActive(ctx context.Context) ([]*model.PriceAlert, error)
}

// DeviceStore keeps push-capable devices per user
type DeviceStore interface {
	// Upsert replaces any record with the same (UserID, DeviceID)
	Upsert(ctx context.Context, device model.UserDevice) error
	// Remove is idempotent
	Remove(ctx context.Context, userID, deviceID string) error
	ListByUser(ctx context.Context, userID string) ([]model.UserDevice, error)
	ListActive(ctx context.Context, userID string) ([]model.UserDevice, error)
	// Deactivate flips IsActive off only while the stored token still equals
	// pushToken, so a fresh registration is never disabled by a stale failure.
	Deactivate(ctx context.Context, userID, deviceID, pushToken string) (bool, error)
	Stats(ctx context.Context) (model.DeviceStats, error)
}

// PreferenceStore keeps one NotificationPreferences record per user
type PreferenceStore interface {
	// Get returns model.ErrNotFound when the user never saved preferences
	Get(ctx context.Context, userID string) (*model.NotificationPreferences, error)
	Save(ctx context.Context, prefs model.NotificationPreferences) error
}
