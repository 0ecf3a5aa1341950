package repository

import (
	"context"
	"errors"
	"time"

	"github.com/quocanhngo/pricewatch/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceRepository is the PostgreSQL-backed PreferenceStore
type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) Get(ctx context.Context, userID string) (*model.NotificationPreferences, error) {
	var prefs model.NotificationPreferences
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.NewNotFoundError("preferences", userID)
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// Save upserts the whole preference row
func (r *PreferenceRepository) Save(ctx context.Context, prefs model.NotificationPreferences) error {
	prefs.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&prefs).Error
}
