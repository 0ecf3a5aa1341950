package repository

import (
	"context"
	"errors"

	"github.com/quocanhngo/pricewatch/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AlertRepository is the PostgreSQL-backed AlertStore
type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert
func (r *AlertRepository) Create(ctx context.Context, alert *model.PriceAlert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

// Get finds an alert by ID
func (r *AlertRepository) Get(ctx context.Context, id string) (*model.PriceAlert, error) {
	var alert model.PriceAlert
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.NewNotFoundError("alert", id)
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// Update overwrites every column of an existing alert
func (r *AlertRepository) Update(ctx context.Context, alert *model.PriceAlert) error {
	res := r.db.WithContext(ctx).
		Model(&model.PriceAlert{}).
		Where("id = ?", alert.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(alert)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.NewNotFoundError("alert", alert.ID)
	}
	return nil
}

// Modify locks the row, applies fn and saves the result in one transaction
func (r *AlertRepository) Modify(ctx context.Context, id string, fn func(*model.PriceAlert) error) (*model.PriceAlert, error) {
	var alert model.PriceAlert
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&alert).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.NewNotFoundError("alert", id)
		}
		if err != nil {
			return err
		}
		if err := fn(&alert); err != nil {
			return err
		}
		return tx.Save(&alert).Error
	})
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// Delete removes an alert; a missing row is not an error
func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.PriceAlert{}).Error
}

// ListByUser returns a user's alerts, newest first
func (r *AlertRepository) ListByUser(ctx context.Context, userID string) ([]*model.PriceAlert, error) {
	var alerts []*model.PriceAlert
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&alerts).Error
	return alerts, err
}

// ListActive returns every active alert
func (r *AlertRepository) ListActive(ctx context.Context) ([]*model.PriceAlert, error) {
	var alerts []*model.PriceAlert
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("token_symbol, created_at DESC").
		Find(&alerts).Error
	return alerts, err
}
