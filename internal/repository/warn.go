package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Gopher0727/HappyBot/internal/model"
)

// IWarnRepository defines data access for the warns table
type IWarnRepository interface {
	Create(ctx context.Context, warn *model.Warn) error
	List(ctx context.Context, guildID model.Snowflake, userID *model.Snowflake, limit int) ([]model.Warn, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context, guildID, userID model.Snowflake) (int64, error)
}

// WarnRepository implements IWarnRepository interface
type WarnRepository struct {
	db *gorm.DB
}

// NewWarnRepository creates a new IWarnRepository instance
func NewWarnRepository(db *gorm.DB) IWarnRepository {
	return &WarnRepository{db: db}
}

// Create inserts warn and fills in its ID and CreatedAt.
func (r *WarnRepository) Create(ctx context.Context, warn *model.Warn) error {
	return r.db.WithContext(ctx).Create(warn).Error
}

// List returns warns newest first. A nil userID lists the whole guild; a
// limit <= 0 means no limit.
func (r *WarnRepository) List(ctx context.Context, guildID model.Snowflake, userID *model.Snowflake, limit int) ([]model.Warn, error) {
	q := r.db.WithContext(ctx).Where("guild_id = ?", guildID)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	warns := make([]model.Warn, 0)
	err := q.Order("created_at DESC").Order("id DESC").Find(&warns).Error
	return warns, err
}

// Delete removes a warn by id and reports whether a row went away.
func (r *WarnRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Warn{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *WarnRepository) Count(ctx context.Context, guildID, userID model.Snowflake) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Warn{}).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Count(&n).Error
	return n, err
}
