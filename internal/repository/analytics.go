package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Gopher0727/HappyBot/internal/model"
)

// IAnalyticsRepository defines data access for the analytics table
type IAnalyticsRepository interface {
	Create(ctx context.Context, event *model.AnalyticsEvent) error
	Recent(ctx context.Context, guildID model.Snowflake, limit int) ([]model.AnalyticsEvent, error)
	CountByType(ctx context.Context, guildID model.Snowflake, since time.Time) ([]model.TypeCount, error)
}

// AnalyticsRepository implements IAnalyticsRepository interface
type AnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new IAnalyticsRepository instance
func NewAnalyticsRepository(db *gorm.DB) IAnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) Create(ctx context.Context, event *model.AnalyticsEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// Recent returns the latest events of a guild, newest first.
func (r *AnalyticsRepository) Recent(ctx context.Context, guildID model.Snowflake, limit int) ([]model.AnalyticsEvent, error) {
	events := make([]model.AnalyticsEvent, 0)
	err := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// CountByType groups the guild's events by type. A zero since counts the
// whole log.
func (r *AnalyticsRepository) CountByType(ctx context.Context, guildID model.Snowflake, since time.Time) ([]model.TypeCount, error) {
	q := r.db.WithContext(ctx).Model(&model.AnalyticsEvent{}).
		Select("event_type, COUNT(*) AS count").
		Where("guild_id = ?", guildID)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since.UTC())
	}

	counts := make([]model.TypeCount, 0)
	err := q.Group("event_type").Order("count DESC").Order("event_type").Scan(&counts).Error
	return counts, err
}
