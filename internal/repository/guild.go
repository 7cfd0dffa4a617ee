package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/HappyBot/internal/model"
)

// IGuildRepository defines data access for the guilds table
type IGuildRepository interface {
	Upsert(ctx context.Context, guildID model.Snowflake, name string) error
	FindByID(ctx context.Context, guildID model.Snowflake) (*model.Guild, error)
	Count(ctx context.Context) (int64, error)
}

// GuildRepository implements IGuildRepository interface
type GuildRepository struct {
	db *gorm.DB
}

// NewGuildRepository creates a new IGuildRepository instance
func NewGuildRepository(db *gorm.DB) IGuildRepository {
	return &GuildRepository{db: db}
}

// Upsert records the guild, refreshing the name snapshot but keeping the
// original join time.
func (r *GuildRepository) Upsert(ctx context.Context, guildID model.Snowflake, name string) error {
	guild := &model.Guild{
		GuildID:  guildID,
		Name:     name,
		JoinedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(guild).Error
}

// FindByID finds a guild by ID
func (r *GuildRepository) FindByID(ctx context.Context, guildID model.Snowflake) (*model.Guild, error) {
	var guild model.Guild
	err := r.db.WithContext(ctx).Where("guild_id = ?", guildID).First(&guild).Error
	if err != nil {
		return nil, err
	}
	return &guild, nil
}

func (r *GuildRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Guild{}).Count(&n).Error
	return n, err
}
