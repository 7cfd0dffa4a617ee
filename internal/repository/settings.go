package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/HappyBot/internal/model"
)

// ISettingsRepository defines data access for the guild_settings table
type ISettingsRepository interface {
	Find(ctx context.Context, guildID model.Snowflake) (*model.GuildSettings, error)
	Upsert(ctx context.Context, guildID model.Snowflake, patch model.SettingsPatch) error
}

// SettingsRepository implements ISettingsRepository interface
type SettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new ISettingsRepository instance
func NewSettingsRepository(db *gorm.DB) ISettingsRepository {
	return &SettingsRepository{db: db}
}

// Find returns the stored row, or gorm.ErrRecordNotFound.
func (r *SettingsRepository) Find(ctx context.Context, guildID model.Snowflake) (*model.GuildSettings, error) {
	var settings model.GuildSettings
	err := r.db.WithContext(ctx).Where("guild_id = ?", guildID).First(&settings).Error
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert applies patch in one statement. A missing row is inserted with the
// defaults overlaid by patch; an existing row only has the patched columns
// rewritten.
func (r *SettingsRepository) Upsert(ctx context.Context, guildID model.Snowflake, patch model.SettingsPatch) error {
	row := model.DefaultSettings(guildID)
	patch.Apply(row)

	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "guild_id"}},
	}
	if cols := patch.Columns(); len(cols) > 0 {
		onConflict.DoUpdates = clause.Assignments(cols)
	} else {
		onConflict.DoNothing = true
	}

	return r.db.WithContext(ctx).Clauses(onConflict).Create(row).Error
}
