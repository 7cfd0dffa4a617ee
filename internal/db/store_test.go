package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/HappyBot/config"
	"github.com/Gopher0727/HappyBot/internal/db"
	"github.com/Gopher0727/HappyBot/internal/db/dbtest"
	"github.com/Gopher0727/HappyBot/internal/model"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
)

func TestMigrate_CreatesSchema(t *testing.T) {
	store := dbtest.Open(t)
	m := store.DB().Migrator()

	for _, table := range []string{"guilds", "guild_settings", "warns", "tickets", "analytics"} {
		assert.True(t, m.HasTable(table), table)
	}
	assert.True(t, m.HasIndex(&model.Warn{}, "idx_warns_guild_created"))
	assert.True(t, m.HasIndex(&model.Warn{}, "idx_warns_guild_user"))
	assert.True(t, m.HasIndex(&model.Ticket{}, "idx_tickets_guild_created"))
	assert.True(t, m.HasIndex(&model.AnalyticsEvent{}, "idx_analytics_guild_created"))
	assert.Equal(t, "sqlite", store.Driver())
}

func TestMigrate_Idempotent(t *testing.T) {
	store := dbtest.Open(t)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Ping(context.Background()))
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "happy.db")
	store, err := db.Open(config.DatabaseConfig{Driver: "sqlite", Path: path}, logger.NewNop())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Migrate(context.Background()))
	assert.FileExists(t, path)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := db.Open(config.DatabaseConfig{Driver: "oracle"}, logger.NewNop())
	assert.Error(t, err)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "happy.db")
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: path}
	ctx := context.Background()

	store, err := db.Open(cfg, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.DB().Create(&model.Guild{GuildID: 1, Name: "one"}).Error)
	require.NoError(t, store.Close())

	store, err = db.Open(cfg, logger.NewNop())
	require.NoError(t, err)
	defer store.Close()

	var g model.Guild
	require.NoError(t, store.DB().First(&g, "guild_id = ?", 1).Error)
	assert.Equal(t, "one", g.Name)
}
