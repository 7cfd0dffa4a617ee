package service

import (
	"context"
	"fmt"

	"github.com/Gopher0727/HappyBot/internal/model"
	"github.com/Gopher0727/HappyBot/internal/repository"
)

// IGuildService tracks the guilds the bot is a member of
type IGuildService interface {
	Join(ctx context.Context, guildID model.Snowflake, name string) error
	Leave(ctx context.Context, guildID model.Snowflake, name string)
	Count(ctx context.Context) (int64, error)
}

// GuildService implements IGuildService
type GuildService struct {
	guildRepo repository.IGuildRepository
	analytics IAnalyticsService
}

// NewGuildService creates a new IGuildService instance
func NewGuildService(guildRepo repository.IGuildRepository, analytics IAnalyticsService) IGuildService {
	return &GuildService{guildRepo: guildRepo, analytics: analytics}
}

// Join records the guild and a guild_join event.
func (s *GuildService) Join(ctx context.Context, guildID model.Snowflake, name string) error {
	if err := s.guildRepo.Upsert(ctx, guildID, name); err != nil {
		return fmt.Errorf("failed to record guild: %w", err)
	}
	s.analytics.Record(ctx, guildID, model.EventGuildJoin, "Bot joined "+name)
	return nil
}

// Leave records a guild_leave event. The guild row is kept.
func (s *GuildService) Leave(ctx context.Context, guildID model.Snowflake, name string) {
	s.analytics.Record(ctx, guildID, model.EventGuildLeave, "Bot left "+name)
}

func (s *GuildService) Count(ctx context.Context) (int64, error) {
	return s.guildRepo.Count(ctx)
}
