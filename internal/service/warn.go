package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gopher0727/HappyBot/internal/model"
	"github.com/Gopher0727/HappyBot/internal/repository"
)

const (
	// WarnListLimit caps a guild-wide warn listing. Per-user listings are
	// not capped.
	WarnListLimit = 100
)

// IWarnService defines the moderation ledger
type IWarnService interface {
	Add(ctx context.Context, guildID, userID, moderatorID model.Snowflake, reason string) (int64, error)
	List(ctx context.Context, guildID model.Snowflake, userID *model.Snowflake) ([]model.Warn, error)
	Remove(ctx context.Context, warnID int64) (bool, error)
	Count(ctx context.Context, guildID, userID model.Snowflake) (int64, error)
}

// WarnService implements IWarnService
type WarnService struct {
	repo repository.IWarnRepository
}

// NewWarnService creates a new IWarnService instance
func NewWarnService(repo repository.IWarnRepository) IWarnService {
	return &WarnService{repo: repo}
}

// Add records a warning and returns its id. Callers pair it with a
// moderation_warn analytics event.
func (s *WarnService) Add(ctx context.Context, guildID, userID, moderatorID model.Snowflake, reason string) (int64, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return 0, invalid("reason", "must not be empty")
	}

	warn := &model.Warn{
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: moderatorID,
		Reason:      reason,
	}
	if err := s.repo.Create(ctx, warn); err != nil {
		return 0, fmt.Errorf("failed to add warn: %w", err)
	}
	return warn.ID, nil
}

// List returns warns newest first: every warn of userID when given,
// otherwise the latest WarnListLimit of the guild.
func (s *WarnService) List(ctx context.Context, guildID model.Snowflake, userID *model.Snowflake) ([]model.Warn, error) {
	limit := WarnListLimit
	if userID != nil {
		limit = 0
	}
	warns, err := s.repo.List(ctx, guildID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list warns: %w", err)
	}
	return warns, nil
}

// Remove deletes a warn. It reports false, not an error, when there was
// nothing to delete.
func (s *WarnService) Remove(ctx context.Context, warnID int64) (bool, error) {
	if warnID <= 0 {
		return false, nil
	}
	ok, err := s.repo.Delete(ctx, warnID)
	if err != nil {
		return false, fmt.Errorf("failed to remove warn: %w", err)
	}
	return ok, nil
}

func (s *WarnService) Count(ctx context.Context, guildID, userID model.Snowflake) (int64, error) {
	n, err := s.repo.Count(ctx, guildID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count warns: %w", err)
	}
	return n, nil
}
