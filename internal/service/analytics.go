package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Gopher0727/HappyBot/internal/model"
	"github.com/Gopher0727/HappyBot/internal/repository"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
)

// AnalyticsPageSize is the most events returned in one listing.
const AnalyticsPageSize = 50

const recordTimeout = 5 * time.Second

// IAnalyticsService defines the per-guild activity log
type IAnalyticsService interface {
	Append(ctx context.Context, guildID model.Snowflake, eventType, data string) error
	Record(ctx context.Context, guildID model.Snowflake, eventType, data string)
	Recent(ctx context.Context, guildID model.Snowflake, limit int) ([]model.AnalyticsEvent, error)
	Summarize(ctx context.Context, guildID model.Snowflake, since time.Time) (map[string]int64, error)
	Report(ctx context.Context, guildID model.Snowflake) (*model.AnalyticsReport, error)
}

// AnalyticsService implements IAnalyticsService
type AnalyticsService struct {
	repo repository.IAnalyticsRepository
	log  *logger.Logger
}

// NewAnalyticsService creates a new IAnalyticsService instance
func NewAnalyticsService(repo repository.IAnalyticsRepository, log *logger.Logger) IAnalyticsService {
	if log == nil {
		log = logger.NewNop()
	}
	return &AnalyticsService{repo: repo, log: log}
}

// Append writes one event and reports failure.
func (s *AnalyticsService) Append(ctx context.Context, guildID model.Snowflake, eventType, data string) error {
	if eventType == "" {
		return invalid("event_type", "must not be empty")
	}
	event := &model.AnalyticsEvent{
		GuildID:   guildID,
		EventType: eventType,
		EventData: data,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to append analytics event: %w", err)
	}
	return nil
}

// Record is the best-effort form of Append. It outlives cancellation of ctx
// and only logs a failure, so the action being audited never fails because
// its audit entry did.
func (s *AnalyticsService) Record(ctx context.Context, guildID model.Snowflake, eventType, data string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	err := s.Append(ctx, guildID, eventType, data)
	s.log.BestEffort(ctx, "analytics.record", err,
		zap.String("guild_id", guildID.String()),
		zap.String("event_type", eventType),
	)
}

// Recent lists the latest events, newest first. limit is clamped to
// 1..AnalyticsPageSize.
func (s *AnalyticsService) Recent(ctx context.Context, guildID model.Snowflake, limit int) ([]model.AnalyticsEvent, error) {
	if limit <= 0 || limit > AnalyticsPageSize {
		limit = AnalyticsPageSize
	}
	events, err := s.repo.Recent(ctx, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics: %w", err)
	}
	return events, nil
}

// Summarize counts events by type over the whole log, or from since on.
func (s *AnalyticsService) Summarize(ctx context.Context, guildID model.Snowflake, since time.Time) (map[string]int64, error) {
	counts, err := s.repo.CountByType(ctx, guildID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize analytics: %w", err)
	}
	summary := make(map[string]int64, len(counts))
	for _, c := range counts {
		summary[c.EventType] = c.Count
	}
	return summary, nil
}

// Report combines the latest page with a summary of the full log. The two
// are independent: the summary is not limited to the page.
func (s *AnalyticsService) Report(ctx context.Context, guildID model.Snowflake) (*model.AnalyticsReport, error) {
	events, err := s.Recent(ctx, guildID, AnalyticsPageSize)
	if err != nil {
		return nil, err
	}
	summary, err := s.Summarize(ctx, guildID, time.Time{})
	if err != nil {
		return nil, err
	}
	return &model.AnalyticsReport{Events: events, Summary: summary}, nil
}
