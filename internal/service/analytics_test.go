package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Gopher0727/HappyBot/internal/model"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
)

func TestAnalyticsService_SummarizeAndList(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	require.NoError(t, s.analytics.Append(ctx, 1, "a", "1"))
	require.NoError(t, s.analytics.Append(ctx, 1, "a", "1"))
	require.NoError(t, s.analytics.Append(ctx, 1, "b", "1"))

	summary, err := s.analytics.Summarize(ctx, 1, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 2, "b": 1}, summary)

	events, err := s.analytics.Recent(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"b", "a", "a"}, []string{events[0].EventType, events[1].EventType, events[2].EventType})
}

func TestAnalyticsService_ReportSummaryCoversFullLog(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	for range AnalyticsPageSize + 10 {
		require.NoError(t, s.analytics.Append(ctx, 1, model.EventMemberJoin, "x"))
	}
	require.NoError(t, s.analytics.Append(ctx, 1, model.EventModerationBan, "y"))

	report, err := s.analytics.Report(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, report.Events, AnalyticsPageSize)
	assert.Equal(t, model.EventModerationBan, report.Events[0].EventType)
	assert.Equal(t, int64(AnalyticsPageSize+10), report.Summary[model.EventMemberJoin])
	assert.Equal(t, int64(1), report.Summary[model.EventModerationBan])
}

func TestAnalyticsService_EmptyReport(t *testing.T) {
	s := newServices(t)

	report, err := s.analytics.Report(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, report.Events)
	assert.Empty(t, report.Events)
	assert.Empty(t, report.Summary)
}

type failingAnalyticsRepo struct{}

func (failingAnalyticsRepo) Create(context.Context, *model.AnalyticsEvent) error {
	return errors.New("database is locked")
}

func (failingAnalyticsRepo) Recent(context.Context, model.Snowflake, int) ([]model.AnalyticsEvent, error) {
	return nil, errors.New("database is locked")
}

func (failingAnalyticsRepo) CountByType(context.Context, model.Snowflake, time.Time) ([]model.TypeCount, error) {
	return nil, errors.New("database is locked")
}

func TestAnalyticsService_RecordSwallowsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc := NewAnalyticsService(failingAnalyticsRepo{}, logger.New(zap.New(core)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() { svc.Record(ctx, 1, model.EventModerationBan, "x") })
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "analytics.record", logs.All()[0].ContextMap()["op"])

	assert.Error(t, svc.Append(context.Background(), 1, "a", ""))
	_, err := svc.Report(context.Background(), 1)
	assert.Error(t, err)
}

func TestAnalyticsService_RecordOutlivesCancellation(t *testing.T) {
	s := newServices(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.analytics.Record(ctx, 1, model.EventMemberJoin, "late")

	events, err := s.analytics.Recent(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "late", events[0].EventData)
}

func TestAnalyticsService_AppendRequiresType(t *testing.T) {
	s := newServices(t)
	_, ok := AsValidation(s.analytics.Append(context.Background(), 1, "", "x"))
	assert.True(t, ok)
}
