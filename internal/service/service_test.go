package service

import (
	"testing"

	"github.com/Gopher0727/HappyBot/internal/db/dbtest"
	"github.com/Gopher0727/HappyBot/internal/repository"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
)

type services struct {
	settings  ISettingsService
	warns     IWarnService
	tickets   ITicketService
	analytics IAnalyticsService
	guilds    IGuildService
	guildRepo repository.IGuildRepository
}

func newServices(t *testing.T) *services {
	t.Helper()
	db := dbtest.Open(t).DB()

	analytics := NewAnalyticsService(repository.NewAnalyticsRepository(db), logger.NewNop())
	guildRepo := repository.NewGuildRepository(db)
	return &services{
		settings:  NewSettingsService(repository.NewSettingsRepository(db)),
		warns:     NewWarnService(repository.NewWarnRepository(db)),
		tickets:   NewTicketService(repository.NewTicketRepository(db)),
		analytics: analytics,
		guilds:    NewGuildService(guildRepo, analytics),
		guildRepo: guildRepo,
	}
}
