package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Gopher0727/HappyBot/internal/model"
	"github.com/Gopher0727/HappyBot/internal/repository"
)

// TicketListLimit caps the tickets listed for a guild.
const TicketListLimit = 50

// ITicketService defines the ticket ledger
type ITicketService interface {
	Open(ctx context.Context, guildID, channelID, userID model.Snowflake) (*model.Ticket, error)
	Close(ctx context.Context, ticketID int64) (*model.Ticket, error)
	List(ctx context.Context, guildID model.Snowflake) ([]model.Ticket, error)
}

// TicketService implements ITicketService
type TicketService struct {
	repo repository.ITicketRepository
	now  func() time.Time
}

// NewTicketService creates a new ITicketService instance
func NewTicketService(repo repository.ITicketRepository) ITicketService {
	return &TicketService{repo: repo, now: time.Now}
}

func (s *TicketService) Open(ctx context.Context, guildID, channelID, userID model.Snowflake) (*model.Ticket, error) {
	ticket := &model.Ticket{
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    userID,
		Status:    model.TicketOpen,
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to open ticket: %w", err)
	}
	return ticket, nil
}

// Close moves an open ticket to closed and stamps closed_at. Closed is
// terminal: closing again returns ErrTicketClosed.
func (s *TicketService) Close(ctx context.Context, ticketID int64) (*model.Ticket, error) {
	closed, err := s.repo.CloseIfOpen(ctx, ticketID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to close ticket: %w", err)
	}

	ticket, err := s.repo.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	if !closed {
		return ticket, ErrTicketClosed
	}
	return ticket, nil
}

// List returns the latest TicketListLimit tickets of a guild, newest first.
func (s *TicketService) List(ctx context.Context, guildID model.Snowflake) ([]model.Ticket, error) {
	tickets, err := s.repo.List(ctx, guildID, TicketListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}
