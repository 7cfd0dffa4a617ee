package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Gopher0727/HappyBot/internal/model"
)

// ITicketRepository defines data access for the tickets table
type ITicketRepository interface {
	Create(ctx context.Context, ticket *model.Ticket) error
	FindByID(ctx context.Context, id int64) (*model.Ticket, error)
	CloseIfOpen(ctx context.Context, id int64, at time.Time) (bool, error)
	List(ctx context.Context, guildID model.Snowflake, limit int) ([]model.Ticket, error)
}

// TicketRepository implements ITicketRepository interface
type TicketRepository struct {
	db *gorm.DB
}

// NewTicketRepository creates a new ITicketRepository instance
func NewTicketRepository(db *gorm.DB) ITicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *TicketRepository) FindByID(ctx context.Context, id int64) (*model.Ticket, error) {
	var ticket model.Ticket
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// CloseIfOpen moves an open ticket to closed. It reports false when the
// ticket does not exist or was already closed, so concurrent closes of the
// same ticket succeed exactly once.
func (r *TicketRepository) CloseIfOpen(ctx context.Context, id int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ? AND status = ?", id, model.TicketOpen).
		Updates(map[string]any{
			"status":    model.TicketClosed,
			"closed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// List returns a guild's tickets newest first.
func (r *TicketRepository) List(ctx context.Context, guildID model.Snowflake, limit int) ([]model.Ticket, error) {
	q := r.db.WithContext(ctx).Where("guild_id = ?", guildID)
	if limit > 0 {
		q = q.Limit(limit)
	}
	tickets := make([]model.Ticket, 0)
	err := q.Order("created_at DESC").Order("id DESC").Find(&tickets).Error
	return tickets, err
}
