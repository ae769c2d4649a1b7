package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/models"
)

type CreateTicketInput struct {
	BranchID      string
	ServiceID     string
	PriorityLevel int
	CustomerName  string
	CustomerPhone string
	CreatedAt     time.Time
}

type CallNextInput struct {
	CounterID string
	ServiceID string
	CalledAt  time.Time
}

// TicketPatch carries the optional fields of PATCH /api/tickets/{id}.
// A nil field is left untouched.
type TicketPatch struct {
	Status        *string
	CounterID     *string
	ServedBy      *string
	PriorityLevel *int
	OccurredAt    time.Time
}

type TicketFilter struct {
	BranchID  string
	ServiceID string
	Status    string
}

type TicketStore interface {
	CreateTicket(ctx context.Context, input CreateTicketInput) (models.TicketDetail, error)
	CallNext(ctx context.Context, input CallNextInput) (models.TicketDetail, bool, error)
	PatchTicket(ctx context.Context, ticketID string, patch TicketPatch) (models.TicketDetail, error)
	GetTicket(ctx context.Context, ticketID string) (models.TicketDetail, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]models.TicketDetail, error)
	DeleteTicket(ctx context.Context, ticketID string) (models.Ticket, error)
}

type AdminStore interface {
	CreateBranch(ctx context.Context, branch models.Branch) (models.Branch, error)
	UpdateBranch(ctx context.Context, branch models.Branch) (models.Branch, error)
	DeleteBranch(ctx context.Context, branchID string) error
	ListBranches(ctx context.Context) ([]models.Branch, error)

	CreateService(ctx context.Context, service models.Service) (models.Service, error)
	UpdateService(ctx context.Context, service models.Service) (models.Service, error)
	DeleteService(ctx context.Context, serviceID string) error
	ListServices(ctx context.Context) ([]models.Service, error)

	CreateCounter(ctx context.Context, counter models.Counter) (models.Counter, error)
	UpdateCounter(ctx context.Context, counter models.Counter) (models.Counter, error)
	DeleteCounter(ctx context.Context, counterID string) error
	ListCounters(ctx context.Context, branchID string) ([]models.Counter, error)

	CreateAnnouncement(ctx context.Context, a models.Announcement) (models.Announcement, error)
	UpdateAnnouncement(ctx context.Context, a models.Announcement) (models.Announcement, error)
	DeleteAnnouncement(ctx context.Context, announcementID string) error
	ListAnnouncements(ctx context.Context, branchID string) ([]models.Announcement, error)

	ListSettings(ctx context.Context, branchID string) ([]models.BranchSetting, error)
	PutSetting(ctx context.Context, setting models.BranchSetting) error
}

type OutboxEvent struct {
	EventID   string          `json:"event_id"`
	BranchID  string          `json:"branch_id"`
	CounterID *string         `json:"counter_id,omitempty"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type OutboxOffset struct {
	LastEventTime time.Time
	LastEventID   string
}

type OutboxStore interface {
	ListOutboxEvents(ctx context.Context, offset OutboxOffset, limit int) ([]OutboxEvent, error)
	GetRelayOffset(ctx context.Context, consumer string) (OutboxOffset, error)
	UpdateRelayOffset(ctx context.Context, consumer string, offset OutboxOffset) error
	CleanupOutbox(ctx context.Context, before time.Time) error
}
