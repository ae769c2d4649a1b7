package models

import "time"

type Ticket struct {
	TicketID      string     `json:"ticket_id"`
	TicketNumber  string     `json:"ticket_number"`
	BranchID      string     `json:"branch_id"`
	ServiceID     string     `json:"service_id"`
	CounterID     *string    `json:"counter_id,omitempty"`
	ServedBy      *string    `json:"served_by,omitempty"`
	Status        string     `json:"status"`
	PriorityLevel int        `json:"priority_level"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CalledAt      *time.Time `json:"called_at,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

// TicketDetail is the ticket joined with its display names. Returned by
// read paths and API responses; the display fields are resolved outside
// the write transaction.
type TicketDetail struct {
	Ticket
	ServiceName string  `json:"service_name"`
	BranchName  string  `json:"branch_name"`
	CounterName *string `json:"counter_name,omitempty"`
}

const (
	StatusWaiting   = "waiting"
	StatusServing   = "serving"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
	StatusSkipped   = "skipped"
)
