package store

// Event types written to the outbox and republished on the bus.
const (
	EventTicketCreated = "ticket:created"
	EventTicketUpdated = "ticket:updated"
	EventTicketCalled  = "ticket:called"
	EventTicketDeleted = "ticket:deleted"

	EventAnnouncementCreated = "announcement:created"
	EventAnnouncementUpdated = "announcement:updated"
	EventAnnouncementDeleted = "announcement:deleted"
)
