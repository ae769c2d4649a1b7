package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/store"

	"github.com/google/uuid"
)

type Handler struct {
	tickets store.TicketStore
	admin   store.AdminStore
}

func NewHandler(tickets store.TicketStore, admin store.AdminStore) *Handler {
	return &Handler{tickets: tickets, admin: admin}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/tickets", h.handleTickets)
	mux.HandleFunc("/api/tickets/call-next", h.handleCallNext)
	mux.HandleFunc("/api/tickets/", h.handleTicketByID)
	mux.HandleFunc("/api/branches", h.handleBranches)
	mux.HandleFunc("/api/branches/", h.handleBranchByID)
	mux.HandleFunc("/api/services", h.handleServices)
	mux.HandleFunc("/api/services/", h.handleServiceByID)
	mux.HandleFunc("/api/counters", h.handleCounters)
	mux.HandleFunc("/api/counters/", h.handleCounterByID)
	mux.HandleFunc("/api/announcements", h.handleAnnouncements)
	mux.HandleFunc("/api/announcements/", h.handleAnnouncementByID)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type createTicketRequest struct {
	BranchID      string `json:"branch_id"`
	ServiceID     string `json:"service_id"`
	PriorityLevel int    `json:"priority_level"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

func (h *Handler) handleTickets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateTicket(w, r)
	case http.MethodGet:
		h.handleListTickets(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.BranchID = strings.TrimSpace(req.BranchID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)

	// branch_id and service_id are required but deliberately not
	// existence-checked here; foreign keys enforce that inside the
	// creation transaction.
	if req.BranchID == "" || req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "branch_id and service_id are required")
		return
	}
	if !isValidUUID(req.BranchID) || !isValidUUID(req.ServiceID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "branch_id and service_id must be UUIDs")
		return
	}

	ticket, err := h.tickets.CreateTicket(r.Context(), store.CreateTicketInput{
		BranchID:      req.BranchID,
		ServiceID:     req.ServiceID,
		PriorityLevel: req.PriorityLevel,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) handleListTickets(w http.ResponseWriter, r *http.Request) {
	filter := store.TicketFilter{
		BranchID:  strings.TrimSpace(r.URL.Query().Get("branch_id")),
		ServiceID: strings.TrimSpace(r.URL.Query().Get("service_id")),
		Status:    strings.TrimSpace(r.URL.Query().Get("status")),
	}
	if filter.BranchID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "branch_id is required")
		return
	}
	if !isValidUUID(filter.BranchID) || (filter.ServiceID != "" && !isValidUUID(filter.ServiceID)) {
		writeError(w, http.StatusBadRequest, "invalid_request", "branch_id and service_id must be UUIDs")
		return
	}
	if filter.Status != "" && !store.IsValidStatus(filter.Status) {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown status")
		return
	}

	tickets, err := h.tickets.ListTickets(r.Context(), filter)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

type callNextRequest struct {
	CounterID string `json:"counter_id"`
	ServiceID string `json:"service_id"`
}

type callNextResponse struct {
	Ticket interface{} `json:"ticket"`
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req callNextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CounterID = strings.TrimSpace(req.CounterID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.CounterID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "counter_id is required")
		return
	}
	if !isValidUUID(req.CounterID) || (req.ServiceID != "" && !isValidUUID(req.ServiceID)) {
		writeError(w, http.StatusBadRequest, "invalid_request", "counter_id and service_id must be UUIDs")
		return
	}

	ticket, found, err := h.tickets.CallNext(r.Context(), store.CallNextInput{
		CounterID: req.CounterID,
		ServiceID: req.ServiceID,
		CalledAt:  time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if !found {
		// Empty queue is a normal outcome.
		writeJSON(w, http.StatusOK, callNextResponse{Ticket: nil})
		return
	}
	writeJSON(w, http.StatusOK, callNextResponse{Ticket: ticket})
}

type patchTicketRequest struct {
	Status        *string `json:"status"`
	CounterID     *string `json:"counter_id"`
	ServedBy      *string `json:"served_by"`
	PriorityLevel *int    `json:"priority_level"`
}

func (h *Handler) handleTicketByID(w http.ResponseWriter, r *http.Request) {
	ticketID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tickets/"), "/")
	if ticketID == "" || strings.Contains(ticketID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !isValidUUID(ticketID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "ticket id must be a UUID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		ticket, err := h.tickets.GetTicket(r.Context(), ticketID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, ticket)
	case http.MethodPatch:
		h.handlePatchTicket(w, r, ticketID)
	case http.MethodDelete:
		ticket, err := h.tickets.DeleteTicket(r.Context(), ticketID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, ticket)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePatchTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	var req patchTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status != nil && !store.IsValidStatus(*req.Status) {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown status")
		return
	}
	if req.CounterID != nil && *req.CounterID != "" && !isValidUUID(*req.CounterID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "counter_id must be a UUID")
		return
	}

	ticket, err := h.tickets.PatchTicket(r.Context(), ticketID, store.TicketPatch{
		Status:        req.Status,
		CounterID:     req.CounterID,
		ServedBy:      req.ServedBy,
		PriorityLevel: req.PriorityLevel,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found", "service not found"
	case errors.Is(err, store.ErrBranchNotFound):
		return http.StatusNotFound, "branch_not_found", "branch not found"
	case errors.Is(err, store.ErrCounterNotFound):
		return http.StatusNotFound, "counter_not_found", "counter not found"
	case errors.Is(err, store.ErrAnnouncementNotFound):
		return http.StatusNotFound, "announcement_not_found", "announcement not found"
	case errors.Is(err, store.ErrCounterUnavailable):
		return http.StatusConflict, "counter_unavailable", "counter is inactive or paused"
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "ticket state does not allow this transition"
	case errors.Is(err, store.ErrBranchHasCounters):
		return http.StatusConflict, "branch_has_counters", "branch still has counters"
	case errors.Is(err, store.ErrInvalidReference):
		return http.StatusBadRequest, "invalid_reference", "referenced entity not found"
	case errors.Is(err, store.ErrTicketPrefixUnset):
		return http.StatusInternalServerError, "prefix_not_configured", "no ticket prefix configured for service"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: responseError{Code: code, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
