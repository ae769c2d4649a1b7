package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/models"
	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/store"
)

type fakeTicketStore struct {
	createFn func(ctx context.Context, input store.CreateTicketInput) (models.TicketDetail, error)
	callFn   func(ctx context.Context, input store.CallNextInput) (models.TicketDetail, bool, error)
	patchFn  func(ctx context.Context, ticketID string, patch store.TicketPatch) (models.TicketDetail, error)
	getFn    func(ctx context.Context, ticketID string) (models.TicketDetail, error)
	listFn   func(ctx context.Context, filter store.TicketFilter) ([]models.TicketDetail, error)
	deleteFn func(ctx context.Context, ticketID string) (models.Ticket, error)
}

func (f fakeTicketStore) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.TicketDetail, error) {
	if f.createFn == nil {
		return models.TicketDetail{}, nil
	}
	return f.createFn(ctx, input)
}

func (f fakeTicketStore) CallNext(ctx context.Context, input store.CallNextInput) (models.TicketDetail, bool, error) {
	if f.callFn == nil {
		return models.TicketDetail{}, false, nil
	}
	return f.callFn(ctx, input)
}

func (f fakeTicketStore) PatchTicket(ctx context.Context, ticketID string, patch store.TicketPatch) (models.TicketDetail, error) {
	if f.patchFn == nil {
		return models.TicketDetail{}, nil
	}
	return f.patchFn(ctx, ticketID, patch)
}

func (f fakeTicketStore) GetTicket(ctx context.Context, ticketID string) (models.TicketDetail, error) {
	if f.getFn == nil {
		return models.TicketDetail{}, nil
	}
	return f.getFn(ctx, ticketID)
}

func (f fakeTicketStore) ListTickets(ctx context.Context, filter store.TicketFilter) ([]models.TicketDetail, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, filter)
}

func (f fakeTicketStore) DeleteTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	if f.deleteFn == nil {
		return models.Ticket{}, nil
	}
	return f.deleteFn(ctx, ticketID)
}

type fakeAdminStore struct {
	createBranchFn func(ctx context.Context, branch models.Branch) (models.Branch, error)
	deleteBranchFn func(ctx context.Context, branchID string) error
	listCountersFn func(ctx context.Context, branchID string) ([]models.Counter, error)
	putSettingFn   func(ctx context.Context, setting models.BranchSetting) error
}

func (f fakeAdminStore) CreateBranch(ctx context.Context, branch models.Branch) (models.Branch, error) {
	if f.createBranchFn == nil {
		return branch, nil
	}
	return f.createBranchFn(ctx, branch)
}

func (f fakeAdminStore) UpdateBranch(ctx context.Context, branch models.Branch) (models.Branch, error) {
	return branch, nil
}

func (f fakeAdminStore) DeleteBranch(ctx context.Context, branchID string) error {
	if f.deleteBranchFn == nil {
		return nil
	}
	return f.deleteBranchFn(ctx, branchID)
}

func (f fakeAdminStore) ListBranches(ctx context.Context) ([]models.Branch, error) {
	return nil, nil
}

func (f fakeAdminStore) CreateService(ctx context.Context, service models.Service) (models.Service, error) {
	return service, nil
}

func (f fakeAdminStore) UpdateService(ctx context.Context, service models.Service) (models.Service, error) {
	return service, nil
}

func (f fakeAdminStore) DeleteService(ctx context.Context, serviceID string) error {
	return nil
}

func (f fakeAdminStore) ListServices(ctx context.Context) ([]models.Service, error) {
	return nil, nil
}

func (f fakeAdminStore) CreateCounter(ctx context.Context, counter models.Counter) (models.Counter, error) {
	return counter, nil
}

func (f fakeAdminStore) UpdateCounter(ctx context.Context, counter models.Counter) (models.Counter, error) {
	return counter, nil
}

func (f fakeAdminStore) DeleteCounter(ctx context.Context, counterID string) error {
	return nil
}

func (f fakeAdminStore) ListCounters(ctx context.Context, branchID string) ([]models.Counter, error) {
	if f.listCountersFn == nil {
		return nil, nil
	}
	return f.listCountersFn(ctx, branchID)
}

func (f fakeAdminStore) CreateAnnouncement(ctx context.Context, a models.Announcement) (models.Announcement, error) {
	return a, nil
}

func (f fakeAdminStore) UpdateAnnouncement(ctx context.Context, a models.Announcement) (models.Announcement, error) {
	return a, nil
}

func (f fakeAdminStore) DeleteAnnouncement(ctx context.Context, announcementID string) error {
	return nil
}

func (f fakeAdminStore) ListAnnouncements(ctx context.Context, branchID string) ([]models.Announcement, error) {
	return nil, nil
}

func (f fakeAdminStore) ListSettings(ctx context.Context, branchID string) ([]models.BranchSetting, error) {
	return nil, nil
}

func (f fakeAdminStore) PutSetting(ctx context.Context, setting models.BranchSetting) error {
	if f.putSettingFn == nil {
		return nil
	}
	return f.putSettingFn(ctx, setting)
}

func TestCreateTicketSuccess(t *testing.T) {
	createdAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	st := fakeTicketStore{
		createFn: func(ctx context.Context, input store.CreateTicketInput) (models.TicketDetail, error) {
			return models.TicketDetail{
				Ticket: models.Ticket{
					TicketID:     "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa",
					TicketNumber: "A-001",
					BranchID:     input.BranchID,
					ServiceID:    input.ServiceID,
					Status:       models.StatusWaiting,
					CreatedAt:    createdAt,
				},
				ServiceName: "Payments",
				BranchName:  "Main",
			}, nil
		},
	}
	h := NewHandler(st, fakeAdminStore{})

	payload := map[string]interface{}{
		"branch_id":  "33333333-3333-3333-3333-333333333333",
		"service_id": "44444444-4444-4444-4444-444444444444",
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}

	var ticket models.TicketDetail
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ticket.TicketNumber != "A-001" || ticket.Status != models.StatusWaiting {
		t.Fatalf("unexpected ticket response: %+v", ticket)
	}
}

func TestCreateTicketMissingFields(t *testing.T) {
	h := NewHandler(fakeTicketStore{}, fakeAdminStore{})

	payload := map[string]interface{}{
		"branch_id": "33333333-3333-3333-3333-333333333333",
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestCreateTicketServiceNotFound(t *testing.T) {
	st := fakeTicketStore{
		createFn: func(ctx context.Context, input store.CreateTicketInput) (models.TicketDetail, error) {
			return models.TicketDetail{}, store.ErrServiceNotFound
		},
	}
	h := NewHandler(st, fakeAdminStore{})

	payload := map[string]interface{}{
		"branch_id":  "33333333-3333-3333-3333-333333333333",
		"service_id": "44444444-4444-4444-4444-444444444444",
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestCreateTicketPrefixNotConfigured(t *testing.T) {
	st := fakeTicketStore{
		createFn: func(ctx context.Context, input store.CreateTicketInput) (models.TicketDetail, error) {
			return models.TicketDetail{}, store.ErrTicketPrefixUnset
		},
	}
	h := NewHandler(st, fakeAdminStore{})

	payload := map[string]interface{}{
		"branch_id":  "33333333-3333-3333-3333-333333333333",
		"service_id": "44444444-4444-4444-4444-444444444444",
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
	var decoded struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if decoded.Error.Code != "prefix_not_configured" {
		t.Fatalf("expected prefix_not_configured, got %s", decoded.Error.Code)
	}
}

func TestCallNextReturnsTicket(t *testing.T) {
	st := fakeTicketStore{
		callFn: func(ctx context.Context, input store.CallNextInput) (models.TicketDetail, bool, error) {
			counter := "Counter 1"
			return models.TicketDetail{
				Ticket: models.Ticket{
					TicketID:     "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa",
					TicketNumber: "A-007",
					Status:       models.StatusServing,
				},
				CounterName: &counter,
			}, true, nil
		},
	}
	h := NewHandler(st, fakeAdminStore{})

	payload := map[string]interface{}{
		"counter_id": "55555555-5555-5555-5555-555555555555",
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/tickets/call-next", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var result struct {
		Ticket *models.TicketDetail `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Ticket == nil || result.Ticket.TicketNumber != "A-007" {
		t.Fatalf("unexpected call-next response: %+v", result.Ticket)
	}
}

func TestCallNextEmptyQueue(t *testing.T) {
	st := fakeTicketStore{
		callFn: func(ctx context.Context, input store.CallNextInput) (models.TicketDetail, bool, error) {
			return models.TicketDetail{}, false, nil
		},
	}
	h := NewHandler(st, fakeAdminStore{})

	payload := map[string]interface{}{
		"counter_id": "55555555-5555-5555-5555-555555555555",
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/tickets/call-next", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var result struct {
		Ticket *models.TicketDetail `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Ticket != nil {
		t.Fatalf("expected null ticket, got %+v", result.Ticket)
	}
}

func TestCallNextCounterUnavailable(t *testing.T) {
	st := fakeTicketStore{
		callFn: func(ctx context.Context, input store.CallNextInput) (models.TicketDetail, bool, error) {
			return models.TicketDetail{}, false, store.ErrCounterUnavailable
		},
	}
	h := NewHandler(st, fakeAdminStore{})

	payload := map[string]interface{}{
		"counter_id": "55555555-5555-5555-5555-555555555555",
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/tickets/call-next", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestPatchTicketInvalidTransition(t *testing.T) {
	st := fakeTicketStore{
		patchFn: func(ctx context.Context, ticketID string, patch store.TicketPatch) (models.TicketDetail, error) {
			return models.TicketDetail{}, store.ErrInvalidTransition
		},
	}
	h := NewHandler(st, fakeAdminStore{})

	payload := map[string]interface{}{
		"status": models.StatusDone,
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPatch, "/api/tickets/aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestPatchTicketUnknownStatus(t *testing.T) {
	h := NewHandler(fakeTicketStore{}, fakeAdminStore{})

	payload := map[string]interface{}{
		"status": "parked",
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPatch, "/api/tickets/aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestListTicketsRequiresBranch(t *testing.T) {
	h := NewHandler(fakeTicketStore{}, fakeAdminStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/tickets?status=waiting", nil)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestListTicketsFilterPassthrough(t *testing.T) {
	var gotFilter store.TicketFilter
	st := fakeTicketStore{
		listFn: func(ctx context.Context, filter store.TicketFilter) ([]models.TicketDetail, error) {
			gotFilter = filter
			return []models.TicketDetail{}, nil
		},
	}
	h := NewHandler(st, fakeAdminStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/tickets?branch_id=33333333-3333-3333-3333-333333333333&status=waiting", nil)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if gotFilter.BranchID != "33333333-3333-3333-3333-333333333333" || gotFilter.Status != models.StatusWaiting {
		t.Fatalf("unexpected filter: %+v", gotFilter)
	}
}

func TestDeleteBranchWithCounters(t *testing.T) {
	admin := fakeAdminStore{
		deleteBranchFn: func(ctx context.Context, branchID string) error {
			return store.ErrBranchHasCounters
		},
	}
	h := NewHandler(fakeTicketStore{}, admin)

	req := httptest.NewRequest(http.MethodDelete, "/api/branches/33333333-3333-3333-3333-333333333333", nil)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestCreateBranchMissingName(t *testing.T) {
	h := NewHandler(fakeTicketStore{}, fakeAdminStore{})

	payload := map[string]interface{}{
		"address": "123 Rizal St",
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/branches", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestPutBranchSetting(t *testing.T) {
	var gotSetting models.BranchSetting
	admin := fakeAdminStore{
		putSettingFn: func(ctx context.Context, setting models.BranchSetting) error {
			gotSetting = setting
			return nil
		},
	}
	h := NewHandler(fakeTicketStore{}, admin)

	payload := map[string]interface{}{
		"key":   "display.language",
		"value": "fil",
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPut, "/api/branches/33333333-3333-3333-3333-333333333333/settings", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if gotSetting.BranchID != "33333333-3333-3333-3333-333333333333" || gotSetting.Key != "display.language" {
		t.Fatalf("unexpected setting: %+v", gotSetting)
	}
}
