package httpapi

import (
	"net/http"
	"strings"

	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/models"
)

func (h *Handler) handleBranches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		branches, err := h.admin.ListBranches(r.Context())
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, branches)
	case http.MethodPost:
		var branch models.Branch
		if !decodeJSON(w, r, &branch) {
			return
		}
		branch.Name = strings.TrimSpace(branch.Name)
		branch.Address = strings.TrimSpace(branch.Address)
		if branch.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		created, err := h.admin.CreateBranch(r.Context(), branch)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleBranchByID(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/branches/"), "/")
	parts := strings.Split(path, "/")
	branchID := parts[0]
	if !isValidUUID(branchID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "branch id must be a UUID")
		return
	}
	if len(parts) == 2 && parts[1] == "settings" {
		h.handleBranchSettings(w, r, branchID)
		return
	}
	if len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var branch models.Branch
		if !decodeJSON(w, r, &branch) {
			return
		}
		branch.Name = strings.TrimSpace(branch.Name)
		branch.Address = strings.TrimSpace(branch.Address)
		if branch.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		branch.BranchID = branchID
		updated, err := h.admin.UpdateBranch(r.Context(), branch)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.admin.DeleteBranch(r.Context(), branchID); err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type putSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (h *Handler) handleBranchSettings(w http.ResponseWriter, r *http.Request, branchID string) {
	switch r.Method {
	case http.MethodGet:
		settings, err := h.admin.ListSettings(r.Context(), branchID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req putSettingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Key = strings.TrimSpace(req.Key)
		if req.Key == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "key is required")
			return
		}
		setting := models.BranchSetting{BranchID: branchID, Key: req.Key, Value: req.Value}
		if err := h.admin.PutSetting(r.Context(), setting); err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, setting)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleServices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		services, err := h.admin.ListServices(r.Context())
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, services)
	case http.MethodPost:
		var svc models.Service
		if !decodeJSON(w, r, &svc) {
			return
		}
		svc.Name = strings.TrimSpace(svc.Name)
		svc.Prefix = strings.ToUpper(strings.TrimSpace(svc.Prefix))
		if svc.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		svc.Active = true
		created, err := h.admin.CreateService(r.Context(), svc)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleServiceByID(w http.ResponseWriter, r *http.Request) {
	serviceID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/services/"), "/")
	if serviceID == "" || strings.Contains(serviceID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !isValidUUID(serviceID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "service id must be a UUID")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var svc models.Service
		if !decodeJSON(w, r, &svc) {
			return
		}
		svc.Name = strings.TrimSpace(svc.Name)
		svc.Prefix = strings.ToUpper(strings.TrimSpace(svc.Prefix))
		if svc.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		svc.ServiceID = serviceID
		updated, err := h.admin.UpdateService(r.Context(), svc)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		// Deactivation rather than removal; tickets keep their service row.
		if err := h.admin.DeleteService(r.Context(), serviceID); err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCounters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		branchID := strings.TrimSpace(r.URL.Query().Get("branch_id"))
		if !isValidUUID(branchID) {
			writeError(w, http.StatusBadRequest, "invalid_request", "branch_id is required")
			return
		}
		counters, err := h.admin.ListCounters(r.Context(), branchID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, counters)
	case http.MethodPost:
		var counter models.Counter
		if !decodeJSON(w, r, &counter) {
			return
		}
		counter.Name = strings.TrimSpace(counter.Name)
		if !isValidUUID(counter.BranchID) || counter.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "branch_id and name are required")
			return
		}
		counter.IsActive = true
		created, err := h.admin.CreateCounter(r.Context(), counter)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCounterByID(w http.ResponseWriter, r *http.Request) {
	counterID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/counters/"), "/")
	if counterID == "" || strings.Contains(counterID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !isValidUUID(counterID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "counter id must be a UUID")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var counter models.Counter
		if !decodeJSON(w, r, &counter) {
			return
		}
		counter.Name = strings.TrimSpace(counter.Name)
		if !isValidUUID(counter.BranchID) || counter.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "branch_id and name are required")
			return
		}
		counter.CounterID = counterID
		updated, err := h.admin.UpdateCounter(r.Context(), counter)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.admin.DeleteCounter(r.Context(), counterID); err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleAnnouncements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		branchID := strings.TrimSpace(r.URL.Query().Get("branch_id"))
		if !isValidUUID(branchID) {
			writeError(w, http.StatusBadRequest, "invalid_request", "branch_id is required")
			return
		}
		announcements, err := h.admin.ListAnnouncements(r.Context(), branchID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, announcements)
	case http.MethodPost:
		var a models.Announcement
		if !decodeJSON(w, r, &a) {
			return
		}
		a.Message = strings.TrimSpace(a.Message)
		if !isValidUUID(a.BranchID) || a.Message == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "branch_id and message are required")
			return
		}
		created, err := h.admin.CreateAnnouncement(r.Context(), a)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleAnnouncementByID(w http.ResponseWriter, r *http.Request) {
	announcementID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/announcements/"), "/")
	if announcementID == "" || strings.Contains(announcementID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !isValidUUID(announcementID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "announcement id must be a UUID")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var a models.Announcement
		if !decodeJSON(w, r, &a) {
			return
		}
		a.Message = strings.TrimSpace(a.Message)
		if !isValidUUID(a.BranchID) || a.Message == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "branch_id and message are required")
			return
		}
		a.AnnouncementID = announcementID
		updated, err := h.admin.UpdateAnnouncement(r.Context(), a)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.admin.DeleteAnnouncement(r.Context(), announcementID); err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
