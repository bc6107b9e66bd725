/*
handlers.go - HTTP API handlers for the settlement engine

ENDPOINTS:
  Settlements:
    POST   /api/v1/settlements/generate-remittances-for-all-users
    GET    /api/v1/settlements/list-all-worklogs?remittanceStatus=...

  Ledger maintenance:
    POST   /api/v1/users                      Create user
    DELETE /api/v1/users/{id}                 Delete user (cascades)
    POST   /api/v1/worklogs                   Open a work-log for a user
    GET    /api/v1/worklogs/{id}              Balance breakdown
    DELETE /api/v1/worklogs/{id}              Delete work-log (cascades)
    POST   /api/v1/worklogs/{id}/segments     Record worked minutes
    POST   /api/v1/worklogs/{id}/adjustments  Record a manual correction
    GET    /api/v1/remittances                List remittances
    GET    /api/v1/remittances/{id}           Remittance with items
    DELETE /api/v1/remittances/{id}           Delete remittance (cascades)

  Demo (see scenarios.go):
    GET    /api/v1/scenarios                  List scenarios
    GET    /api/v1/scenarios/current          Loaded scenario or null
    POST   /api/v1/scenarios/load             Reset and load a scenario
    POST   /api/v1/scenarios/reset            Empty the ledger

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid body or field
  - 404: Record not found
  - 409: Identifier already in use
  - 422: Invalid remittanceStatus filter
  - 500: Storage failure; the body never carries the internal cause

SECURITY NOTE:
  No authentication. Deploy behind a gateway that provides it.
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     ledger.TxStore
	Users     ledger.UserDirectory
	Generator *settlement.Generator
	WorkLogs  *settlement.WorkLogQuery
	Logger    *log.Logger

	mu              sync.Mutex // guards currentScenario and serializes loads
	currentScenario string
}

// NewHandler wires the settlement services over store.
func NewHandler(store ledger.TxStore, users ledger.UserDirectory, logger *log.Logger) *Handler {
	return &Handler{
		Store:     store,
		Users:     users,
		Generator: settlement.NewGenerator(store, users, logger),
		WorkLogs:  settlement.NewWorkLogQuery(store),
		Logger:    logger,
	}
}

// =============================================================================
// SETTLEMENT HANDLERS
// =============================================================================

// GenerateRemittances creates a remittance for every user with a positive
// payable balance.
// POST /api/v1/settlements/generate-remittances-for-all-users
func (h *Handler) GenerateRemittances(w http.ResponseWriter, r *http.Request) {
	result, err := h.Generator.Run(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateRemittancesResponse{
		Status:    "ok",
		Generated: result.Generated,
		Failed:    len(result.Failures),
	})
}

// ListAllWorkLogs lists work-logs with payable amount and derived status.
// GET /api/v1/settlements/list-all-worklogs?remittanceStatus=REMITTED|UNREMITTED
func (h *Handler) ListAllWorkLogs(w http.ResponseWriter, r *http.Request) {
	var opts settlement.ListOptions

	// Present-but-empty is a bad filter, not a missing one.
	if values, ok := r.URL.Query()["remittanceStatus"]; ok {
		raw := ""
		if len(values) > 0 {
			raw = values[0]
		}
		label, err := settlement.ParseStatusLabel(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
		opts.Status = &label
	}

	entries, err := h.WorkLogs.List(r.Context(), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := WorkLogListResponse{Data: make([]WorkLogEntryDTO, len(entries)), Count: len(entries)}
	for i, e := range entries {
		resp.Data[i] = toWorkLogEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// CreateUser registers a user in the directory.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = ledger.NewID()
	}

	u := ledger.User{
		ID:        ledger.UserID(req.ID),
		Email:     req.Email,
		FullName:  req.FullName,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateUser(r.Context(), u); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, UserDTO{
		ID:        string(u.ID),
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	})
}

// DeleteUser removes a user with all work-logs and remittances.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := ledger.UserID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteUser(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// WORKLOG HANDLERS
// =============================================================================

func (h *Handler) CreateWorkLog(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = ledger.NewID()
	}

	wl := ledger.WorkLog{
		ID:        ledger.WorkLogID(req.ID),
		UserID:    ledger.UserID(req.UserID),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateWorkLog(r.Context(), wl); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, WorkLogDTO{
		ID:        string(wl.ID),
		UserID:    string(wl.UserID),
		CreatedAt: wl.CreatedAt.Format(time.RFC3339),
	})
}

// GetWorkLog returns one work-log's balance breakdown.
func (h *Handler) GetWorkLog(w http.ResponseWriter, r *http.Request) {
	id := ledger.WorkLogID(chi.URLParam(r, "id"))

	entry, err := h.WorkLogs.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, WorkLogDetailDTO{
		WorkLogEntryDTO: toWorkLogEntryDTO(entry),
		Earned:          money(entry.Earned),
		Remitted:        money(entry.Remitted),
	})
}

func (h *Handler) DeleteWorkLog(w http.ResponseWriter, r *http.Request) {
	id := ledger.WorkLogID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteWorkLog(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTimeSegment records worked minutes against a work-log.
func (h *Handler) AddTimeSegment(w http.ResponseWriter, r *http.Request) {
	var req AddTimeSegmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Minutes == nil {
		writeError(w, http.StatusBadRequest, "minutes is required", nil)
		return
	}

	seg := ledger.TimeSegment{
		ID:        ledger.TimeSegmentID(ledger.NewID()),
		WorkLogID: ledger.WorkLogID(chi.URLParam(r, "id")),
		Minutes:   *req.Minutes,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.AddTimeSegment(r.Context(), seg); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, TimeSegmentDTO{
		ID:        string(seg.ID),
		WorkLogID: string(seg.WorkLogID),
		Minutes:   seg.Minutes,
		Earned:    money(seg.Earned()),
		CreatedAt: seg.CreatedAt.Format(time.RFC3339),
	})
}

// AddAdjustment records a signed manual correction.
func (h *Handler) AddAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AddAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, "amount is required", nil)
		return
	}

	adj := ledger.Adjustment{
		ID:        ledger.AdjustmentID(ledger.NewID()),
		WorkLogID: ledger.WorkLogID(chi.URLParam(r, "id")),
		Amount:    *req.Amount,
		Reason:    req.Reason,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.AddAdjustment(r.Context(), adj); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, AdjustmentDTO{
		ID:        string(adj.ID),
		WorkLogID: string(adj.WorkLogID),
		Amount:    money(adj.Amount),
		Reason:    adj.Reason,
		CreatedAt: adj.CreatedAt.Format(time.RFC3339),
	})
}

// =============================================================================
// REMITTANCE HANDLERS
// =============================================================================

func (h *Handler) ListRemittances(w http.ResponseWriter, r *http.Request) {
	remittances, err := h.Store.ListRemittances(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]RemittanceDTO, len(remittances))
	for i, rem := range remittances {
		dtos[i] = toRemittanceDTO(rem, nil)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetRemittance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ledger.RemittanceID(chi.URLParam(r, "id"))

	rem, err := h.Store.GetRemittance(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, err := h.Store.ListRemittanceItems(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRemittanceDTO(rem, items))
}

func (h *Handler) DeleteRemittance(w http.ResponseWriter, r *http.Request) {
	id := ledger.RemittanceID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteRemittance(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// fail maps a ledger error kind onto an HTTP status. Storage failures are
// logged with the request id and answered with a generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error(), nil)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		if h.Logger != nil {
			h.Logger.Error("request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()),
				"err", err,
			)
		}
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
