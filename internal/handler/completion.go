package handler

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hollyoak/chorebank/internal/approval"
	"github.com/hollyoak/chorebank/internal/metrics"
	"github.com/hollyoak/chorebank/internal/model"
	"github.com/hollyoak/chorebank/internal/store"
	"github.com/hollyoak/chorebank/internal/websocket"
)

type CompletionHandler struct {
	service     *approval.Service
	assignments *store.AssignmentStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewCompletionHandler(db *sql.DB, hub *websocket.Hub, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{
		service:     approval.NewService(db, logger),
		assignments: store.NewAssignmentStore(db),
		hub:         hub,
		logger:      logger,
	}
}

func (h *CompletionHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

func (h *CompletionHandler) familyOf(assignmentID int64) int64 {
	a, err := h.assignments.GetByID(assignmentID)
	if err != nil || a == nil {
		return 0
	}
	return a.FamilyID
}

type submitRequest struct {
	ChildID int64  `json:"child_id"`
	Note    string `json:"note"`
}

// Submit records a child's completion claim against an assignment.
func (h *CompletionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	c, err := h.service.Submit(assignmentID, req.ChildID, req.Note, time.Now().UTC())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.broadcast(websocket.NewEvent(h.familyOf(assignmentID), "completion", "submitted", c.ID, map[string]any{
		"assignment_id": assignmentID,
		"child_id":      req.ChildID,
	}))
	writeJSON(w, http.StatusCreated, c)
}

// ListPending returns a family's queue of undecided completions.
func (h *CompletionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	pending, err := h.assignments.ListPendingByFamily(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list pending completions"})
		return
	}
	if pending == nil {
		pending = []model.Completion{}
	}
	writeJSON(w, http.StatusOK, pending)
}

// Approve is the guardian decision that credits the reward.
func (h *CompletionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	res, err := h.service.Approve(id, time.Now().UTC())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	metrics.RecordDecision(string(model.CompletionApproved))
	h.broadcast(websocket.NewEvent(h.familyOf(res.Completion.AssignmentID), "completion", "approved", id, map[string]any{
		"child_id":       res.Completion.ChildID,
		"credited_pence": res.CreditedPence,
		"credited_stars": res.CreditedStars,
		"rivalry_win":    res.RivalryWin,
	}))
	writeJSON(w, http.StatusOK, res)
}

// Reject is the guardian decision with no ledger effect.
func (h *CompletionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	c, err := h.service.Reject(id, time.Now().UTC())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	metrics.RecordDecision(string(model.CompletionRejected))
	h.broadcast(websocket.NewEvent(h.familyOf(c.AssignmentID), "completion", "rejected", id, map[string]any{
		"child_id": c.ChildID,
	}))
	writeJSON(w, http.StatusOK, c)
}
