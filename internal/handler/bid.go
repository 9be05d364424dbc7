package handler

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hollyoak/chorebank/internal/bidding"
	"github.com/hollyoak/chorebank/internal/metrics"
	"github.com/hollyoak/chorebank/internal/store"
	"github.com/hollyoak/chorebank/internal/websocket"
)

type BidHandler struct {
	engine      *bidding.Engine
	assignments *store.AssignmentStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewBidHandler(db *sql.DB, hub *websocket.Hub, logger *slog.Logger) *BidHandler {
	return &BidHandler{
		engine:      bidding.NewEngine(db),
		assignments: store.NewAssignmentStore(db),
		hub:         hub,
		logger:      logger,
	}
}

func (h *BidHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type bidRequest struct {
	ChildID     int64 `json:"child_id"`
	AmountPence int   `json:"amount_pence"`
}

func (h *BidHandler) Place(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	bid, err := h.engine.PlaceBid(assignmentID, req.ChildID, req.AmountPence)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	metrics.RecordBid()
	if a, aerr := h.assignments.GetByID(assignmentID); aerr == nil && a != nil {
		h.broadcast(websocket.NewEvent(a.FamilyID, "bid", "placed", bid.ID, map[string]any{
			"assignment_id": assignmentID,
			"child_id":      req.ChildID,
			"amount_pence":  req.AmountPence,
		}))
	}
	writeJSON(w, http.StatusCreated, bid)
}

type withdrawRequest struct {
	ChildID int64 `json:"child_id"`
}

func (h *BidHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	bidID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.engine.Withdraw(bidID, req.ChildID); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
