package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hollyoak/chorebank/internal/generator"
	"github.com/hollyoak/chorebank/internal/metrics"
	"github.com/hollyoak/chorebank/internal/websocket"
)

type GenerationHandler struct {
	generator *generator.Generator
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewGenerationHandler(g *generator.Generator, hub *websocket.Hub, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{generator: g, hub: hub, logger: logger}
}

type generationRequest struct {
	FamilyID int64 `json:"family_id"`
	DryRun   bool  `json:"dry_run"`
}

// Run triggers a generation cycle manually. family_id zero processes all
// active families; dry_run audits the cycle without persisting it.
func (h *GenerationHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req generationRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
	}

	report := h.generator.Run(req.FamilyID, req.DryRun, time.Now().UTC())
	metrics.RecordGenerationRun(req.DryRun, report.ChoresGenerated, report.PenaltiesApplied)
	if !req.DryRun && h.hub != nil {
		h.hub.Broadcast(websocket.NewEvent(req.FamilyID, "generation", "finished", 0, map[string]any{
			"chores_generated":  report.ChoresGenerated,
			"penalties_applied": report.PenaltiesApplied,
			"errors":            len(report.Errors),
		}))
	}
	writeJSON(w, http.StatusOK, report)
}
