package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hollyoak/chorebank/internal/approval"
	"github.com/hollyoak/chorebank/internal/bidding"
	"github.com/hollyoak/chorebank/internal/ledger"
)

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses and
// surfaces the message as-is; anything unrecognised is a 500 with a generic
// body.
func writeEngineError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, bidding.ErrAssignmentNotFound),
		errors.Is(err, bidding.ErrBidNotFound),
		errors.Is(err, approval.ErrAssignmentNotFound),
		errors.Is(err, approval.ErrCompletionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, bidding.ErrInvalidBidAmount),
		errors.Is(err, bidding.ErrNotCompetitive),
		errors.Is(err, ledger.ErrInsufficientBalance):
		status = http.StatusBadRequest
	case errors.Is(err, bidding.ErrNotChampion),
		errors.Is(err, approval.ErrNotAssignee):
		status = http.StatusForbidden
	case errors.Is(err, bidding.ErrBiddingClosed),
		errors.Is(err, approval.ErrAlreadySubmitted),
		errors.Is(err, approval.ErrAlreadyProcessed),
		errors.Is(err, ledger.ErrWalletHalted),
		errors.Is(err, ledger.ErrConcurrencyConflict):
		status = http.StatusConflict
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
