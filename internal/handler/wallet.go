package handler

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hollyoak/chorebank/internal/ledger"
	"github.com/hollyoak/chorebank/internal/model"
	"github.com/hollyoak/chorebank/internal/store"
	"github.com/hollyoak/chorebank/internal/websocket"
)

type WalletHandler struct {
	db       *sql.DB
	wallets  *store.WalletStore
	children *store.ChildStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewWalletHandler(db *sql.DB, hub *websocket.Hub, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		db:       db,
		wallets:  store.NewWalletStore(db),
		children: store.NewChildStore(db),
		hub:      hub,
		logger:   logger,
	}
}

func (h *WalletHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

// Get returns the wallet for the child in the id path parameter. A child who
// has never earned anything reads as an empty wallet.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	child, err := h.children.GetByID(childID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return
	}
	if child == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	wallet, err := h.wallets.GetByChild(childID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get wallet"})
		return
	}
	if wallet == nil {
		wallet = &model.Wallet{FamilyID: child.FamilyID, ChildID: childID}
	}
	writeJSON(w, http.StatusOK, wallet)
}

// Transactions returns the child's ledger history, newest first.
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	wallet, err := h.wallets.GetByChild(childID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get wallet"})
		return
	}
	if wallet == nil {
		writeJSON(w, http.StatusOK, []model.Transaction{})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := h.wallets.ListTransactions(wallet.ID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list transactions"})
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

type giftRequest struct {
	Pence  int    `json:"pence"`
	Stars  int    `json:"stars"`
	Source string `json:"source"`
	Note   string `json:"note"`
}

// Gift credits a manual gift from a guardian or relative.
func (h *WalletHandler) Gift(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req giftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Pence < 0 || req.Stars < 0 || (req.Pence == 0 && req.Stars == 0) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "gift must be positive"})
		return
	}

	source := model.SourceGuardian
	if strings.EqualFold(req.Source, string(model.SourceRelative)) {
		source = model.SourceRelative
	}

	child, err := h.children.GetByID(childID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return
	}
	if child == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	var tx *model.Transaction
	err = ledger.Atomic(h.db, h.logger, func(_ *sql.Tx, l *ledger.Ledger) error {
		var err error
		tx, err = l.Credit(child.FamilyID, childID, ledger.Entry{
			Pence:  req.Pence,
			Stars:  req.Stars,
			Source: source,
			Meta:   model.GiftMeta{Note: req.Note},
		})
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.broadcast(websocket.NewEvent(child.FamilyID, "wallet", "credited", childID, map[string]any{
		"pence": req.Pence, "stars": req.Stars, "reason": string(model.ReasonGift),
	}))
	writeJSON(w, http.StatusCreated, tx)
}

type payoutRequest struct {
	Pence int    `json:"pence"`
	Stars int    `json:"stars"`
	Note  string `json:"note"`
}

// Payout debits a cash-out by a guardian. It is a strict debit: it never
// clamps and fails on insufficient balance.
func (h *WalletHandler) Payout(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req payoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Pence < 0 || req.Stars < 0 || (req.Pence == 0 && req.Stars == 0) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payout must be positive"})
		return
	}

	child, err := h.children.GetByID(childID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return
	}
	if child == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	var tx *model.Transaction
	err = ledger.Atomic(h.db, h.logger, func(_ *sql.Tx, l *ledger.Ledger) error {
		var err error
		tx, err = l.Debit(child.FamilyID, childID, ledger.Entry{
			Pence:  req.Pence,
			Stars:  req.Stars,
			Source: model.SourceGuardian,
			Meta:   model.PayoutMeta{Note: req.Note},
		}, nil)
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.broadcast(websocket.NewEvent(child.FamilyID, "wallet", "debited", childID, map[string]any{
		"pence": req.Pence, "stars": req.Stars, "reason": string(model.ReasonPayout),
	}))
	writeJSON(w, http.StatusCreated, tx)
}
