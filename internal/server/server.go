package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hollyoak/chorebank/internal/backup"
	"github.com/hollyoak/chorebank/internal/generator"
	"github.com/hollyoak/chorebank/internal/handler"
	"github.com/hollyoak/chorebank/internal/metrics"
	"github.com/hollyoak/chorebank/internal/middleware"
	"github.com/hollyoak/chorebank/internal/store"
	ws "github.com/hollyoak/chorebank/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	familyH       *handler.FamilyHandler
	childH        *handler.ChildHandler
	choreH        *handler.ChoreHandler
	assignmentH   *handler.AssignmentHandler
	bidH          *handler.BidHandler
	completionH   *handler.CompletionHandler
	walletH       *handler.WalletHandler
	streakH       *handler.StreakHandler
	generationH   *handler.GenerationHandler
	backupH       *handler.BackupHandler
	generator     *generator.Generator
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, backupCfg backup.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	familyStore := store.NewFamilyStore(db)
	childStore := store.NewChildStore(db)
	choreStore := store.NewChoreStore(db)
	assignmentStore := store.NewAssignmentStore(db)
	bidStore := store.NewBidStore(db)
	streakStore := store.NewStreakStore(db)

	backupMgr := backup.NewManager(backupCfg, db, func(s backup.Status) {
		hub.Broadcast(ws.Event{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	}, logger.With("component", "backup"))

	gen := generator.New(db, logger.With("component", "generator"))

	return &Server{
		db:            db,
		hub:           hub,
		familyH:       handler.NewFamilyHandler(familyStore, hub, logger.With("component", "family")),
		childH:        handler.NewChildHandler(childStore, familyStore, hub, logger.With("component", "child")),
		choreH:        handler.NewChoreHandler(choreStore, familyStore, hub, logger.With("component", "chore")),
		assignmentH:   handler.NewAssignmentHandler(assignmentStore, bidStore),
		bidH:          handler.NewBidHandler(db, hub, logger.With("component", "bid")),
		completionH:   handler.NewCompletionHandler(db, hub, logger.With("component", "completion")),
		walletH:       handler.NewWalletHandler(db, hub, logger.With("component", "wallet")),
		streakH:       handler.NewStreakHandler(streakStore),
		generationH:   handler.NewGenerationHandler(gen, hub, logger.With("component", "generation")),
		backupH:       handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
		generator:     gen,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// Generator returns the generation engine for the scheduled runner.
func (s *Server) Generator() *generator.Generator {
	return s.generator
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Families
	mux.HandleFunc("POST /api/families", s.familyH.Create)
	mux.HandleFunc("GET /api/families", s.familyH.List)
	mux.HandleFunc("GET /api/families/{id}", s.familyH.Get)
	mux.HandleFunc("PUT /api/families/{id}/settings", s.familyH.UpdateSettings)
	mux.HandleFunc("DELETE /api/families/{id}", s.familyH.Archive)

	// Children
	mux.HandleFunc("GET /api/families/{id}/children", s.childH.List)
	mux.HandleFunc("POST /api/children", s.childH.Create)
	mux.HandleFunc("PUT /api/children/{id}", s.childH.Update)
	mux.HandleFunc("DELETE /api/children/{id}", s.childH.Delete)

	// Chores
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/families/{id}/chores", s.choreH.List)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)

	// Assignments and the rivalry auction
	mux.HandleFunc("GET /api/children/{id}/assignments", s.assignmentH.ListByChild)
	mux.HandleFunc("GET /api/assignments/{id}", s.assignmentH.Get)
	mux.HandleFunc("POST /api/assignments/{id}/completions", s.completionH.Submit)
	mux.HandleFunc("POST /api/assignments/{id}/bids", s.bidH.Place)
	mux.HandleFunc("POST /api/bids/{id}/withdraw", s.bidH.Withdraw)

	// Guardian approval queue
	mux.HandleFunc("GET /api/families/{id}/completions/pending", s.completionH.ListPending)
	mux.HandleFunc("POST /api/completions/{id}/approve", s.completionH.Approve)
	mux.HandleFunc("POST /api/completions/{id}/reject", s.completionH.Reject)

	// Wallets and streaks
	mux.HandleFunc("GET /api/children/{id}/wallet", s.walletH.Get)
	mux.HandleFunc("GET /api/children/{id}/transactions", s.walletH.Transactions)
	mux.HandleFunc("POST /api/children/{id}/gift", s.walletH.Gift)
	mux.HandleFunc("POST /api/children/{id}/payout", s.walletH.Payout)
	mux.HandleFunc("GET /api/children/{id}/streaks", s.streakH.ListByChild)

	// Engine and ops
	mux.HandleFunc("POST /api/generation/run", s.rateLimitedHandler(s.generationH.Run))
	mux.HandleFunc("GET /api/backup/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backup/run", s.rateLimitedHandler(s.backupH.Run))

	httpLogger := middleware.RequestLogger(s.logger.With("component", "http"))
	return httpLogger(metrics.Middleware(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
