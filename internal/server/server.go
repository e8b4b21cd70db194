package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/smartpantry/smartpantry/internal/auth"
	"github.com/smartpantry/smartpantry/internal/backup"
	"github.com/smartpantry/smartpantry/internal/handler"
	"github.com/smartpantry/smartpantry/internal/inference"
	"github.com/smartpantry/smartpantry/internal/middleware"
	"github.com/smartpantry/smartpantry/internal/push"
	"github.com/smartpantry/smartpantry/internal/store"
	ws "github.com/smartpantry/smartpantry/internal/websocket"
)

// Config holds everything the server needs beyond the database handle.
type Config struct {
	JWTSecret      string
	GoogleClientID string
	CORSOrigin     string
	Inference      inference.Config
	Push           push.Config
	Backup         backup.Config
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	pantryH       *handler.PantryHandler
	shoppingH     *handler.ShoppingHandler
	authH         *handler.AuthHandler
	mcpH          *handler.MCPHandler
	pushH         *handler.PushHandler
	backupH       *handler.BackupHandler
	tokens        *auth.TokenService
	rateLimiter   *middleware.RateLimiter
	pushScheduler *push.Scheduler
	backupManager *backup.Manager
	corsOrigin    string
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	pantryStore := store.NewPantryStore(db)
	shoppingStore := store.NewShoppingStore(db)
	userStore := store.NewUserStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	tokens := auth.NewTokenService(cfg.JWTSecret)
	google := auth.NewGoogleVerifier(cfg.GoogleClientID)
	inferenceClient := inference.NewClient(cfg.Inference)

	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, logger.With("component", "backup"))

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
		pushSched = push.NewScheduler(pushSvc, pushStore, pantryStore, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:            db,
		hub:           hub,
		pantryH:       handler.NewPantryHandler(pantryStore, hub, logger.With("component", "pantry")),
		shoppingH:     handler.NewShoppingHandler(shoppingStore, hub, logger.With("component", "shopping")),
		authH:         handler.NewAuthHandler(userStore, tokens, google, logger.With("component", "auth")),
		mcpH:          handler.NewMCPHandler(inferenceClient, logger.With("component", "mcp")),
		pushH:         pushH,
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		tokens:        tokens,
		rateLimiter:   middleware.NewRateLimiter(),
		pushScheduler: pushSched,
		backupManager: backupMgr,
		corsOrigin:    cfg.CORSOrigin,
		logger:        logger,
	}
}

// PushScheduler returns the expiry reminder scheduler, nil when push is not
// configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.healthHandler)

	// Auth routes, rate-limited per client IP
	mux.Handle("POST /api/auth/signup", s.rateLimited(s.authH.Signup))
	mux.Handle("POST /api/auth/login", s.rateLimited(s.authH.Login))
	mux.Handle("POST /api/auth/google", s.rateLimited(s.authH.Google))

	// Pantry routes
	mux.HandleFunc("GET /api/pantry", s.pantryH.List)
	mux.HandleFunc("GET /api/pantry/{id}", s.pantryH.Get)
	mux.HandleFunc("POST /api/pantry", s.pantryH.Create)
	mux.HandleFunc("PATCH /api/pantry/{id}", s.pantryH.Update)
	mux.HandleFunc("DELETE /api/pantry/{id}", s.pantryH.Delete)

	// Shopping routes
	mux.HandleFunc("GET /api/shopping/lists", s.shoppingH.ListLists)
	mux.HandleFunc("POST /api/shopping/lists", s.shoppingH.CreateList)
	mux.HandleFunc("DELETE /api/shopping/lists/{id}", s.shoppingH.DeleteList)
	mux.HandleFunc("POST /api/shopping/lists/{list_id}/items", s.shoppingH.CreateItem)
	mux.HandleFunc("PATCH /api/shopping/lists/{list_id}/items/{item_id}", s.shoppingH.UpdateItem)
	mux.HandleFunc("DELETE /api/shopping/lists/{list_id}/items/{item_id}", s.shoppingH.DeleteItem)

	// Inference proxy routes
	mux.HandleFunc("POST /api/mcp/recipes", s.mcpH.Recipes)
	mux.HandleFunc("POST /api/mcp/analyze", s.mcpH.Analyze)
	mux.HandleFunc("POST /api/mcp/embed", s.mcpH.Embed)

	// Push routes, present only when VAPID keys are configured
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	}

	// Bearer-protected routes
	requireAuth := middleware.RequireAuth(s.tokens)
	mux.Handle("GET /api/dashboard", requireAuth(http.HandlerFunc(s.authH.Dashboard)))
	mux.Handle("GET /api/backups", requireAuth(http.HandlerFunc(s.backupH.List)))
	mux.Handle("POST /api/backups", requireAuth(http.HandlerFunc(s.backupH.RunNow)))

	// Live updates
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Everything else is a JSON 404
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "route not found"})
	})

	var h http.Handler = mux
	h = middleware.CORS(s.corsOrigin)(h)
	h = middleware.Recover(s.logger.With("component", "recover"))(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return h
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	return middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)(h)
}
