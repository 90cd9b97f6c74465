package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/svdberg/tapwacht/internal/backup"
	"github.com/svdberg/tapwacht/internal/conflict"
	"github.com/svdberg/tapwacht/internal/email"
	"github.com/svdberg/tapwacht/internal/handler"
	"github.com/svdberg/tapwacht/internal/ical"
	"github.com/svdberg/tapwacht/internal/middleware"
	"github.com/svdberg/tapwacht/internal/notify"
	"github.com/svdberg/tapwacht/internal/push"
	"github.com/svdberg/tapwacht/internal/store"
	ws "github.com/svdberg/tapwacht/internal/websocket"
)

// Config carries the server-level knobs main reads from the environment.
type Config struct {
	Domain          string
	SecureCookies   bool
	TerminalSecret  []byte
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string
}

type Server struct {
	db            *sql.DB
	cfg           Config
	hub           *ws.Hub
	authH         *handler.AuthHandler
	eventH        *handler.EventHandler
	conflictH     *handler.ConflictHandler
	availabilityH *handler.AvailabilityHandler
	locationH     *handler.LocationHandler
	reservationH  *handler.ReservationHandler
	posH          *handler.POSHandler
	icalH         *handler.ICalHandler
	userH         *handler.UserHandler
	authzH        *handler.AuthorizationHandler
	templateH     *handler.MailTemplateHandler
	pushH         *handler.PushHandler
	backupH       *handler.BackupHandler
	sessionStore  *store.SessionStore
	userStore     *store.UserStore
	pushStore     *store.PushStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	pushService   *push.Service
	pushScheduler *push.Scheduler
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, emailClient *email.Client, backupCfg backup.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	locationStore := store.NewLocationStore(db)
	eventStore := store.NewEventStore(db)
	reservationStore := store.NewReservationStore(db)
	availabilityStore := store.NewAvailabilityStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	templateStore := store.NewMailTemplateStore(db)
	organizationStore := store.NewOrganizationStore(db)
	pushStore := store.NewPushStore(db)
	authorizationStore := store.NewAuthorizationStore(db)

	resolver := conflict.NewResolver(eventStore, reservationStore, locationStore)

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.PushSubscriber)
		pushSched = push.NewScheduler(pushSvc, pushStore, eventStore, availabilityStore)
	}

	dispatcher := notify.NewDispatcher(templateStore, userStore, pushStore, pushSvc,
		emailClient, hub, logger.With("component", "notify"))

	backupMgr := backup.NewManager(backupCfg, db)

	return &Server{
		db:            db,
		cfg:           cfg,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, sessionStore, cfg.SecureCookies, logger.With("component", "auth")),
		eventH:        handler.NewEventHandler(eventStore, locationStore, resolver, dispatcher, hub, logger.With("component", "event")),
		conflictH:     handler.NewConflictHandler(resolver, logger.With("component", "conflict")),
		availabilityH: handler.NewAvailabilityHandler(availabilityStore, eventStore, logger.With("component", "availability")),
		locationH:     handler.NewLocationHandler(locationStore, logger.With("component", "location")),
		reservationH:  handler.NewReservationHandler(reservationStore, logger.With("component", "reservation")),
		posH:          handler.NewPOSHandler(eventStore, userStore, availabilityStore, authorizationStore, logger.With("component", "pos")),
		icalH:         handler.NewICalHandler(eventStore, locationStore, organizationStore, ical.NewFeed(cfg.Domain), logger.With("component", "ical")),
		userH:         handler.NewUserHandler(userStore, logger.With("component", "user")),
		authzH:        handler.NewAuthorizationHandler(authorizationStore, userStore, logger.With("component", "authorization")),
		templateH:     handler.NewMailTemplateHandler(templateStore, logger.With("component", "mail-template")),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push")),
		backupH:       handler.NewBackupHandler(backupMgr, logger.With("component", "backup")),
		sessionStore:  sessionStore,
		userStore:     userStore,
		pushStore:     pushStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		pushService:   pushSvc,
		pushScheduler: pushSched,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushScheduler returns the shift reminder scheduler, nil when push is
// not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)
	// Calendar apps subscribe without credentials
	outerMux.HandleFunc("GET /ical", s.icalH.Feed)
	outerMux.HandleFunc("GET /ical/{slug}", s.icalH.OrganizationFeed)

	// Bar terminals authenticate with a signed token, not a session
	terminalMiddleware := middleware.RequireTerminal(s.cfg.TerminalSecret)
	outerMux.Handle("POST /api/pos/admission", terminalMiddleware(http.HandlerFunc(s.posH.Admission)))

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
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

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Event API routes
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)
	mux.HandleFunc("GET /api/events/{id}/free-quarters", s.eventH.FreeQuarters)
	mux.HandleFunc("GET /api/events/{id}/free-quarters-after", s.eventH.FreeQuartersAfter)

	// Conflict queries
	mux.HandleFunc("GET /api/conflicts", s.conflictH.Conflicts)
	mux.HandleFunc("GET /api/conflicts/adjacent", s.conflictH.Adjacent)
	mux.HandleFunc("GET /api/conflicts/standard", s.conflictH.Standard)

	// Enrollment
	mux.HandleFunc("GET /api/availability-types", s.availabilityH.ListTypes)
	mux.Handle("POST /api/availability-types", middleware.RequireSuperuser(http.HandlerFunc(s.availabilityH.CreateType)))
	mux.HandleFunc("POST /api/events/{id}/availability", s.availabilityH.Set)
	mux.HandleFunc("GET /api/events/{id}/bartenders", s.availabilityH.Bartenders)

	// Enrollment mail templates
	mux.HandleFunc("GET /api/mail-templates/{name}", s.templateH.Get)
	mux.Handle("PUT /api/mail-templates/{name}", middleware.RequireSuperuser(http.HandlerFunc(s.templateH.Put)))

	// Tender pool
	mux.HandleFunc("GET /api/users/tenders", s.userH.Tenders)
	mux.Handle("PUT /api/users/{id}/tender", middleware.RequireSuperuser(http.HandlerFunc(s.userH.SetTender)))

	mux.Handle("GET /api/authorizations", middleware.RequireSuperuser(http.HandlerFunc(s.authzH.List)))
	mux.Handle("POST /api/authorizations", middleware.RequireSuperuser(http.HandlerFunc(s.authzH.Create)))
	mux.Handle("DELETE /api/authorizations/{id}", middleware.RequireSuperuser(http.HandlerFunc(s.authzH.End)))

	// Locations and weekly reservations
	mux.HandleFunc("GET /api/locations", s.locationH.List)
	mux.Handle("POST /api/locations", middleware.RequireSuperuser(http.HandlerFunc(s.locationH.Create)))
	mux.HandleFunc("GET /api/reservations", s.reservationH.List)
	mux.Handle("POST /api/reservations", middleware.RequireSuperuser(http.HandlerFunc(s.reservationH.Create)))
	mux.Handle("DELETE /api/reservations/{id}", middleware.RequireSuperuser(http.HandlerFunc(s.reservationH.Delete)))

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)

	// Backups (board only)
	mux.Handle("GET /api/backup/status", middleware.RequireSuperuser(http.HandlerFunc(s.backupH.Status)))
	mux.Handle("GET /api/backup", middleware.RequireSuperuser(http.HandlerFunc(s.backupH.List)))
	mux.Handle("POST /api/backup/run", middleware.RequireSuperuser(http.HandlerFunc(s.backupH.RunNow)))
	mux.Handle("POST /api/backup/restore", middleware.RequireSuperuser(http.HandlerFunc(s.backupH.Restore)))

	// WebSocket planner board feed
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
