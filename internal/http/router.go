package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/studymate/studymate/internal/chat"
	"github.com/studymate/studymate/internal/service"
	"github.com/studymate/studymate/internal/store"
	"github.com/studymate/studymate/pkg/httpx"
	"github.com/studymate/studymate/pkg/jwtx"
	"github.com/studymate/studymate/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers. The two gate policies
// are declared per-route here rather than inferred anywhere else: a route is
// opportunistic or mandatory because this file says so.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec        *jwtx.Codec
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	registry *chat.Registry

	Gate                *service.AccessGate
	AuthService         *service.AuthService
	UserService         *service.UserService
	AnnouncementService *service.AnnouncementService
	ChatService         *service.ChatService
}

func NewRouter(
	codec *jwtx.Codec,
	buildVersion string,
	st store.Store,
	registry *chat.Registry,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		codec:        codec,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		registry:     registry,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerAnnouncements()
	r.registerChats()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Credential endpoints get the strict limit: they are the brute-force
	// surface.
	r.Mux.Handle("POST /api/auth/registration",
		httpx.Chain(http.HandlerFunc(h.HandleRegistration),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Logout reads the bearer itself; it does not need the gate because a
	// dead token logging out is still a 204.
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	// Mandatory: the caller IS the resource.
	r.Mux.Handle("GET /api/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			RequireAuth(r.Gate),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// Public profile summary.
	r.Mux.Handle("GET /api/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerAnnouncements() {
	h := &AnnouncementsHandler{AnnouncementService: r.AnnouncementService}

	// Reads are opportunistic: anonymous works, a principal enriches the
	// response with ownership.
	r.Mux.Handle("GET /api/announcements",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			Authenticate(r.Gate),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /api/announcements/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			Authenticate(r.Gate),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// Writes are mandatory.
	r.Mux.Handle("POST /api/announcements",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			RequireAuth(r.Gate),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /api/announcements/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			RequireAuth(r.Gate),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerChats() {
	h := &ChatsHandler{ChatService: r.ChatService}

	r.Mux.Handle("GET /api/chats",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			RequireAuth(r.Gate),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /api/chats",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			RequireAuth(r.Gate),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /api/chats/{id}/messages",
		httpx.Chain(http.HandlerFunc(h.HandleMessages),
			RequireAuth(r.Gate),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// The websocket handshake runs the gate itself (token query param), so
	// no middleware gate here; rate limited by IP since the principal is
	// unknown until the gate has run.
	ws := &WebsocketHandler{
		Gate:        r.Gate,
		ChatService: r.ChatService,
		Registry:    r.registry,
	}
	r.Mux.Handle("GET /ws",
		httpx.Chain(ws,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.codec),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
