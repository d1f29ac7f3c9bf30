package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/orato-labs/speechcoach/internal/analysis"
	"github.com/orato-labs/speechcoach/internal/auth"
	"github.com/orato-labs/speechcoach/internal/buffer"
	"github.com/orato-labs/speechcoach/internal/cache"
	"github.com/orato-labs/speechcoach/internal/config"
	"github.com/orato-labs/speechcoach/internal/db"
	"github.com/orato-labs/speechcoach/internal/httputil"
	"github.com/orato-labs/speechcoach/internal/jobs"
	"github.com/orato-labs/speechcoach/internal/models"
	"github.com/orato-labs/speechcoach/internal/repository"
	"github.com/orato-labs/speechcoach/internal/suggest"
	"github.com/orato-labs/speechcoach/internal/version"
)

type Server struct {
	config       *config.Config
	db           *db.DB
	buf          *buffer.Buffer
	analyzer     *analysis.Analyzer
	engine       *suggest.Engine
	userRepo     *repository.UserRepository
	sessionRepo  *repository.SessionRepository
	analysisRepo *repository.AnalysisRepository
	statsCache   *cache.Cache
	jobQueue     *jobs.Queue
	wsHub        *WSHub
	authMw       *auth.Middleware
	router       *http.ServeMux

	limitersMu sync.Mutex
	limiters   map[string]*clientLimiter
}

// clientLimiter pairs a limiter with its last use so idle clients can be
// evicted instead of accumulating forever.
type clientLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

const (
	limiterIdleTTL  = 10 * time.Minute
	limiterPruneLen = 1024
)

func NewServer(cfg *config.Config, database *db.DB, buf *buffer.Buffer,
	analyzer *analysis.Analyzer, engine *suggest.Engine,
	statsCache *cache.Cache, jobQueue *jobs.Queue) *Server {

	s := &Server{
		config:       cfg,
		db:           database,
		buf:          buf,
		analyzer:     analyzer,
		engine:       engine,
		userRepo:     repository.NewUserRepository(database.DB),
		sessionRepo:  repository.NewSessionRepository(database.DB),
		analysisRepo: repository.NewAnalysisRepository(database.DB),
		statsCache:   statsCache,
		jobQueue:     jobQueue,
		wsHub:        NewWSHub(),
		authMw:       auth.NewMiddleware(cfg.JWTSecret),
		router:       http.NewServeMux(),
		limiters:     make(map[string]*clientLimiter),
	}
	s.setupRoutes()
	return s
}

func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func (s *Server) setupRoutes() {
	// Public
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/v1/status", s.handleStatus)
	s.router.HandleFunc("POST /api/v1/auth/register", s.rlAuth(s.handleRegister))
	s.router.HandleFunc("POST /api/v1/auth/login", s.rlAuth(s.handleLogin))

	// WebSocket (token also accepted via query param; browsers cannot set
	// headers on WebSocket upgrades)
	s.router.Handle("GET /api/v1/ws", s.authMw.RequireAuth(http.HandlerFunc(s.handleWebSocket)))

	// Users
	s.router.HandleFunc("GET /api/v1/users/me", s.authMiddleware(s.handleGetMe, models.RoleUser))
	s.router.HandleFunc("GET /api/v1/users", s.authMiddleware(s.handleListUsers, models.RoleAdmin))
	s.router.HandleFunc("POST /api/v1/users/{id}/active", s.authMiddleware(s.handleSetUserActive, models.RoleAdmin))

	// Transcript ingestion and on-demand analysis
	s.router.HandleFunc("POST /api/v1/transcript/segments", s.rlIngest(s.ingestAuth(s.handleIngestSegments)))
	s.router.HandleFunc("POST /api/v1/transcript/analyze", s.authMiddleware(s.handleAnalyzeText, models.RoleUser))

	// History and statistics
	s.router.HandleFunc("GET /api/v1/transcript/history/{userId}", s.authMiddleware(s.handleHistory, models.RoleUser))
	s.router.HandleFunc("GET /api/v1/transcript/statistics/{userId}", s.authMiddleware(s.handleStatistics, models.RoleUser))

	// Buffered sessions
	s.router.HandleFunc("GET /api/v1/sessions", s.authMiddleware(s.handleListBufferedSessions, models.RoleUser))
	s.router.HandleFunc("POST /api/v1/sessions/{key}/finalize", s.authMiddleware(s.handleFinalizeSession, models.RoleUser))
	s.router.HandleFunc("GET /api/v1/sessions/{id}", s.authMiddleware(s.handleGetSession, models.RoleUser))

	// Daily rollup on demand (admin)
	s.router.Handle("POST /api/v1/rollup/{date}", s.authMw.RequireAuth(s.authMw.RequireAdmin(http.HandlerFunc(s.handleTriggerRollup))))
}

// ──────────────────── Middleware ────────────────────

func (s *Server) authMiddleware(next http.HandlerFunc, requiredRole models.UserRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""
		if h := r.Header.Get("Authorization"); h != "" {
			tokenString = strings.TrimPrefix(h, "Bearer ")
		} else if t := r.URL.Query().Get("token"); t != "" {
			tokenString = t
		} else {
			httputil.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization")
			return
		}

		userID, role, err := auth.ValidateToken(s.config.JWTSecret, tokenString)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}
		if requiredRole == models.RoleAdmin && role != models.RoleAdmin {
			httputil.WriteError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
			return
		}

		r.Header.Set("X-User-ID", userID.String())
		r.Header.Set("X-User-Role", string(role))
		next(w, r)
	}
}

// rlAuth throttles credential endpoints per client address to slow brute
// force attempts.
func (s *Server) rlAuth(next http.HandlerFunc) http.HandlerFunc {
	return s.rateLimit(next, "auth", rate.Every(time.Second), 5)
}

// rlIngest caps segment batches per client; well above any real
// transcription stream, low enough to contain a runaway client.
func (s *Server) rlIngest(next http.HandlerFunc) http.HandlerFunc {
	return s.rateLimit(next, "ingest", rate.Limit(50), 100)
}

func (s *Server) rateLimit(next http.HandlerFunc, scope string, r rate.Limit, burst int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		key := scope + "|" + clientAddr(req)
		s.limitersMu.Lock()
		cl, ok := s.limiters[key]
		if !ok {
			if len(s.limiters) >= limiterPruneLen {
				s.pruneLimitersLocked()
			}
			cl = &clientLimiter{lim: rate.NewLimiter(r, burst)}
			s.limiters[key] = cl
		}
		cl.lastSeen = time.Now()
		s.limitersMu.Unlock()

		if !cl.lim.Allow() {
			httputil.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}
		next(w, req)
	}
}

// pruneLimitersLocked drops limiters idle past the TTL. Caller holds
// limitersMu.
func (s *Server) pruneLimitersLocked() {
	cutoff := time.Now().Add(-limiterIdleTTL)
	for key, cl := range s.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(s.limiters, key)
		}
	}
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

// ──────────────────── System handlers ────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "DB_DOWN", "database unreachable")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	users, _ := s.userRepo.Count()
	sessions, _ := s.sessionRepo.Count()
	results, _ := s.analysisRepo.Count()
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":           version.Version,
		"buffered_sessions": s.buf.Len(),
		"ws_clients":        s.wsHub.ClientCount(),
		"users":             users,
		"sessions":          sessions,
		"analyses":          results,
	})
}

// Handler wraps the router with the global middleware chain.
func (s *Server) Handler() http.Handler {
	return s.securityHeadersMiddleware(s.corsMiddleware(s.router))
}

func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
