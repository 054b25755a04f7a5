package httpx

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ksmcod/tasky-api/internal/service/account"
	"github.com/ksmcod/tasky-api/internal/service/auth"
	"github.com/ksmcod/tasky-api/internal/service/team"
	"github.com/ksmcod/tasky-api/pkg/config"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *mux.Router
	logger   *slog.Logger
	auth     auth.Service
	accounts account.Service
	teams    team.Service
	limiter  RateLimiter
	dbHealth func(context.Context) error
	cfg      config.APIConfig
	registry *prometheus.Registry
	metrics  *metrics
}

// Deps groups the collaborators of a Router.
type Deps struct {
	Logger   *slog.Logger
	Auth     auth.Service
	Accounts account.Service
	Teams    team.Service
	Limiter  RateLimiter
	DBHealth func(context.Context) error
	Config   config.APIConfig
	// Registry receives the HTTP metrics. A private registry is created
	// when nil.
	Registry *prometheus.Registry
}

const healthCheckTimeout = 2 * time.Second

// NewRouter assembles routes with dependencies.
func NewRouter(deps Deps) *Router {
	r := &Router{
		mux:      mux.NewRouter(),
		logger:   deps.Logger,
		auth:     deps.Auth,
		accounts: deps.Accounts,
		teams:    deps.Teams,
		limiter:  deps.Limiter,
		dbHealth: deps.DBHealth,
		cfg:      deps.Config,
		registry: deps.Registry,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}
	r.metrics = newMetrics(r.registry)
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.mux.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz)).Methods(http.MethodGet)
	r.mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Routes hang off the root router so unmatched methods reach
	// MethodNotAllowedHandler.
	r.mux.HandleFunc("/auth/register", r.audit(r.withRateLimit(policyRegister, r.handleRegister))).Methods(http.MethodPost)
	r.mux.HandleFunc("/auth/login", r.audit(r.withRateLimit(policyLogin, r.handleLogin))).Methods(http.MethodPost)
	r.mux.HandleFunc("/auth/logout", r.audit(r.handleLogout)).Methods(http.MethodPost)
	r.mux.HandleFunc("/auth/github", r.audit(r.withRateLimit(policyOAuth, r.handleGitHubLogin))).Methods(http.MethodGet)
	r.mux.HandleFunc("/auth/github/callback", r.audit(r.withRateLimit(policyOAuth, r.handleGitHubCallback))).Methods(http.MethodGet)

	r.mux.HandleFunc("/user/get-user", r.audit(r.handlerAuthRate(policyUserRead, r.handleGetUser))).Methods(http.MethodGet)

	r.mux.HandleFunc("/team/new", r.audit(r.handlerAuthRate(policyUserWrite, r.handleCreateTeam))).Methods(http.MethodPost)
	r.mux.HandleFunc("/team/join", r.audit(r.handlerAuthRate(policyUserWrite, r.handleJoinTeam))).Methods(http.MethodPost)
	r.mux.HandleFunc("/team", r.audit(r.handlerAuthRate(policyUserRead, r.handleListTeams))).Methods(http.MethodGet)
	r.mux.HandleFunc("/team/", r.audit(r.handlerAuthRate(policyUserRead, r.handleListTeams))).Methods(http.MethodGet)
	r.mux.HandleFunc("/team/{teamCode}/members", r.audit(r.handlerAuthRate(policyUserRead, r.handleListMembers))).Methods(http.MethodGet)
	r.mux.HandleFunc("/team/{teamCode}/members/me", r.audit(r.handlerAuthRate(policyUserWrite, r.handleLeaveTeam))).Methods(http.MethodDelete)
	r.mux.HandleFunc("/team/{teamCode}/members/{email}", r.audit(r.handlerAuthRate(policyUserWrite, r.handleRemoveMember))).Methods(http.MethodDelete)
	r.mux.HandleFunc("/team/{teamCode}", r.audit(r.handlerAuthRate(policyUserWrite, r.handleDeleteTeam))).Methods(http.MethodDelete)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if r.dbHealth == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
	defer cancel()
	if err := r.dbHealth(ctx); err != nil {
		r.logger.Warn("database health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}

// audit logs every request and records its metrics under the route template.
func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		route := routeTemplate(req)
		r.metrics.observe(req.Method, route, status, duration)

		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"route", route,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			fields = append(fields, "user_id", info.UserID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

func routeTemplate(req *http.Request) string {
	if route := mux.CurrentRoute(req); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
