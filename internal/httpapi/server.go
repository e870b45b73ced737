package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avanserv/deurapi/internal/deur/service"
	"github.com/avanserv/deurapi/internal/deur/store"
	"github.com/avanserv/deurapi/internal/deur/types"
	"github.com/avanserv/deurapi/internal/metrics"
)

// TokenValidator gates every administrative entry point. The concrete
// implementation lives in internal/auth; tests substitute a fake.
type TokenValidator interface {
	Validate(ctx context.Context, requestPath, token string) bool
}

type Dependencies struct {
	Logger      *log.Logger
	Addr        string
	DocsBaseURL string

	Tokens     TokenValidator
	Directory  store.DirectoryStore
	Access     *service.AccessService
	Enrollment *service.EnrollmentService
	Checker    *service.ScanValidator
	Presence   *service.PresenceService

	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	// Health reports backing-store readiness; nil means always healthy.
	Health func(ctx context.Context) error
}

type Server struct {
	httpServer  *http.Server
	logger      *log.Logger
	mux         *http.ServeMux
	docsBaseURL string

	tokens     TokenValidator
	directory  store.DirectoryStore
	access     *service.AccessService
	enrollment *service.EnrollmentService
	checker    *service.ScanValidator
	presence   *service.PresenceService

	metrics *metrics.Metrics
	health  func(ctx context.Context) error
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:      d.Logger,
		mux:         mux,
		docsBaseURL: d.DocsBaseURL,
		tokens:      d.Tokens,
		directory:   d.Directory,
		access:      d.Access,
		enrollment:  d.Enrollment,
		checker:     d.Checker,
		presence:    d.Presence,
		metrics:     d.Metrics,
		health:      d.Health,
	}

	mux.HandleFunc("GET /users", s.requireAuth(s.handleListUsers))
	mux.HandleFunc("GET /users/last_seen", s.requireAuth(s.handleLastSeen))
	mux.HandleFunc("POST /users/{uid}", s.requireAuth(s.handleGrantAccess))
	mux.HandleFunc("DELETE /users/{uid}", s.requireAuth(s.handleDenyAccess))
	mux.HandleFunc("POST /users/{uid}/pass", s.requireAuth(s.handleEnrollPass))
	mux.HandleFunc("DELETE /users/{uid}/pass", s.requireAuth(s.handleDetachPass))
	mux.HandleFunc("GET /deur/checkpass", s.requireAuth(s.handleCheckPass))
	mux.HandleFunc("GET /deur/access/{pass}", s.requireAuth(s.handleDeviceAccess))

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	if d.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	handler := requestIDMiddleware(metricsMiddleware(d.Metrics, loggingMiddleware(d.Logger, mux)))

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func userToAPI(rec store.UserRecord) types.User {
	return types.User{
		UID:    rec.UID,
		Name:   rec.Name,
		Pass:   rec.HasPass(),
		Access: rec.Access,
	}
}

// ── Directory ────────────────────────────────────────────────────────────────

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	records, err := s.directory.ListUsers(r.Context())
	if err != nil {
		s.logger.Printf("list users error: %v", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal)
		return
	}

	users := make([]types.User, 0, len(records))
	for _, rec := range records {
		users = append(users, userToAPI(rec))
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGrantAccess(w http.ResponseWriter, r *http.Request) {
	s.setAccess(w, r, s.directory.GrantAccess)
}

func (s *Server) handleDenyAccess(w http.ResponseWriter, r *http.Request) {
	s.setAccess(w, r, s.directory.DenyAccess)
}

func (s *Server) setAccess(w http.ResponseWriter, r *http.Request, op func(context.Context, string) error) {
	uid := r.PathValue("uid")
	switch err := op(r.Context(), uid); {
	case errors.Is(err, store.ErrUserNotFound):
		s.writeError(w, http.StatusNotFound, codeUserNotFound)
	case err != nil:
		s.logger.Printf("set access %s error: %v", uid, err)
		s.writeError(w, http.StatusInternalServerError, codeInternal)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDetachPass(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	switch err := s.directory.DetachPass(r.Context(), uid); {
	case errors.Is(err, store.ErrNoPass):
		s.writeError(w, http.StatusNotFound, codeNoPass)
	case err != nil:
		s.logger.Printf("detach pass %s error: %v", uid, err)
		s.writeError(w, http.StatusInternalServerError, codeInternal)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// ── Enrollment ───────────────────────────────────────────────────────────────

func (s *Server) handleEnrollPass(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	rec, err := s.enrollment.Enroll(r.Context(), uid)
	if err != nil {
		s.logger.Printf("enroll %s failed: %v", uid, err)
		status, code := enrollFailure(err)
		s.writeError(w, status, code)
		return
	}
	writeJSON(w, http.StatusOK, userToAPI(rec))
}

// enrollFailure maps the enrollment workflow's typed failures onto the
// response taxonomy, one to one.
func enrollFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrDoorResponseNotOkay):
		return http.StatusBadGateway, codeDoorResponseNotOkay
	case errors.Is(err, service.ErrPassMismatch):
		return http.StatusForbidden, codePassMismatch
	case errors.Is(err, service.ErrEntriesTooOld):
		return http.StatusForbidden, codeEntriesTooOld
	case errors.Is(err, service.ErrInsufficientData):
		return http.StatusForbidden, codeInsufficientData
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, codeUserNotFound
	case errors.Is(err, store.ErrUserAlreadyHasPass):
		return http.StatusConflict, codeUserAlreadyHasPass
	case errors.Is(err, store.ErrPassExists):
		return http.StatusConflict, codePassExists
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// handleCheckPass dry-runs the scan validation so an administrator can see
// whether an enrollment would go through. It always answers 200; the kind
// in the body communicates the outcome.
func (s *Server) handleCheckPass(w http.ResponseWriter, r *http.Request) {
	kind := codePassOkay
	if _, err := s.checker.Validate(r.Context()); err != nil {
		s.logger.Printf("checkpass: %v", err)
		_, kind = enrollFailure(err)
	}
	s.metrics.CheckpassKinds.WithLabelValues(kind).Inc()
	writeJSON(w, http.StatusOK, types.CheckResponse{Check: kind})
}

// ── Door-side access check ───────────────────────────────────────────────────

func (s *Server) handleDeviceAccess(w http.ResponseWriter, r *http.Request) {
	decision, err := s.access.Decide(r.Context(), r.PathValue("pass"))
	if err != nil {
		s.logger.Printf("access decision error: %v", err)
		s.writeError(w, http.StatusBadGateway, codeInternal)
		return
	}

	if decision.Granted {
		s.metrics.AccessDecisions.WithLabelValues("granted").Inc()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.metrics.AccessDecisions.WithLabelValues("denied").Inc()
	s.writeError(w, http.StatusForbidden, codeAccessDenied)
}

// ── Presence ─────────────────────────────────────────────────────────────────

func (s *Server) handleLastSeen(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.presence.LastSeen(r.Context())
	if err != nil {
		s.logger.Printf("last seen error: %v", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal)
		return
	}
	writeJSON(w, http.StatusOK, types.LastSeenResponse(buckets))
}

// ── Health ───────────────────────────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.logger.Printf("health check failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
