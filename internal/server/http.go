package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/usecase"
	"github.com/devricklin/weekcheck/internal/data"
	"github.com/devricklin/weekcheck/internal/infra/twochat"
)

// maxBodyBytes caps webhook and admin request bodies
const maxBodyBytes = 1 << 20

// EventHandler consumes inbound events
type EventHandler interface {
	Handle(ctx context.Context, ev *domain.InboundEvent) usecase.Outcome
}

// Reporter runs and previews weekly reports
type Reporter interface {
	RunWeeklyReport(ctx context.Context, now time.Time) []domain.GroupReport
	WeeklyStatus(now time.Time) []domain.GroupReport
}

// HTTPServer serves the push webhooks, health, metrics and the admin API
type HTTPServer struct {
	router     *mux.Router
	intake     EventHandler
	reporter   Reporter
	adminToken string
	logger     *zap.Logger
	now        func() time.Time

	server *http.Server
}

// NewHTTPServer creates the HTTP server. An empty adminToken leaves the
// admin API open; a nil gatherer disables /metrics.
func NewHTTPServer(
	addr string,
	intake EventHandler,
	reporter Reporter,
	adminToken string,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *HTTPServer {
	s := &HTTPServer{
		router:     mux.NewRouter(),
		intake:     intake,
		reporter:   reporter,
		adminToken: adminToken,
		logger:     logger.Named("http"),
		now:        time.Now,
	}
	s.setupRoutes(gatherer)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *HTTPServer) setupRoutes(gatherer prometheus.Gatherer) {
	// Push endpoints
	s.router.HandleFunc("/webhook/group", s.handleGroupWebhook).Methods("POST")
	s.router.HandleFunc("/webhook/private", s.handlePrivateWebhook).Methods("POST")

	s.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	// Admin endpoints
	admin := s.router.PathPrefix("/api").Subrouter()
	admin.Use(s.authMiddleware)
	admin.HandleFunc("/status", s.handleStatus).Methods("GET")
	admin.HandleFunc("/report", s.handleReport).Methods("POST")
}

// Handler returns the router, for tests and embedding
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called
func (s *HTTPServer) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleGroupWebhook(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.readWebhook(w, r)
	if !ok {
		return
	}
	if msg.GroupUUID == "" {
		s.logger.Info("group webhook without group id ignored", zap.String("event_id", msg.ID))
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	ev := data.TwoChatEvent(msg)
	outcome := s.intake.Handle(r.Context(), &ev)
	s.logger.Debug("group webhook handled", zap.String("event_id", ev.ID), zap.String("outcome", string(outcome)))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handlePrivateWebhook(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.readWebhook(w, r)
	if !ok {
		return
	}

	ev := data.TwoChatEvent(msg)
	ev.GroupID = ""
	ev.GroupName = ""
	outcome := s.intake.Handle(r.Context(), &ev)
	s.logger.Debug("private webhook handled", zap.String("event_id", ev.ID), zap.String("outcome", string(outcome)))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readWebhook answers 400 for structurally invalid bodies
func (s *HTTPServer) readWebhook(w http.ResponseWriter, r *http.Request) (twochat.Message, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return twochat.Message{}, false
	}
	msg, err := twochat.ParseWebhook(body)
	if err != nil {
		s.logger.Warn("invalid webhook payload", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return twochat.Message{}, false
	}
	return msg, true
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"groups": s.reporter.WeeklyStatus(s.now())})
}

func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request) {
	reports := s.reporter.RunWeeklyReport(r.Context(), s.now())
	writeJSON(w, http.StatusOK, map[string]any{"groups": reports})
}

func (s *HTTPServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.Header.Get("X-Admin-Token")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
