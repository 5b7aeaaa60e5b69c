package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"rfid-door-lock/internal/auditlog"
	"rfid-door-lock/internal/controller"
	"rfid-door-lock/internal/types"
)

// StatsProvider exposes controller state to the status API.
type StatsProvider interface {
	GetStats() controller.Stats
}

// ScanLog exposes the read side of the scan audit log.
type ScanLog interface {
	Recent(limit int) ([]types.ScanEvent, error)
	Count() (auditlog.Counters, error)
}

// Config holds the status API configuration.
type Config struct {
	Port        int
	AuthEnabled bool
	JWTSecret   string
}

// StatusResponse is the payload of GET /api/v1/status. The credential bytes
// themselves are never exposed, only their presence.
type StatusResponse struct {
	CredentialPresent bool              `json:"credentialPresent"`
	Unlocked          bool              `json:"unlocked"`
	UptimeSeconds     int64             `json:"uptimeSeconds"`
	LastScanTime      *time.Time        `json:"lastScanTime,omitempty"`
	Scans             auditlog.Counters `json:"scans"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server is the local maintenance HTTP server. It is read-mostly and meant
// for bench diagnostics on the device's own network.
type Server struct {
	config     Config
	logger     *logrus.Entry
	mu         sync.RWMutex
	stats      StatsProvider
	scans      ScanLog
	router     *mux.Router
	httpServer *http.Server
	wsManager  *WebSocketManager
	startedAt  time.Time
}

// NewServer creates the status API server. The stats provider is attached
// separately with SetStatsProvider, since the controller takes the server's
// broadcast callback at construction.
func NewServer(cfg Config, scans ScanLog, logger *logrus.Entry) *Server {
	s := &Server{
		config:    cfg,
		logger:    logger,
		scans:     scans,
		router:    mux.NewRouter(),
		wsManager: NewWebSocketManager(logger),
		startedAt: time.Now(),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// setupRoutes registers the API routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/scans", s.handleScans).Methods(http.MethodGet)
	api.HandleFunc("/scans/stream", s.wsManager.HandleUpgrade).Methods(http.MethodGet)
}

// SetStatsProvider attaches the controller stats source.
func (s *Server) SetStatsProvider(stats StatsProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
}

// Start begins serving and runs the WebSocket manager.
func (s *Server) Start(ctx context.Context) error {
	s.wsManager.Start(ctx)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("Status API server failed")
		}
	}()

	s.logger.WithField("addr", s.httpServer.Addr).Info("Status API started")
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.wsManager.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to shutdown status API server")
		return err
	}
	return nil
}

// BroadcastScan pushes a scan event to every connected WebSocket client. It
// is safe to use as the controller's scan callback.
func (s *Server) BroadcastScan(event types.ScanEvent) {
	s.wsManager.Broadcast(event)
}

// Handler returns the underlying router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleStatus reports credential presence, lock state and scan counters.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	provider := s.stats
	s.mu.RUnlock()

	if provider == nil {
		s.writeError(w, http.StatusServiceUnavailable, "NOT_READY", "Controller not attached yet")
		return
	}
	stats := provider.GetStats()

	counters, err := s.scans.Count()
	if err != nil {
		s.logger.WithError(err).Error("Failed to read scan counters")
		s.writeError(w, http.StatusInternalServerError, "AUDIT_LOG_FAILED", err.Error())
		return
	}

	resp := StatusResponse{
		CredentialPresent: stats.CredentialPresent,
		Unlocked:          stats.Unlocked,
		UptimeSeconds:     int64(time.Since(s.startedAt).Seconds()),
		Scans:             counters,
	}
	if !stats.LastScanTime.IsZero() {
		t := stats.LastScanTime
		resp.LastScanTime = &t
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleScans returns recent audit-log entries, newest first.
func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := s.scans.Recent(limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read recent scans")
		s.writeError(w, http.StatusInternalServerError, "AUDIT_LOG_FAILED", err.Error())
		return
	}
	if events == nil {
		events = []types.ScanEvent{}
	}

	s.writeJSON(w, http.StatusOK, events)
}

// authMiddleware validates the bearer token when auth is enabled. Auth is off
// by default for local bench use.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.config.AuthEnabled {
			next.ServeHTTP(w, r)
			return
		}

		if !s.validateJWT(r) {
			s.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Valid bearer token required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// validateJWT validates HMAC-signed bearer tokens.
func (s *Server) validateJWT(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	tokenString := strings.TrimPrefix(auth, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		return false
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		if exp, ok := claims["exp"].(float64); ok {
			if time.Now().Unix() > int64(exp) {
				return false
			}
		}
		return true
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	s.writeJSON(w, statusCode, ErrorResponse{
		Error:   errorCode,
		Code:    statusCode,
		Message: message,
	})
}
