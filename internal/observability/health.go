package observability

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// HealthChecker serves the process health endpoint. Readiness tracks whether
// at least one FIX session is logged on when session tracking is in use.
type HealthChecker struct {
	httpServer *http.Server
	logger     *zap.Logger
	mu         sync.RWMutex
	ready      bool
	sessionsUp int
	usesFIX    bool
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		logger: logger,
		ready:  true,
	}
}

// StartHTTPServer starts the HTTP health check server
func (h *HealthChecker) StartHTTPServer(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealthz)

	h.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	h.logger.Info("starting HTTP health server", zap.String("addr", addr))
	return h.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the health checker
func (h *HealthChecker) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.ready = false
	h.mu.Unlock()

	if h.httpServer != nil {
		return h.httpServer.Shutdown(ctx)
	}
	return nil
}

// SessionChanged records a FIX session logging on or off
func (h *HealthChecker) SessionChanged(loggedOn bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.usesFIX = true
	if loggedOn {
		h.sessionsUp++
	} else if h.sessionsUp > 0 {
		h.sessionsUp--
	}
}

func (h *HealthChecker) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	ready := h.ready
	sessionsUp := h.sessionsUp
	usesFIX := h.usesFIX
	h.mu.RUnlock()

	if ready && (!usesFIX || sessionsUp > 0) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("NOT_READY"))
	}
}
