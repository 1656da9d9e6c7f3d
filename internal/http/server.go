// Package http exposes the assistant as a JSON API for chat transports.
package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"chitieu/internal/analysis"
	"chitieu/internal/core"
	"chitieu/internal/log"
	"chitieu/internal/middleware/ratelimit"
	"chitieu/internal/middleware/trace"
	"chitieu/internal/services"
)

// Assistant is the conversation service behind the API.
type Assistant interface {
	HandleMessage(ctx context.Context, userID, chatID, text string) (services.Reply, error)
	UpdateProfile(ctx context.Context, userID, text string) (services.Reply, error)
	Report(ctx context.Context, userID string, period analysis.Period) (string, error)
	LatestReview(ctx context.Context, userID string) (core.Review, error)
	Extract(ctx context.Context, text string) core.ExtractionResult
}

// Observer records per-route request metrics.
type Observer interface {
	ObserveHTTP(method, route string, status int, took time.Duration)
}

type Server struct {
	http.Server
	assistant Assistant
	limiter   *ratelimit.Limiter
	observer  Observer
	metrics   http.Handler
	ready     func(context.Context) error
	logger    *log.Logger

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithMetrics mounts h on /metrics and reports request metrics to o.
func WithMetrics(h http.Handler, o Observer) Option {
	return func(s *Server) {
		s.metrics = h
		s.observer = o
	}
}

// WithReadiness makes /readyz run check.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

func WithRateLimit(requestsPerMinute int) Option {
	return func(s *Server) {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: requestsPerMinute})
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = log.OrDiscard(l).WithComponent(log.ComponentHTTP) }
}

func NewServer(addr string, assistant Assistant, opts ...Option) *Server {
	s := &Server{
		assistant: assistant,
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	mux := http.NewServeMux()
	s.handle(mux, "POST /api/messages", s.limited(s.handleMessage))
	s.handle(mux, "POST /api/profile", s.limited(s.handleProfile))
	s.handle(mux, "POST /api/extract", s.limited(s.handleExtract))
	s.handle(mux, "GET /api/reports/{period}", s.handleReport)
	s.handle(mux, "GET /api/review", s.handleReview)
	s.handle(mux, "GET /healthz", handleHealth)
	s.handle(mux, "GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	tracer := trace.NewMiddleware(ClientIP, s.logger)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(withSecurityHeaders(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// handle registers h and observes it under its route pattern.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	_, route, _ := strings.Cut(pattern, " ")
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rw, r)
		if s.observer != nil {
			s.observer.ObserveHTTP(r.Method, route, rw.status, time.Since(start))
		}
	}))
}

func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	limit := s.limiter.Middleware(ClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, ClientIP(r), "path", r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	})
	return limit(next).ServeHTTP
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrEmptyUser),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, core.ErrEmptyName):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
