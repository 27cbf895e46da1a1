// Package http exposes the action-dispatch API: one endpoint, an action
// discriminator, JSON in and out. Handled requests always answer 200;
// failures are carried in the body as error or success fields.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"finpro/internal/groq"
	"finpro/internal/log"
	"finpro/internal/store"
)

// EventPublisher mirrors committed transaction mutations to a message
// broker. Publishing is best effort; failures are logged and never
// surfaced to the API caller.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, action, username string, rowIndex int, row []string) error
}

type Server struct {
	http.Server
	users     *store.Users
	txs       *store.Transactions
	completer *groq.Client
	publisher EventPublisher
	logger    *log.Logger
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// publisher may be nil when no broker is configured.
func NewServer(addr string, users *store.Users, txs *store.Transactions, completer *groq.Client, publisher EventPublisher, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		users:     users,
		txs:       txs,
		completer: completer,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/", s.withRequestLogging(s.handleAction))

	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) withRequestLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		reqLogger := s.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), loggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		reqLogger.Info("request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldAction, r.URL.Query().Get("action"),
			log.FieldClientIP, clientIP)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		reqLogger.Info("request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

type contextKey string

const loggerContextKey contextKey = "logger"

func loggerFrom(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerContextKey).(*log.Logger); ok {
		return l
	}
	return log.New(log.DefaultConfig())
}

// responseWriter captures the status code for the completion log line.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
