package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultRequestTimeout = 15 * time.Second
	headerTimeout         = 5 * time.Second
	idleTimeout           = 60 * time.Second
)

// New builds the API server. requestTimeout bounds reading a request; writes
// get a few extra seconds so a handler timing out can still send its 503.
// Server-level errors such as TLS handshakes go to log.
func New(addr string, handler http.Handler, requestTimeout time.Duration, log *slog.Logger) *http.Server {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: headerTimeout,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout + headerTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}
}
