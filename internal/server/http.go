// Package server owns the HTTP surface of the process: the mux serving the
// monitoring route and /healthz, and the http.Server lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/leinardi/safemode-monitoring/internal/logger"
)

// ErrInvalidPattern is returned for a route that http.ServeMux rejects.
var ErrInvalidPattern = errors.New("invalid route pattern")

// HealthFunc reports whether the application finished startup and, if not, a
// short reason.
type HealthFunc func() (bool, string)

// Definer registers an action on a mux.
type Definer interface {
	Define(mux *http.ServeMux, path string) error
}

const (
	// HealthzPath is reserved for the liveness/startup probe.
	HealthzPath = "/healthz"

	okBody       = "ok\n"
	defaultCause = "safe mode"

	readHeaderTimeout = 5 * time.Second
	readTimeout       = 10 * time.Second
	writeTimeout      = 15 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// NewMux returns an http.ServeMux with:
//   - metricsPath bound to the metrics action (defined here, once)
//   - /healthz returning 200 when healthy and 503 with the reason otherwise
func NewMux(metrics Definer, metricsPath string, isHealthy HealthFunc) (*http.ServeMux, error) {
	mux := http.NewServeMux()

	defineErr := metrics.Define(mux, metricsPath)
	if defineErr != nil {
		return nil, fmt.Errorf("define %s: %w", metricsPath, defineErr)
	}

	mux.HandleFunc(HealthzPath, healthHandler(isHealthy))

	return mux, nil
}

// CheckPattern reports whether path can be registered on an http.ServeMux.
// ServeMux panics on malformed patterns such as "/api/{bad" or a path
// followed by a method, so the check runs against a throwaway mux.
func CheckPattern(path string) (err error) {
	if strings.ContainsFunc(path, unicode.IsSpace) {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidPattern, path)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %q: %v", ErrInvalidPattern, path, recovered)
		}
	}()

	http.NewServeMux().Handle(path, http.NotFoundHandler())

	return nil
}

func healthHandler(isHealthy HealthFunc) http.HandlerFunc {
	return func(responseWriter http.ResponseWriter, _ *http.Request) {
		responseWriter.Header().Set("Content-Type", "text/plain; charset=utf-8")

		ok, reason := isHealthy()
		if ok {
			responseWriter.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(responseWriter, okBody)

			return
		}

		if reason == "" {
			reason = defaultCause
		}

		responseWriter.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(responseWriter, reason+"\n")
	}
}

// Run serves handler on address until ctx is canceled, then shuts down
// gracefully. It returns nil after a clean shutdown.
// A nil log falls back to the process logger.
func Run(ctx context.Context, address string, handler http.Handler, log *slog.Logger) error {
	if log == nil {
		log = logger.L()
	}

	httpServer := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}

	errorChannel := make(chan error, 1)

	go func() {
		errorChannel <- httpServer.ListenAndServe()
	}()

	var resultError error

	select {
	case resultError = <-errorChannel:
	case <-ctx.Done():
	}

	// ctx may already be canceled; shutdown gets its own deadline.
	shutdownContext, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer shutdownCancel()

	shutdownErr := httpServer.Shutdown(shutdownContext)
	if shutdownErr != nil {
		log.Warn("HTTP server shutdown", "err", shutdownErr)
	}

	if errors.Is(resultError, http.ErrServerClosed) {
		return nil
	}

	return resultError
}
