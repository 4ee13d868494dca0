/*
 * MIT License
 *
 * Copyright (c) 2025 Roberto Leinardi
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package monitoring serves the registry of the process on an access-gated
// route that works while the application is still in safe mode.
package monitoring

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/leinardi/safemode-monitoring/internal/appctx"
	"github.com/leinardi/safemode-monitoring/internal/auth"
	"github.com/leinardi/safemode-monitoring/internal/exposition"
	"github.com/leinardi/safemode-monitoring/internal/logger"
	"github.com/leinardi/safemode-monitoring/internal/server"
	"github.com/leinardi/safemode-monitoring/internal/webapi"
)

const (
	// WebUpGaugeName is the gauge registered when the action is defined.
	WebUpGaugeName = "is_web_up"
	webUpGaugeHelp = "Tells whether web service is up"

	// DefaultPath is the route of the action under the monitoring controller.
	DefaultPath = "/api/monitoring/metrics"

	insufficientPrivilegesMessage = "Insufficient privileges"
	methodNotAllowedMessage       = "Method not allowed"
	gatherFailedMessage           = "Failed to gather metrics"
)

// ErrGather is returned by Handle when the registry cannot be enumerated.
var ErrGather = errors.New("gather metrics")

// Registry is the part of the application context the action needs.
type Registry interface {
	RegisterGauge(opts prometheus.GaugeOpts) (prometheus.Gauge, error)
	Snapshot() ([]*dto.MetricFamily, error)
}

// Authorizer decides whether a request may read metrics.
type Authorizer interface {
	Authorize(r *http.Request) (auth.Decision, error)
}

// MetricsAction is the GET metrics action. Define must complete before the
// server accepts traffic; afterwards the action is safe for concurrent use and
// keeps no state between requests.
type MetricsAction struct {
	registry Registry
	gate     Authorizer
	log      *slog.Logger

	webUp prometheus.Gauge
}

// NewMetricsAction wires the action. A nil logger falls back to logger.L().
func NewMetricsAction(registry Registry, gate Authorizer, log *slog.Logger) *MetricsAction {
	if log == nil {
		log = logger.L()
	}

	return &MetricsAction{registry: registry, gate: gate, log: log}
}

// Define registers the is_web_up gauge at 0 and routes path to the action.
// It runs once per process: a second Define against the same registry fails
// with appctx.ErrDuplicateMetric and leaves the mux untouched. A path the mux
// would reject fails before the gauge is registered.
func (action *MetricsAction) Define(mux *http.ServeMux, path string) error {
	if action.webUp != nil {
		return fmt.Errorf("define metrics action: %w: %s", appctx.ErrDuplicateMetric, WebUpGaugeName)
	}

	if mux != nil {
		patternErr := server.CheckPattern(path)
		if patternErr != nil {
			return fmt.Errorf("define metrics action: %w", patternErr)
		}
	}

	gauge, registerErr := action.registry.RegisterGauge(prometheus.GaugeOpts{
		Name: WebUpGaugeName,
		Help: webUpGaugeHelp,
	})
	if registerErr != nil {
		return fmt.Errorf("define metrics action: %w", registerErr)
	}

	gauge.Set(0)
	action.webUp = gauge

	if mux != nil {
		mux.Handle(path, action)
	}

	return nil
}

// WebUp returns the handle of the is_web_up gauge, nil before Define.
// Setting it to 1 is the job of the startup sequence of the host application.
func (action *MetricsAction) WebUp() prometheus.Gauge {
	return action.webUp
}

// IsWebUp reports whether the is_web_up gauge currently reads 1.
func (action *MetricsAction) IsWebUp() bool {
	return action.webUp != nil && appctx.GaugeValue(action.webUp) == 1
}

// ServeHTTP implements http.Handler. Write failures abort the connection so
// the client never mistakes a truncated body for a complete one.
func (action *MetricsAction) ServeHTTP(responseWriter http.ResponseWriter, request *http.Request) {
	handleErr := action.Handle(responseWriter, request)

	switch {
	case handleErr == nil:
	case errors.Is(handleErr, exposition.ErrWrite):
		action.log.Warn("metrics response write failed",
			"remote", request.RemoteAddr,
			"err", handleErr,
		)
		panic(http.ErrAbortHandler)
	case errors.Is(handleErr, auth.ErrInsufficientPrivileges):
		action.log.Debug("metrics request denied", "remote", request.RemoteAddr)
	default:
		action.log.Error("metrics request failed", "remote", request.RemoteAddr, "err", handleErr)
	}
}

// Handle serves one request and reports its outcome. The response has always
// been written when it returns; a non-nil error tells the caller why it is not
// a success:
//
//   - auth.ErrInsufficientPrivileges: 403 sent, the registry was not read.
//   - ErrGather: 500 sent before any metric data.
//   - exposition.ErrWrite: 200 and part of the body may have been sent.
func (action *MetricsAction) Handle(responseWriter http.ResponseWriter, request *http.Request) error {
	if request.Method != http.MethodGet {
		responseWriter.Header().Set("Allow", http.MethodGet)
		webapi.WriteError(responseWriter, http.StatusMethodNotAllowed, methodNotAllowedMessage)

		return nil
	}

	decision, authErr := action.gate.Authorize(request)
	if authErr != nil {
		webapi.WriteError(responseWriter, http.StatusForbidden, insufficientPrivilegesMessage)

		return fmt.Errorf("authorize metrics request: %w", authErr)
	}

	format := exposition.Negotiate(request.Header.Get("Accept"))

	families, snapshotErr := action.registry.Snapshot()
	if snapshotErr != nil {
		webapi.WriteError(responseWriter, http.StatusInternalServerError, gatherFailedMessage)

		return fmt.Errorf("%w: %w", ErrGather, snapshotErr)
	}

	writeErr := exposition.Write(responseWriter, format, families)
	if writeErr != nil {
		return writeErr
	}

	action.log.Debug("metrics served",
		"scheme", decision.Scheme,
		"format", string(format),
		"families", len(families),
	)

	return nil
}
