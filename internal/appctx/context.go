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

// Package appctx holds the process-wide application context. It owns the
// metrics registry so that nothing in the binary touches the implicit
// prometheus.DefaultRegisterer.
package appctx

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
)

const (
	buildInfoNamespace = "safemode"
	buildInfoSubsystem = "monitoring"

	// BuildInfoName is the fully qualified name of the build info gauge.
	BuildInfoName = buildInfoNamespace + "_" + buildInfoSubsystem + "_build_info"
)

// ErrDuplicateMetric is returned when a metric name is registered twice.
// It is a startup configuration error and must abort process initialization.
var ErrDuplicateMetric = errors.New("metric already registered")

// Context is created once per process and shared by every component that
// registers or reads metrics. It is safe for concurrent use.
type Context struct {
	registry   *prometheus.Registry
	registerer prometheus.Registerer

	mutex sync.Mutex
	names map[string]struct{}
}

// New returns a Context with an empty registry. constLabels, when non-empty,
// are attached to every metric registered through the context.
func New(constLabels prometheus.Labels) *Context {
	registry := prometheus.NewRegistry()

	var registerer prometheus.Registerer = registry
	if len(constLabels) > 0 {
		registerer = prometheus.WrapRegistererWith(constLabels, registry)
	}

	return &Context{
		registry:   registry,
		registerer: registerer,
		names:      make(map[string]struct{}),
	}
}

// RegisterGauge creates and registers a gauge. The returned handle is the
// only way to set its value.
func (appContext *Context) RegisterGauge(opts prometheus.GaugeOpts) (prometheus.Gauge, error) {
	name := prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)
	gauge := prometheus.NewGauge(opts)

	registerErr := appContext.register(name, gauge)
	if registerErr != nil {
		return nil, registerErr
	}

	return gauge, nil
}

// RegisterBuildInfo registers safemode_monitoring_build_info with the
// version, commit and date labels, set to 1.
func (appContext *Context) RegisterBuildInfo(version, commit, date string) error {
	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: buildInfoNamespace,
		Subsystem: buildInfoSubsystem,
		Name:      "build_info",
		Help:      "Build information for this binary.",
	}, []string{"version", "commit", "date"})

	registerErr := appContext.register(BuildInfoName, buildInfo)
	if registerErr != nil {
		return registerErr
	}

	buildInfo.WithLabelValues(version, commit, date).Set(1)

	return nil
}

// register adds collector under name exactly once.
func (appContext *Context) register(name string, collector prometheus.Collector) error {
	appContext.mutex.Lock()
	defer appContext.mutex.Unlock()

	if _, exists := appContext.names[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMetric, name)
	}

	registerErr := appContext.registerer.Register(collector)
	if registerErr != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(registerErr, &alreadyRegistered) {
			return fmt.Errorf("%w: %s", ErrDuplicateMetric, name)
		}

		return fmt.Errorf("register %s: %w", name, registerErr)
	}

	appContext.names[name] = struct{}{}

	return nil
}

// RegisterRuntimeCollectors adds the Go runtime and process collectors.
// Calling it twice fails with ErrDuplicateMetric.
func (appContext *Context) RegisterRuntimeCollectors() error {
	for _, collector := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		registerErr := appContext.registerer.Register(collector)
		if registerErr == nil {
			continue
		}

		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(registerErr, &alreadyRegistered) {
			return fmt.Errorf("%w: runtime collectors", ErrDuplicateMetric)
		}

		return fmt.Errorf("register runtime collectors: %w", registerErr)
	}

	return nil
}

// Snapshot gathers every registered family, sorted by name. The result is a
// point-in-time copy; mutating it does not affect the registry.
func (appContext *Context) Snapshot() ([]*dto.MetricFamily, error) {
	families, gatherErr := appContext.registry.Gather()
	if gatherErr != nil {
		return families, fmt.Errorf("gather metrics: %w", gatherErr)
	}

	return families, nil
}

// GaugeValue reads the current value of a gauge handle.
func GaugeValue(gauge prometheus.Gauge) float64 {
	var metric dto.Metric

	if writeErr := gauge.Write(&metric); writeErr != nil {
		return 0
	}

	return metric.GetGauge().GetValue()
}
