// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/multiversx/mx-delegation-sc-sub000/log"
)

const namespace = "delegation_metrics"

var logger = log.WithContext("pkg", "metrics")

// InitializePrometheusMetrics routes all meters created from now on to
// the default Prometheus registerer. Calling it again keeps the current
// registry.
func InitializePrometheusMetrics() {
	if _, ok := active.(*promRegistry); !ok {
		active = &promRegistry{collectors: make(map[string]prometheus.Collector)}
	}
}

type promRegistry struct {
	mu         sync.Mutex
	collectors map[string]prometheus.Collector
}

// collector returns the collector registered under name, creating and
// registering it on first use. A collector already registered with
// Prometheus by an earlier registry is reused.
func collector[C prometheus.Collector](r *promRegistry, name string, create func() C) C {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.collectors[name].(C); ok {
		return c
	}
	c := create()
	if err := prometheus.Register(c); err != nil {
		var dup prometheus.AlreadyRegisteredError
		if errors.As(err, &dup) {
			if existing, ok := dup.ExistingCollector.(C); ok {
				c = existing
			}
		} else {
			logger.Warn("unable to register metric", "name", name, "err", err)
		}
	}
	r.collectors[name] = c
	return c
}

func floatBuckets(buckets []int64) []float64 {
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = float64(b)
	}
	return out
}

func (r *promRegistry) counter(name string) CountMeter {
	return promCounter{collector(r, name, func() prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name})
	})}
}

func (r *promRegistry) counterVec(name string, labels []string) CountVecMeter {
	return promCounterVec{collector(r, name, func() *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name}, labels)
	})}
}

func (r *promRegistry) gauge(name string) GaugeMeter {
	return promGauge{collector(r, name, func() prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name})
	})}
}

func (r *promRegistry) histogram(name string, buckets []int64) HistogramMeter {
	return promHistogram{collector(r, name, func() prometheus.Histogram {
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Buckets:   floatBuckets(buckets),
		})
	})}
}

func (r *promRegistry) histogramVec(name string, labels []string, buckets []int64) HistogramVecMeter {
	return promHistogramVec{collector(r, name, func() *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Buckets:   floatBuckets(buckets),
		}, labels)
	})}
}

func (r *promRegistry) handler() http.Handler { return promhttp.Handler() }

type promCounter struct{ c prometheus.Counter }

func (m promCounter) Add(n int64) { m.c.Add(float64(n)) }

type promCounterVec struct{ c *prometheus.CounterVec }

func (m promCounterVec) AddWithLabel(n int64, labels map[string]string) {
	m.c.With(labels).Add(float64(n))
}

type promGauge struct{ g prometheus.Gauge }

func (m promGauge) Set(n int64) { m.g.Set(float64(n)) }

type promHistogram struct{ h prometheus.Histogram }

func (m promHistogram) Observe(n int64) { m.h.Observe(float64(n)) }

type promHistogramVec struct{ h *prometheus.HistogramVec }

func (m promHistogramVec) ObserveWithLabels(n int64, labels map[string]string) {
	m.h.With(labels).Observe(float64(n))
}
