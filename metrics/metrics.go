// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package metrics holds the meters of the ledger host. Meters discard
// their samples until InitializePrometheusMetrics is called.
package metrics

import (
	"net/http"
	"sync"
)

type CountMeter interface {
	Add(int64)
}

type CountVecMeter interface {
	AddWithLabel(int64, map[string]string)
}

type GaugeMeter interface {
	Set(int64)
}

type HistogramMeter interface {
	Observe(int64)
}

type HistogramVecMeter interface {
	ObserveWithLabels(int64, map[string]string)
}

var (
	// BucketGas covers the resource units consumed by one invocation.
	BucketGas = []int64{
		0, 10_000, 50_000, 100_000, 250_000, 500_000,
		1_000_000, 2_500_000, 5_000_000, 10_000_000, 50_000_000,
	}
	// BucketDuration covers invocation wall time in microseconds.
	BucketDuration = []int64{0, 50, 100, 250, 500, 1000, 2500, 5000, 10_000, 50_000}
)

// registry hands out meters by name. A name always maps to the same
// underlying meter.
type registry interface {
	counter(name string) CountMeter
	counterVec(name string, labels []string) CountVecMeter
	gauge(name string) GaugeMeter
	histogram(name string, buckets []int64) HistogramMeter
	histogramVec(name string, labels []string, buckets []int64) HistogramVecMeter
	handler() http.Handler
}

var active registry = discard{}

// NoOp reports whether samples are currently dropped.
func NoOp() bool {
	_, ok := active.(discard)
	return ok
}

// HTTPHandler serves the scrape endpoint, or returns nil while NoOp.
func HTTPHandler() http.Handler { return active.handler() }

func Counter(name string) CountMeter { return active.counter(name) }

func CounterVec(name string, labels []string) CountVecMeter {
	return active.counterVec(name, labels)
}

func Gauge(name string) GaugeMeter { return active.gauge(name) }

func Histogram(name string, buckets []int64) HistogramMeter {
	return active.histogram(name, buckets)
}

func HistogramVec(name string, labels []string, buckets []int64) HistogramVecMeter {
	return active.histogramVec(name, labels, buckets)
}

// LazyLoad defers building a meter to its first use, so package level
// meters bind to the registry active at that time.
func LazyLoad[T any](f func() T) func() T {
	return sync.OnceValue(f)
}

func LazyLoadCounter(name string) func() CountMeter {
	return LazyLoad(func() CountMeter { return Counter(name) })
}

func LazyLoadCounterVec(name string, labels []string) func() CountVecMeter {
	return LazyLoad(func() CountVecMeter { return CounterVec(name, labels) })
}

func LazyLoadGauge(name string) func() GaugeMeter {
	return LazyLoad(func() GaugeMeter { return Gauge(name) })
}

func LazyLoadHistogram(name string, buckets []int64) func() HistogramMeter {
	return LazyLoad(func() HistogramMeter { return Histogram(name, buckets) })
}

func LazyLoadHistogramVec(name string, labels []string, buckets []int64) func() HistogramVecMeter {
	return LazyLoad(func() HistogramVecMeter { return HistogramVec(name, labels, buckets) })
}

// discard is the registry in place before InitializePrometheusMetrics.
type discard struct{}

func (discard) counter(string) CountMeter                                { return discardMeter{} }
func (discard) counterVec(string, []string) CountVecMeter                { return discardMeter{} }
func (discard) gauge(string) GaugeMeter                                  { return discardMeter{} }
func (discard) histogram(string, []int64) HistogramMeter                 { return discardMeter{} }
func (discard) histogramVec(string, []string, []int64) HistogramVecMeter { return discardMeter{} }
func (discard) handler() http.Handler                                    { return nil }

type discardMeter struct{}

func (discardMeter) Add(int64)                                  {}
func (discardMeter) AddWithLabel(int64, map[string]string)      {}
func (discardMeter) Set(int64)                                  {}
func (discardMeter) Observe(int64)                              {}
func (discardMeter) ObserveWithLabels(int64, map[string]string) {}
