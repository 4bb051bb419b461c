// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMetricsRegistry creates a Prometheus registry with the Go runtime and
// process collectors.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// MetricsHandler returns the HTTP handler serving reg.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// RegisterMetrics exposes s and the bus size through reg. The collectors
// read the atomic counters on scrape, so the poll loop never touches
// Prometheus types.
func RegisterMetrics(reg prometheus.Registerer, s *Statistics, bus *Bus) error {
	counter := func(name, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "hapsim",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(v.Load()) })
	}

	cs := []prometheus.Collector{
		counter("link_frames_in_total", "Frames received from the host.", &s.LinkFramesIn),
		counter("link_frames_out_total", "Frames sent to the host.", &s.LinkFramesOut),
		counter("bus_broadcasts_total", "Messages broadcast on the bus.", &s.Broadcasts),
		counter("bus_deliveries_total", "Messages delivered to bus nodes.", &s.Deliveries),
		counter("responses_total", "Responses generated by emulated modules.", &s.Responses),
		counter("invalid_frames_total", "Link frames dropped for bad framing.", &s.InvalidFrames),
		counter("checksum_errors_total", "Link frames dropped for a bad checksum.", &s.ChecksumErrors),
		counter("unknown_frames_total", "Link frames of an unregistered type.", &s.UnknownTypes),
		counter("memory_errors_total", "Failed memory programming commands.", &s.MemoryErrors),
		counter("link_errors_total", "Link write failures.", &s.LinkErrors),
	}
	if bus != nil {
		cs = append(cs, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "hapsim",
			Name:      "bus_nodes",
			Help:      "Nodes attached to the bus.",
		}, func() float64 { return float64(len(bus.Nodes())) }))
	}

	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
