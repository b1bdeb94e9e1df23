// Package metrics provides Prometheus metrics for the desktop scanning pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ForegroundEventsTotal counts foreground-change notifications received from the platform hook.
	ForegroundEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iconwatch_foreground_events_total",
		Help: "Total number of foreground window change notifications.",
	})

	// DesktopDetectionsTotal counts notifications where the desktop was the new foreground window.
	DesktopDetectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iconwatch_desktop_detections_total",
		Help: "Total number of foreground changes to the desktop shell window.",
	})

	// ScansTotal counts completed enumerations by outcome (ok, failed, discarded).
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iconwatch_scans_total",
		Help: "Total number of desktop enumerations, by outcome.",
	}, []string{"outcome"})

	// ScanDuration observes how long enumerations take.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "iconwatch_scan_duration_seconds",
		Help:    "Duration of desktop enumerations.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	// ScansInFlight tracks enumerations currently running on worker goroutines.
	ScansInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iconwatch_scans_in_flight",
		Help: "Current number of running desktop enumerations.",
	})

	// DesktopIcons holds the icon count of the last published enumeration.
	DesktopIcons = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iconwatch_desktop_icons",
		Help: "Number of desktop icons in the last published enumeration.",
	})
)

// RecordScan records a completed enumeration.
func RecordScan(outcome string, took time.Duration, count int) {
	ScansTotal.WithLabelValues(outcome).Inc()
	ScanDuration.Observe(took.Seconds())
	if outcome == "ok" {
		DesktopIcons.Set(float64(count))
	}
}
