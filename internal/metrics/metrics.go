// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label names
const (
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelStatus  = "status"
	LabelMode    = "mode"
	LabelOutcome = "outcome"
	LabelKind    = "kind"
)

// HTTPLatencyBuckets ranges from 1ms to 10s
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

// Business Metrics
var (
	TicketsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lottery_tickets_sold_total",
			Help: "Total number of tickets sold",
		},
	)

	SaleConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lottery_sale_conflicts_total",
			Help: "Sales rejected because the ticket number was already sold",
		},
	)

	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_resolutions_total",
			Help: "Winner resolutions by mode (enter, edit) and outcome",
		},
		[]string{LabelMode, LabelOutcome},
	)

	SMSAcknowledged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_sms_acknowledged_total",
			Help: "SMS sends acknowledged by operators, by notification kind",
		},
		[]string{LabelKind},
	)
)
