// Package metrics registers the prometheus collectors for the console server
// and the game loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	startTime = time.Now()

	Uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "outpost_uptime_seconds",
			Help: "Console server uptime in seconds",
		}, func() float64 {
			return time.Since(startTime).Seconds()
		})

	ConnectionErrs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_websocket_connection_errors",
			Help: "Number of connection errors",
		})

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outpost_game_active_sessions",
			Help: "Current number of connected game sessions",
		},
	)

	TotalSessions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_game_total_sessions",
			Help: "Total number of game sessions ever created",
		},
	)

	ActiveBases = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outpost_game_active_bases",
			Help: "Current number of bases with at least one player in range",
		},
	)

	BaseActivations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_game_base_activations_total",
			Help: "Total number of base activation events",
		},
	)

	ReconcileTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_game_reconcile_ticks_total",
			Help: "Total number of completed reconciliation ticks",
		},
	)

	ReconcileAborts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_game_reconcile_aborts_total",
			Help: "Total number of reconciliation ticks abandoned on gateway failure",
		},
	)

	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outpost_game_reconcile_duration_seconds",
			Help:    "Duration of reconciliation ticks in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	IncomeApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_game_income_applied_total",
			Help: "Total amount of income credited to players",
		},
	)

	MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_game_messages_received_total",
			Help: "Total number of messages received by command",
		},
		[]string{"command"},
	)

	InvalidPayloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_game_invalid_payloads_total",
			Help: "Total number of invalid payloads received",
		},
	)

	NotificationsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_game_notifications_sent_total",
			Help: "Total number of base activation notifications sent",
		},
	)

	FailedMessageSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_game_failed_message_sends_total",
			Help: "Total number of failed message sends per reason",
		},
		[]string{"reason"},
	)

	GatewayFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_game_gateway_failures_total",
			Help: "Total number of persistence gateway failures by operation",
		},
		[]string{"operation"},
	)

	WebSocketDisconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_game_websocket_disconnects_total",
			Help: "Total number of websocket disconnects by reason",
		},
		[]string{"reason"},
	)
)

func InitConsole() {
	prometheus.MustRegister(Uptime, ConnectionErrs)
}

func InitGame() {
	prometheus.MustRegister(
		ActiveSessions,
		TotalSessions,
		ActiveBases,
		BaseActivations,
		ReconcileTicks,
		ReconcileAborts,
		ReconcileDuration,
		IncomeApplied,
		MessagesReceived,
		InvalidPayloads,
		NotificationsSent,
		FailedMessageSends,
		GatewayFailures,
		WebSocketDisconnects,
	)
}
