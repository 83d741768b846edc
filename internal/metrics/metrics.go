package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command metrics
var (
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_commands_total",
		Help: "Total number of commands handled",
	}, []string{"command", "outcome"})

	UpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_updates_total",
		Help: "Total number of updates received from the platform",
	})
)

// Moderation metrics
var (
	ModerationActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_moderation_actions_total",
		Help: "Total number of moderation actions executed",
	}, []string{"action", "outcome"})

	MuteExpiriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_mute_expiries_total",
		Help: "Total number of mutes reversed by the expiry scheduler",
	})

	SchedulerScanErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_scheduler_scan_errors_total",
		Help: "Total number of failed mute-expiry scans",
	})

	SchedulerDegraded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_scheduler_degraded",
		Help: "Whether the expiry scheduler is on its shortened retry interval (1=yes)",
	})
)

// Bot API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_api_requests_total",
		Help: "Total number of Bot API calls by method and outcome",
	}, []string{"method", "outcome"})
)
