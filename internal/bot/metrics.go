// Package bot routes inbound Telegram updates to the application services.
//
// This file exposes Prometheus instrumentation for update processing. Label
// cardinality is kept bounded: command names come from a fixed set and
// outcomes are coarse ("ok", "denied", "error").
package bot

import "github.com/prometheus/client_golang/prometheus"

var (
	// updatesTotal counts inbound updates by how they were handled.
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of Telegram updates received.",
		},
		[]string{"result"}, // handled | duplicate | ignored
	)

	// videosRecorded counts video occurrences stored by the recorder.
	videosRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_videos_recorded_total",
			Help: "Total number of video occurrences recorded.",
		},
	)

	// commandsTotal counts command invocations by command and outcome.
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands processed.",
		},
		[]string{"command", "outcome"}, // outcome: ok | cooldown | denied | error
	)
)

func init() {
	prometheus.MustRegister(updatesTotal, videosRecorded, commandsTotal)
}
