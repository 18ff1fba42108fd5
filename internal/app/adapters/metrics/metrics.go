package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatConnected is 1 while the chat session is connected.
	ChatConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bot_chat_connected",
		Help: "Whether the chat session is connected (1) or not (0)",
	})

	StreamLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bot_stream_live",
		Help: "Whether the joined channel is live (1) or offline (0)",
	})

	MessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_messages_total",
		Help: "Total number of chat messages processed",
	})

	// CommandsTotal counts dispatched commands by name.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of commands dispatched per command",
		},
		[]string{"command"},
	)

	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_moderation_actions_total",
			Help: "Number of blocked messages per reason",
		},
		[]string{"reason"},
	)

	PointsMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_points_mutations_total",
			Help: "Number of points ledger mutations per operation",
		},
		[]string{"op"},
	)

	EventSubNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_eventsub_notifications_total",
			Help: "Number of EventSub notifications dispatched per subscription type",
		},
		[]string{"type"},
	)

	TimersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_timers_fired_total",
			Help: "Number of chat timers fired per timer",
		},
		[]string{"timer"},
	)

	// MessageProcessingTime is registered by the composition root.
	MessageProcessingTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_message_processing_seconds",
			Help:    "Time to process one chat message",
			Buckets: prometheus.ExponentialBuckets(0.00005, 1.5, 25),
		},
	)
)

func Bool(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
