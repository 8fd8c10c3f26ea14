package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var conversationsOpened = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "messaging_match_conversations_total",
		Help: "Conversations requested for confirmed matches",
	},
	[]string{"outcome"}, // created, existing
)

func RecordConversationOpened(created bool) {
	outcome := "existing"
	if created {
		outcome = "created"
	}
	conversationsOpened.WithLabelValues(outcome).Inc()
}
