package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Notification deliveries by channel, kind and outcome",
		},
		[]string{"channel", "kind", "status"},
	)

	websocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_websocket_clients",
			Help: "Currently connected websocket clients",
		},
	)
)

func RecordDelivery(channel string, kind Kind, status string) {
	deliveriesTotal.WithLabelValues(channel, string(kind), status).Inc()
}
