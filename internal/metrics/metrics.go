// Package metrics holds the Prometheus collectors for the signaling relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveRooms tracks the number of rooms currently in the registry.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_active_rooms",
		Help: "Number of rooms currently held in the registry.",
	})

	// ActiveConnections tracks open websocket connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_active_connections",
		Help: "Number of open websocket connections.",
	})

	// RelayedMessages counts frames relayed to room members, by message type.
	RelayedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_relayed_messages_total",
		Help: "Messages relayed to room members, labeled by message type.",
	}, []string{"type"})

	// RejectedConnections counts connections refused by admission control.
	RejectedConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signaling_rejected_connections_total",
		Help: "Connections refused by admission control.",
	})
)

// Handler exposes the default Prometheus registry at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
