package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parley_connections_total",
		Help: "WebSocket connections accepted.",
	})
	MessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parley_messages_total",
		Help: "Chat messages accepted and broadcast.",
	})
	RoomsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parley_rooms_created_total",
		Help: "Rooms created by clients.",
	})
	RoomsReclaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parley_rooms_reclaimed_total",
		Help: "Idle rooms removed by the sweep.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
