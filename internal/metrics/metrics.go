// Package metrics centralizes the Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the realtime layer:
//   - current number of registered (online) users
//   - domain events pushed per event name
//   - events dropped because a client's send buffer was full
type Metrics struct {
	// OnlineUsers is a gauge of presence table size.
	OnlineUsers prometheus.Gauge

	// EventsDelivered counts events handed to a live session.
	// Labels: event (getOnlineUsers|newMessage|messageUpdated|messageDeleted)
	EventsDelivered *prometheus.CounterVec

	// EventsDropped counts events lost to a slow client.
	// Labels: event
	EventsDropped *prometheus.CounterVec
}

// New creates and registers all collectors against reg. Pass
// prometheus.DefaultRegisterer in main; tests use a throwaway registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OnlineUsers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sidechat_online_users",
			Help: "Number of users currently registered in the presence table.",
		}),
		EventsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sidechat_events_delivered_total",
			Help: "Realtime events handed to a connected session.",
		}, []string{"event"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sidechat_events_dropped_total",
			Help: "Realtime events dropped due to a full send buffer.",
		}, []string{"event"}),
	}
}
