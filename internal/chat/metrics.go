package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_sessions",
		Help: "Number of currently open connections",
	})

	RoomMembers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_room_members",
		Help: "Number of sessions joined to the room",
	})

	HistorySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_history_size",
		Help: "Messages currently held by the history ring",
	})

	FramesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_frames_total",
		Help: "Total inbound frames processed by type",
	}, []string{"type"})

	BroadcastFanout = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_broadcast_fanout_seconds",
		Help:    "Time to fan one message out to the room",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(RoomMembers)
	prometheus.MustRegister(HistorySize)
	prometheus.MustRegister(FramesTotal)
	prometheus.MustRegister(BroadcastFanout)
}
