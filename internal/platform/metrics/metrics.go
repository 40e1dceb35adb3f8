package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	voteRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cineclube_vote_requests_total",
		Help: "Vote requests received, labeled by outcome",
	}, []string{"status"})

	windowsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cineclube_vote_windows_opened_total",
		Help: "Weekly vote windows opened",
	})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cineclube_notifications_dispatched_total",
		Help: "Notifications dispatched, labeled by push result",
	}, []string{"delivery"})

	liveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cineclube_hub_connections",
		Help: "Live push connections currently registered",
	})

	connectionTakeovers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cineclube_hub_takeovers_total",
		Help: "Subscriptions that evicted a previous connection for the same user",
	})

	pushFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cineclube_hub_push_failures_total",
		Help: "Best-effort pushes that failed and evicted the connection",
	})

	keepAliveRounds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cineclube_hub_keepalive_duration_seconds",
		Help:    "Time spent probing all live connections in one keep-alive round",
		Buckets: prometheus.DefBuckets,
	})
)

func ObserveVoteRequest(status string) {
	voteRequestsTotal.WithLabelValues(status).Inc()
}

func IncWindowOpened() {
	windowsOpenedTotal.Inc()
}

func ObserveNotification(delivered bool) {
	if delivered {
		notificationsTotal.WithLabelValues("pushed").Inc()
		return
	}
	notificationsTotal.WithLabelValues("stored_only").Inc()
}

func SetLiveConnections(n int) {
	liveConnections.Set(float64(n))
}

func IncConnectionTakeover() {
	connectionTakeovers.Inc()
}

func IncPushFailure() {
	pushFailuresTotal.Inc()
}

func ObserveKeepAliveRound(seconds float64) {
	keepAliveRounds.Observe(seconds)
}
