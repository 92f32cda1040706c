package metrics

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anjani_updates_total",
			Help: "Processed Telegram updates by kind (message/callback/chat_action/other).",
		},
		[]string{"kind"},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anjani_commands_total",
			Help: "Dispatched commands by name and outcome.",
		},
		[]string{"command", "success"},
	)

	commandLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anjani_command_latency_ms",
			Help:    "Command handler latency distribution in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600, 3000},
		},
		[]string{"command"},
	)

	floodDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "anjani_flood_drops_total",
			Help: "Commands dropped by the anti-flood limiter.",
		},
	)

	spamVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anjani_spam_verdicts_total",
			Help: "Spam checks by source (cas/spamwatch/predict) and verdict.",
		},
		[]string{"source", "verdict"},
	)

	fedBansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anjani_fed_bans_total",
			Help: "Federation ban actions (ban/unban/enforce).",
		},
		[]string{"action"},
	)

	mongoOpLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anjani_mongo_op_latency_ms",
			Help:    "MongoDB operation latency distribution in milliseconds.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"collection", "op"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			updatesTotal, commandsTotal, commandLatencyMs,
			floodDropsTotal, spamVerdictsTotal, fedBansTotal,
			mongoOpLatencyMs,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncUpdate(kind string) {
	updatesTotal.WithLabelValues(norm(kind)).Inc()
}

func ObserveCommand(name string, latencyMs int64, success bool) {
	commandsTotal.WithLabelValues(norm(name), strconv.FormatBool(success)).Inc()
	commandLatencyMs.WithLabelValues(norm(name)).Observe(float64(latencyMs))
}

func IncFloodDrop() { floodDropsTotal.Inc() }

func IncSpamVerdict(source, verdict string) {
	spamVerdictsTotal.WithLabelValues(norm(source), norm(verdict)).Inc()
}

func IncFedBan(action string) {
	fedBansTotal.WithLabelValues(norm(action)).Inc()
}

func ObserveMongoOp(collection, op string, latencyMs int64) {
	mongoOpLatencyMs.WithLabelValues(norm(collection), norm(op)).Observe(float64(latencyMs))
}
