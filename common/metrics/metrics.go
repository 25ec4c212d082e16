package metrics

import (
	"net/http"

	"github.com/arl/statsviz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "majsoul"

var (
	// RpcCalls 按方法和结果（ok / error / canceled / aborted）统计
	RpcCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total number of rpc calls by method and result",
	}, []string{"method", "result"})

	PendingCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "pending_calls",
		Help:      "Number of rpc calls waiting for a response",
	})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "notifications_total",
		Help:      "Total number of notifications by message type",
	}, []string{"type"})

	ParsedRounds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "parser",
		Name:      "rounds_total",
		Help:      "Total number of parsed rounds by outcome",
	}, []string{"outcome"})

	ParsedGames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "parser",
		Name:      "games_total",
		Help:      "Total number of game records by parse result",
	}, []string{"result"})

	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conn",
		Name:      "reconnects_total",
		Help:      "Total number of websocket reconnections",
	})
)

// Serve 启动监控服务：/debug/statsviz/ 运行时面板，/metrics prometheus 指标
func Serve(addr string) error {
	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		return err
	}
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
