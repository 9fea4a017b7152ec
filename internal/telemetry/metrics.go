// Package telemetry 提供 Prometheus 指标和 zerolog 日志初始化
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 生成循环
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsim_cycles_total",
			Help: "Generation loop cycles by result",
		},
		[]string{"result"}, // "ok", "error", "paused"
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsim_llm_requests_total",
			Help: "Chat completion requests by result",
		},
		[]string{"result"}, // "ok", "error"
	)

	LLMRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatsim_llm_request_duration_seconds",
			Help:    "Chat completion request duration",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 15, 30, 60},
		},
	)

	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsim_captures_total",
			Help: "Screenshot attempts by result",
		},
		[]string{"result"}, // "ok", "no_window", "error"
	)

	// 聊天
	LinesPostedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsim_lines_posted_total",
			Help: "Chat lines posted by source",
		},
		[]string{"source"},
	)

	HistoryLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatsim_history_length",
			Help: "Current number of lines in the history buffer",
		},
	)

	// 外部连接
	OverlayClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatsim_overlay_clients",
			Help: "Connected overlay websocket clients",
		},
	)

	RelayDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsim_relay_dropped_total",
			Help: "Twitch messages dropped by the relay rate limit",
		},
	)
)

// ObserveSince 记录从 start 到现在的耗时
func ObserveSince(obs prometheus.Observer, start time.Time) time.Duration {
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}
