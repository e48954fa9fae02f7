// Prometheus collectors (/metrics 로 노출)

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "remediator"

var (
	// Transitions - 커밋된 상태 전이 수 (from="" 은 신규 생성)
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "incident",
		Name:      "transitions_total",
		Help:      "Committed incident status transitions",
	}, []string{"from", "to"})

	// DispatchDuration - remediation 실행 소요 시간
	// Labels: outcome (completed, auto_remediated, failed, timeout)
	DispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "dispatch",
		Name:      "duration_seconds",
		Help:      "Remediation dispatch duration in seconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"outcome"})

	// LateResults - timeout 처리 이후 도착한 실행 결과 (적용하지 않고 기록만)
	LateResults = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dispatch",
		Name:      "late_results_total",
		Help:      "Execution results that arrived after the incident timed out",
	})

	// AdvisoryFallbacks - advisory 실패로 fallback 명령을 사용한 횟수
	// Labels: reason (unavailable, empty_response, no_fallback)
	AdvisoryFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "advisory",
		Name:      "fallbacks_total",
		Help:      "Advisory calls replaced by the category fallback",
	}, []string{"reason"})

	NotifierDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifier",
		Name:      "dropped_total",
		Help:      "Events dropped because a subscriber buffer was full",
	})

	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "notifier",
		Name:      "websocket_clients",
		Help:      "Currently connected websocket observers",
	})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-client rate limit",
	})
)
