// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 結果ラベルの値
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePruned  = "pruned"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordSweepRun(outcome string, duration time.Duration)
	RecordNotificationsCreated(count int)
	RecordDuplicatesSuppressed(count int)
	RecordPushDelivery(outcome string)
	RecordTransitionRequest(kind, outcome string)
	RecordNotificationsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	sweepRuns            *prometheus.CounterVec
	sweepDuration        prometheus.Histogram
	notificationsCreated prometheus.Counter
	duplicates           prometheus.Counter
	pushDeliveries       *prometheus.CounterVec
	transitionRequests   *prometheus.CounterVec
	notificationsPurged  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freshtrack_sweep_runs_total",
			Help: "期限間近スイープの実行回数",
		}, []string{"outcome"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "freshtrack_sweep_duration_seconds",
			Help:    "期限間近スイープ1回あたりの所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		notificationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freshtrack_notifications_created_total",
			Help: "作成された期限間近通知の合計数",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freshtrack_notifications_duplicate_total",
			Help: "同日の重複として作成を見送った通知の合計数",
		}),
		pushDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freshtrack_push_deliveries_total",
			Help: "Web Push配信の結果別の合計数",
		}, []string{"outcome"}),
		transitionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freshtrack_transition_requests_total",
			Help: "外部スケジューラへのステータス遷移リクエストの合計数",
		}, []string{"kind", "outcome"}),
		notificationsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freshtrack_notifications_purged_total",
			Help: "保持期間を過ぎて削除された既読通知の合計数",
		}),
	}

	reg.MustRegister(
		c.sweepRuns,
		c.sweepDuration,
		c.notificationsCreated,
		c.duplicates,
		c.pushDeliveries,
		c.transitionRequests,
		c.notificationsPurged,
	)

	return c
}

// RecordSweepRun はスイープ1回分の結果と所要時間を記録する。
func (c *Collector) RecordSweepRun(outcome string, duration time.Duration) {
	c.sweepRuns.WithLabelValues(outcome).Inc()
	c.sweepDuration.Observe(duration.Seconds())
}

// RecordNotificationsCreated は作成された通知数を記録する。
func (c *Collector) RecordNotificationsCreated(count int) {
	c.notificationsCreated.Add(float64(count))
}

// RecordDuplicatesSuppressed は重複として見送った通知数を記録する。
func (c *Collector) RecordDuplicatesSuppressed(count int) {
	c.duplicates.Add(float64(count))
}

// RecordPushDelivery は配信先1件ごとのWeb Push配信結果を記録する。
func (c *Collector) RecordPushDelivery(outcome string) {
	c.pushDeliveries.WithLabelValues(outcome).Inc()
}

// RecordTransitionRequest はスケジューラへのリクエスト結果を記録する。
// kindは遷移先ステータス（OLD, BAD）または remove。
func (c *Collector) RecordTransitionRequest(kind, outcome string) {
	c.transitionRequests.WithLabelValues(kind, outcome).Inc()
}

// RecordNotificationsPurged は削除された既読通知数を記録する。
func (c *Collector) RecordNotificationsPurged(count int64) {
	c.notificationsPurged.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。メトリクス不要なCLIコマンドやテストで使用する。
type Nop struct{}

func (Nop) RecordSweepRun(string, time.Duration)   {}
func (Nop) RecordNotificationsCreated(int)         {}
func (Nop) RecordDuplicatesSuppressed(int)         {}
func (Nop) RecordPushDelivery(string)              {}
func (Nop) RecordTransitionRequest(string, string) {}
func (Nop) RecordNotificationsPurged(int64)        {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
