// Package cleanup は既読通知の自動削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過した既読通知を日次バッチで削除する。
// 未読の通知は保持期間に関係なく残す。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/freshtrack/internal/metrics"
)

// NotificationPurger は既読通知の一括削除を抽象化するインターフェース。
type NotificationPurger interface {
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

// CleanupJob は保持期間を超過した既読通知の自動削除ジョブ。
// 削除対象がなくてもエラーにならない。
type CleanupJob struct {
	purger        NotificationPurger
	metrics       metrics.MetricsCollector
	logger        *slog.Logger
	RetentionDays int // 既読通知の保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(purger NotificationPurger, m metrics.MetricsCollector, logger *slog.Logger) *CleanupJob {
	if m == nil {
		m = metrics.Nop{}
	}
	return &CleanupJob{
		purger:        purger,
		metrics:       m,
		logger:        logger,
		RetentionDays: 30,
	}
}

// Run はnowからRetentionDays日より前に作成された既読通知を削除する。
func (j *CleanupJob) Run(ctx context.Context, now time.Time) error {
	start := time.Now()
	before := now.AddDate(0, 0, -j.RetentionDays)

	deletedCount, err := j.purger.DeleteReadBefore(ctx, before)
	if err != nil {
		j.logger.Error("通知クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("通知クリーンアップの実行に失敗: %w", err)
	}
	j.metrics.RecordNotificationsPurged(deletedCount)

	duration := time.Since(start)
	j.logger.Info("通知クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return nil
}

// Start はinterval間隔でRunを実行する。起動直後にも1回実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("通知クリーンアップを開始しました",
		slog.Duration("interval", interval),
	)

	// 失敗はRun内でログ出力済み
	_ = j.Run(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("通知クリーンアップを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx, time.Now())
		}
	}
}
