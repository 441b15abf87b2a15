package expiring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Start はcron式scheduleに従ってRunOnceを繰り返し実行する。
// コンテキストがキャンセルされるまでブロックし、実行中のスイープの完了を待って戻る。
// 前回のスイープが終わっていない時刻は実行をスキップする。
func (j *Job) Start(ctx context.Context, schedule string) error {
	clog := cronLogger{logger: j.logger}
	c := cron.New(
		cron.WithLocation(j.location),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	if _, err := c.AddFunc(schedule, func() { j.runScheduled(ctx) }); err != nil {
		return fmt.Errorf("スイープのスケジュール式が不正です %q: %w", schedule, err)
	}

	j.logger.Info("賞味期限チェックのスケジューラを開始しました",
		slog.String("schedule", schedule),
		slog.String("location", j.location.String()),
	)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("賞味期限チェックのスケジューラを停止しました")
	return nil
}

func (j *Job) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := j.RunOnce(ctx, time.Now()); err != nil {
		j.logger.Error("賞味期限チェックの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// cronLogger はcron.Loggerをslogに橋渡しする。
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)...)
}
