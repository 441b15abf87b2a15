// Package expiring は賞味期限が近い食材の通知スイープを提供する。
// ユーザーごとに有効な食材を走査し、1食材1日1件の ITEM_EXPIRING 通知を作成して
// プッシュ通知に転送する。
package expiring

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/freshtrack/internal/freshness"
	"github.com/hitoshi/freshtrack/internal/metrics"
	"github.com/hitoshi/freshtrack/internal/model"
	"github.com/hitoshi/freshtrack/internal/push"
	"github.com/hitoshi/freshtrack/internal/repository"
)

// notifyDateLayout は重複排除に使う暦日の書式。
const notifyDateLayout = "2006-01-02"

// Notifier はプッシュ通知の送信先。
type Notifier interface {
	Send(ctx context.Context, msg push.Message) error
}

// Result は1回のスイープの集計。
type Result struct {
	UsersChecked int // 通知対象として走査したユーザー数
	UsersSkipped int // 通知を無効にしているユーザー数
	UsersFailed  int // 処理が途中で失敗したユーザー数
	Created      int
	Duplicates   int // 同日の通知が既にあり作成しなかった件数
	PushFailures int
}

func (r *Result) add(o userResult) {
	r.Created += o.created
	r.Duplicates += o.duplicates
	r.PushFailures += o.pushFailures
}

type userResult struct {
	created      int
	duplicates   int
	pushFailures int
}

// Job は賞味期限通知のスイープジョブ。
type Job struct {
	users          repository.UserRepository
	items          repository.ItemRepository
	notifications  repository.NotificationRepository
	notifier       Notifier
	location       *time.Location
	metrics        metrics.MetricsCollector
	logger         *slog.Logger
	maxConcurrency int
}

// NewJob はJobを生成する。
// notifierがnilの場合はプッシュ通知を送らない。
// locationは「同じ日」の判定に使うタイムゾーン。nilの場合はtime.Local。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewJob(
	users repository.UserRepository,
	items repository.ItemRepository,
	notifications repository.NotificationRepository,
	notifier Notifier,
	location *time.Location,
	m metrics.MetricsCollector,
	logger *slog.Logger,
	maxConcurrency int,
) *Job {
	if location == nil {
		location = time.Local
	}
	if m == nil {
		m = metrics.Nop{}
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Job{
		users:          users,
		items:          items,
		notifications:  notifications,
		notifier:       notifier,
		location:       location,
		metrics:        m,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// RunOnce はnow時点で全ユーザーを1回スイープする。
// ユーザー一覧の取得に失敗した場合のみエラーを返す。
// 個々のユーザーの失敗はログに記録し、Result.UsersFailedに数える。
func (j *Job) RunOnce(ctx context.Context, now time.Time) (Result, error) {
	start := time.Now()
	var result Result

	users, err := j.users.ListAll(ctx)
	if err != nil {
		j.metrics.RecordSweepRun(metrics.OutcomeFailure, time.Since(start))
		return result, fmt.Errorf("ユーザー一覧の取得に失敗: %w", err)
	}

	notifyDate := now.In(j.location).Format(notifyDateLayout)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, j.maxConcurrency)
	)
	var checked, skipped int
	for _, user := range users {
		prefs := model.ParsePreferences(user.Preferences)
		if !prefs.NotificationsEnabled() || !prefs.ExpiringItemsEnabled() {
			skipped++
			continue
		}
		checked++
		warningDays := prefs.WarningDays(freshness.DefaultWarningDays)

		wg.Add(1)
		sem <- struct{}{}
		go func(u *model.User) {
			defer wg.Done()
			defer func() { <-sem }()

			ur, err := j.sweepUser(ctx, u.ID, warningDays, now, notifyDate)

			mu.Lock()
			defer mu.Unlock()
			result.add(ur)
			if err != nil {
				result.UsersFailed++
				j.logger.Error("ユーザーの賞味期限チェックに失敗しました",
					slog.String("user_id", u.ID),
					slog.String("error", err.Error()),
				)
			}
		}(user)
	}
	wg.Wait()
	result.UsersChecked = checked
	result.UsersSkipped = skipped

	outcome := metrics.OutcomeSuccess
	if result.UsersFailed > 0 {
		outcome = metrics.OutcomeFailure
	}
	duration := time.Since(start)
	j.metrics.RecordSweepRun(outcome, duration)
	j.metrics.RecordNotificationsCreated(result.Created)
	j.metrics.RecordDuplicatesSuppressed(result.Duplicates)

	j.logger.Info("賞味期限チェックが完了しました",
		slog.String("notify_date", notifyDate),
		slog.Int("users_checked", result.UsersChecked),
		slog.Int("users_skipped", result.UsersSkipped),
		slog.Int("users_failed", result.UsersFailed),
		slog.Int("created", result.Created),
		slog.Int("duplicates", result.Duplicates),
		slog.Int("push_failures", result.PushFailures),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return result, nil
}

// sweepUser は1ユーザー分の食材を処理する。
// パニックはこのユーザーの失敗として回収し、他のユーザーの処理を継続させる。
func (j *Job) sweepUser(ctx context.Context, userID string, warningDays int, now time.Time, notifyDate string) (ur userResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	items, err := j.items.ListActiveByUser(ctx, userID)
	if err != nil {
		return ur, fmt.Errorf("食材一覧の取得に失敗: %w", err)
	}

	for _, item := range items {
		if item.ItemType == nil {
			continue
		}
		if !freshness.IsExpiringSoon(item, item.ItemType, warningDays, now) {
			continue
		}

		exists, err := j.notifications.ExistsForDay(ctx, userID, item.ID, model.NotificationTypeItemExpiring, notifyDate)
		if err != nil {
			return ur, err
		}
		if exists {
			ur.duplicates++
			continue
		}

		n := newExpiringNotification(userID, item, freshness.DaysUntilExpiration(item, item.ItemType, now), now)
		created, err := j.notifications.CreateForDay(ctx, n, notifyDate)
		if err != nil {
			return ur, err
		}
		if !created {
			// 並行実行中の別スイープが先に作成した
			ur.duplicates++
			continue
		}
		ur.created++

		j.logger.Info("賞味期限通知を作成しました",
			slog.String("user_id", userID),
			slog.String("item_id", item.ID),
			slog.String("status", string(item.Status)),
			slog.Int("days_until", n.Metadata.DaysUntil),
		)

		if j.notifier == nil {
			continue
		}
		if err := j.notifier.Send(ctx, push.Message{
			UserID: userID,
			Title:  n.Title,
			Body:   n.Message,
			Data:   map[string]any{"itemId": item.ID},
		}); err != nil {
			ur.pushFailures++
			j.logger.Warn("プッシュ通知の送信に失敗しました",
				slog.String("user_id", userID),
				slog.String("item_id", item.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return ur, nil
}

// newExpiringNotification は食材の状態に応じた文面で通知を組み立てる。
func newExpiringNotification(userID string, item *model.Item, daysUntil int, now time.Time) *model.Notification {
	title, message := expiringText(item.Name, item.Status, daysUntil)
	return &model.Notification{
		UserID:  userID,
		ItemID:  item.ID,
		Type:    model.NotificationTypeItemExpiring,
		Title:   title,
		Message: message,
		Metadata: model.NotificationMetadata{
			DaysUntil:     daysUntil,
			CurrentStatus: item.Status,
			ItemName:      item.Name,
		},
		CreatedAt: now,
	}
}

// expiringText はOLDの食材には "going bad"、それ以外には "expiring soon" の文面を返す。
func expiringText(name string, status model.ItemStatus, daysUntil int) (title, message string) {
	urgency, verb := "expiring soon", "expire"
	if status == model.ItemStatusOld {
		urgency, verb = "going bad", "go bad"
	}
	unit := "days"
	if daysUntil == 1 {
		unit = "day"
	}
	title = fmt.Sprintf("%s %s!", name, urgency)
	message = fmt.Sprintf("Your %s will %s in %d %s", name, verb, daysUntil, unit)
	return title, message
}
