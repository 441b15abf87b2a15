// Package freshness は食材の賞味期限と鮮度状態を計算する。
// すべての関数は現在時刻を引数で受け取る純粋関数で、永続化やI/Oを行わない。
package freshness

import (
	"fmt"
	"math"
	"time"

	"github.com/hitoshi/freshtrack/internal/model"
)

const (
	// DisplayWarningDays は画面表示上「期限間近」と分類する残り日数。
	// 通知の閾値（DefaultWarningDays / ユーザー設定）とは独立した固定値。
	DisplayWarningDays = 2

	// DefaultWarningDays はユーザー設定が無い場合の通知閾値（残り日数）。
	DefaultWarningDays = 2

	// day は残り日数計算の単位。
	day = 24 * time.Hour

	// sentinelHorizon は賞味期限を追跡しない食材に返す仮の期限までの長さ。
	// 比較のためだけに使い、永続化してはならない。
	sentinelHorizon = 365 * day
)

// ExpirationStatus は表示用の鮮度分類。
type ExpirationStatus string

const (
	// StatusFresh は期限まで余裕がある状態。
	StatusFresh ExpirationStatus = "fresh"
	// StatusExpiringSoon は期限まで DisplayWarningDays 日以内の状態。
	StatusExpiringSoon ExpirationStatus = "expiring-soon"
	// StatusExpired は期限を過ぎた（または当日の）状態。
	StatusExpired ExpirationStatus = "expired"
)

// maxShelfLifeSeconds はtime.Durationで表せる最長の秒数（約292年）。
const maxShelfLifeSeconds = math.MaxInt64 / int64(time.Second)

// ShelfLife は食材種別の保存可能期間を返す。
// 種別が無い、または期間が0以下の場合はfalseを返す。
// time.Durationに収まらない期間は表現できる最長の期間に切り詰める。
func ShelfLife(itemType *model.ItemType) (time.Duration, bool) {
	if itemType == nil || itemType.SuggestedLifeSpanSeconds <= 0 {
		return 0, false
	}
	if itemType.SuggestedLifeSpanSeconds > maxShelfLifeSeconds {
		return time.Duration(math.MaxInt64), true
	}
	return time.Duration(itemType.SuggestedLifeSpanSeconds) * time.Second, true
}

// ExpirationDate は食材の賞味期限を返す。
// 賞味期限を追跡しない食材には now から365日後の仮の日時を返す。
func ExpirationDate(item *model.Item, itemType *model.ItemType, now time.Time) time.Time {
	shelfLife, ok := ShelfLife(itemType)
	if !ok {
		return now.Add(sentinelHorizon)
	}
	return item.CreatedAt.Add(shelfLife)
}

// DaysUntilExpiration は賞味期限までの日数を切り上げで返す。
// 残り23時間は1日、期限切れの場合は負の値になる。
func DaysUntilExpiration(item *model.Item, itemType *model.ItemType, now time.Time) int {
	diff := ExpirationDate(item, itemType, now).Sub(now)
	days := diff / day
	if diff%day > 0 {
		days++
	}
	return int(days)
}

// IsExpiringSoon は残り日数が 0 以上 warningDays 以下かどうかを返す。
// 既に期限切れ（負の日数）の食材は対象外。
func IsExpiringSoon(item *model.Item, itemType *model.ItemType, warningDays int, now time.Time) bool {
	days := DaysUntilExpiration(item, itemType, now)
	return days >= 0 && days <= warningDays
}

// Status は表示用の鮮度分類を返す。
func Status(item *model.Item, itemType *model.ItemType, now time.Time) ExpirationStatus {
	days := DaysUntilExpiration(item, itemType, now)
	switch {
	case days <= 0:
		return StatusExpired
	case days <= DisplayWarningDays:
		return StatusExpiringSoon
	default:
		return StatusFresh
	}
}

// TimeRemaining は残り期間の表示用文字列を返す。
func TimeRemaining(item *model.Item, itemType *model.ItemType, now time.Time) string {
	days := DaysUntilExpiration(item, itemType, now)
	switch {
	case days < 0:
		return fmt.Sprintf("Expired %d %s ago", -days, pluralDays(-days))
	case days == 0:
		return "Expires today"
	case days == 1:
		return "Expires tomorrow"
	default:
		return fmt.Sprintf("Expires in %d days", days)
	}
}

// TransitionDelays は作成時点から OLD / BAD へ遷移させるまでの遅延を返す。
// OLD は保存可能期間の2/3、BAD は保存可能期間ちょうど。
// 賞味期限を追跡しない種別ではfalseを返す。
func TransitionDelays(itemType *model.ItemType) (toOld, toBad time.Duration, ok bool) {
	shelfLife, ok := ShelfLife(itemType)
	if !ok {
		return 0, 0, false
	}
	if shelfLife > math.MaxInt64/2 {
		return shelfLife / 3 * 2, shelfLife, true
	}
	return shelfLife * 2 / 3, shelfLife, true
}

func pluralDays(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}
