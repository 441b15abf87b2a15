package freshness

import (
	"testing"
	"time"

	"github.com/hitoshi/freshtrack/internal/model"
)

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newItem(createdAt time.Time) *model.Item {
	return &model.Item{ID: "item-1", Name: "Milk", Status: model.ItemStatusFresh, CreatedAt: createdAt}
}

func typeWithLife(seconds int64) *model.ItemType {
	return &model.ItemType{ID: "type-1", Name: "Dairy", SuggestedLifeSpanSeconds: seconds}
}

func TestExpirationDate_AddsShelfLifeToCreatedAt(t *testing.T) {
	item := newItem(baseTime)
	got := ExpirationDate(item, typeWithLife(259200), baseTime.Add(5*time.Hour))
	want := baseTime.Add(72 * time.Hour)
	if !got.Equal(want) {
		t.Errorf("ExpirationDate = %v, want %v", got, want)
	}
}

func TestExpirationDate_NonPerishableReturnsSentinel(t *testing.T) {
	now := baseTime.Add(10 * 24 * time.Hour)
	item := newItem(baseTime)

	cases := map[string]*model.ItemType{
		"種別なし":   nil,
		"期間0":    typeWithLife(0),
		"期間が負の値": typeWithLife(-60),
	}
	for name, itemType := range cases {
		t.Run(name, func(t *testing.T) {
			got := ExpirationDate(item, itemType, now)
			if got.Before(now.Add(364 * 24 * time.Hour)) {
				t.Errorf("ExpirationDate = %v, 364日以上先であるべき", got)
			}
		})
	}
}

func TestDaysUntilExpiration_RoundsUp(t *testing.T) {
	// 残り23時間は1日
	item := newItem(baseTime)
	got := DaysUntilExpiration(item, typeWithLife(82800), baseTime)
	if got != 1 {
		t.Errorf("DaysUntilExpiration = %d, want 1", got)
	}
}

func TestDaysUntilExpiration_Table(t *testing.T) {
	item := newItem(baseTime)
	threeDays := typeWithLife(259200)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"作成直後", 0, 3},
		{"1日経過", 24 * time.Hour, 2},
		{"1日と1時間経過", 25 * time.Hour, 2},
		{"ちょうど期限", 72 * time.Hour, 0},
		{"期限の1時間後", 73 * time.Hour, 0},
		{"期限の1日後", 96 * time.Hour, -1},
		{"期限の1日半後", 108 * time.Hour, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DaysUntilExpiration(item, threeDays, baseTime.Add(tt.elapsed))
			if got != tt.want {
				t.Errorf("DaysUntilExpiration = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsExpiringSoon_ExpiredItemIsNotFlagged(t *testing.T) {
	item := newItem(baseTime)
	now := baseTime.Add(96 * time.Hour) // daysUntil = -1

	if DaysUntilExpiration(item, typeWithLife(259200), now) != -1 {
		t.Fatal("前提: daysUntil は -1 であるべき")
	}
	if IsExpiringSoon(item, typeWithLife(259200), 2, now) {
		t.Error("期限切れの食材は IsExpiringSoon = false であるべき")
	}
}

func TestIsExpiringSoon_Boundary(t *testing.T) {
	item := newItem(baseTime)
	threeDays := typeWithLife(259200)

	// daysUntil = 2 = warningDays
	if !IsExpiringSoon(item, threeDays, 2, baseTime.Add(24*time.Hour)) {
		t.Error("daysUntil == warningDays は true であるべき")
	}
	// daysUntil = 3 = warningDays + 1
	if IsExpiringSoon(item, threeDays, 2, baseTime) {
		t.Error("daysUntil == warningDays+1 は false であるべき")
	}
	// daysUntil = 0
	if !IsExpiringSoon(item, threeDays, 2, baseTime.Add(72*time.Hour)) {
		t.Error("daysUntil == 0 は true であるべき")
	}
}

func TestIsExpiringSoon_NonPerishableNeverFlagged(t *testing.T) {
	item := newItem(baseTime)
	if IsExpiringSoon(item, typeWithLife(0), 30, baseTime.Add(400*24*time.Hour)) {
		t.Error("賞味期限を追跡しない食材は IsExpiringSoon = false であるべき")
	}
}

func TestStatus_UsesFixedDisplayThreshold(t *testing.T) {
	item := newItem(baseTime)
	fiveDays := typeWithLife(5 * 86400)

	tests := []struct {
		elapsed time.Duration
		want    ExpirationStatus
	}{
		{0, StatusFresh},                         // 5日
		{2 * 24 * time.Hour, StatusFresh},        // 3日
		{3 * 24 * time.Hour, StatusExpiringSoon}, // 2日
		{4 * 24 * time.Hour, StatusExpiringSoon}, // 1日
		{5 * 24 * time.Hour, StatusExpired},      // 0日
		{7 * 24 * time.Hour, StatusExpired},      // -2日
	}
	for _, tt := range tests {
		got := Status(item, fiveDays, baseTime.Add(tt.elapsed))
		if got != tt.want {
			t.Errorf("elapsed=%v: Status = %q, want %q", tt.elapsed, got, tt.want)
		}
	}
}

func TestTimeRemaining(t *testing.T) {
	item := newItem(baseTime)
	threeDays := typeWithLife(259200)

	tests := []struct {
		elapsed time.Duration
		want    string
	}{
		{0, "Expires in 3 days"},
		{48 * time.Hour, "Expires tomorrow"},
		{72 * time.Hour, "Expires today"},
		{96 * time.Hour, "Expired 1 day ago"},
		{144 * time.Hour, "Expired 3 days ago"},
	}
	for _, tt := range tests {
		got := TimeRemaining(item, threeDays, baseTime.Add(tt.elapsed))
		if got != tt.want {
			t.Errorf("elapsed=%v: TimeRemaining = %q, want %q", tt.elapsed, got, tt.want)
		}
	}
}

func TestTransitionDelays(t *testing.T) {
	toOld, toBad, ok := TransitionDelays(typeWithLife(300))
	if !ok {
		t.Fatal("保存可能期間が正の場合は ok = true であるべき")
	}
	if toOld != 200*time.Second {
		t.Errorf("toOld = %v, want 200s", toOld)
	}
	if toBad != 300*time.Second {
		t.Errorf("toBad = %v, want 300s", toBad)
	}
}

func TestTransitionDelays_NonPerishable(t *testing.T) {
	if _, _, ok := TransitionDelays(typeWithLife(0)); ok {
		t.Error("保存可能期間0の場合は ok = false であるべき")
	}
	if _, _, ok := TransitionDelays(nil); ok {
		t.Error("種別なしの場合は ok = false であるべき")
	}
}

func TestShelfLife_BeyondDurationRangeStaysFresh(t *testing.T) {
	// 1000年はtime.Durationの範囲（約292年）を超える
	millennium := typeWithLife(1000 * 365 * 86400)
	item := newItem(baseTime)
	now := baseTime.Add(24 * time.Hour)

	life, ok := ShelfLife(millennium)
	if !ok || life <= 0 {
		t.Fatalf("ShelfLife = (%v, %v), want positive duration", life, ok)
	}
	if got := Status(item, millennium, now); got != StatusFresh {
		t.Errorf("Status = %q, want %q", got, StatusFresh)
	}
	if got := DaysUntilExpiration(item, millennium, now); got < 100000 {
		t.Errorf("DaysUntilExpiration = %d, want about 292 years of days", got)
	}
	if IsExpiringSoon(item, millennium, 7, now) {
		t.Error("IsExpiringSoon = true, want false")
	}

	toOld, toBad, ok := TransitionDelays(millennium)
	if !ok || toOld <= 0 || toBad <= toOld {
		t.Errorf("TransitionDelays = (%v, %v, %v), want 0 < toOld < toBad", toOld, toBad, ok)
	}
}

func TestShelfLife_LargestExactValue(t *testing.T) {
	life, ok := ShelfLife(typeWithLife(maxShelfLifeSeconds))
	if !ok || life != time.Duration(maxShelfLifeSeconds)*time.Second {
		t.Errorf("ShelfLife = (%v, %v), want exact %ds", life, ok, maxShelfLifeSeconds)
	}
}
