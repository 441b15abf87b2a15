package model

import (
	"encoding/json"
	"time"
)

// User はサービス利用ユーザーを表す。
// Preferencesは任意のJSONをそのまま保持する。
type User struct {
	ID          string
	Email       string
	Name        string
	Preferences json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session は外部の認証サービスが発行したログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Preferences はユーザー設定JSONのうち、通知に関係する部分の型付きビュー。
// 未設定の項目はnilのまま保持し、アクセサでデフォルト値を補う。
type Preferences struct {
	Notifications *NotificationPreferences `json:"notifications,omitempty"`
}

// NotificationPreferences は通知設定。
type NotificationPreferences struct {
	Enabled       *bool                     `json:"enabled,omitempty"`
	ExpiringItems *ExpiringItemsPreferences `json:"expiringItems,omitempty"`
}

// ExpiringItemsPreferences は賞味期限通知の設定。
type ExpiringItemsPreferences struct {
	Enabled           *bool    `json:"enabled,omitempty"`
	DaysBeforeWarning *int     `json:"daysBeforeWarning,omitempty"`
	Categories        []string `json:"categories,omitempty"`
}

// ParsePreferences はユーザー設定JSONから通知に関係する項目を読み出す。
// 各項目は独立に解析し、型が合わない項目だけを未設定として扱う。
// 兄弟項目の不正で明示的なオプトアウトが失われることはない。
func ParsePreferences(raw json.RawMessage) Preferences {
	var p Preferences
	notifications := jsonObject(jsonObject(raw)["notifications"])
	if notifications == nil {
		return p
	}
	p.Notifications = &NotificationPreferences{
		Enabled: decodeLeaf[bool](notifications["enabled"]),
	}

	expiring := jsonObject(notifications["expiringItems"])
	if expiring == nil {
		return p
	}
	e := &ExpiringItemsPreferences{
		Enabled:           decodeLeaf[bool](expiring["enabled"]),
		DaysBeforeWarning: decodeLeaf[int](expiring["daysBeforeWarning"]),
	}
	if categories := decodeLeaf[[]string](expiring["categories"]); categories != nil {
		e.Categories = *categories
	}
	p.Notifications.ExpiringItems = e
	return p
}

// jsonObject はJSONオブジェクトをキーごとに分解する。オブジェクトでなければnil。
func jsonObject(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

// decodeLeaf は値が無いか、nullか、型が合わない場合にnilを返す。
func decodeLeaf[T any](raw json.RawMessage) *T {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// NotificationsEnabled は通知全体が有効かどうかを返す。明示的にfalseの場合のみ無効。
func (p Preferences) NotificationsEnabled() bool {
	if p.Notifications == nil || p.Notifications.Enabled == nil {
		return true
	}
	return *p.Notifications.Enabled
}

// ExpiringItemsEnabled は賞味期限通知が有効かどうかを返す。明示的にfalseの場合のみ無効。
func (p Preferences) ExpiringItemsEnabled() bool {
	if p.Notifications == nil || p.Notifications.ExpiringItems == nil || p.Notifications.ExpiringItems.Enabled == nil {
		return true
	}
	return *p.Notifications.ExpiringItems.Enabled
}

// WarningDays は通知を出す残り日数の閾値を返す。未設定の場合はdefaultDaysを返す。
func (p Preferences) WarningDays(defaultDays int) int {
	if p.Notifications == nil || p.Notifications.ExpiringItems == nil || p.Notifications.ExpiringItems.DaysBeforeWarning == nil {
		return defaultDays
	}
	return *p.Notifications.ExpiringItems.DaysBeforeWarning
}
