package model

import "time"

// NotificationType は通知の種別を表す。
type NotificationType string

const (
	// NotificationTypeItemExpiring は賞味期限が近い食材の通知。
	NotificationTypeItemExpiring NotificationType = "ITEM_EXPIRING"
)

// NotificationMetadata は通知に付随するJSONメタデータ。
type NotificationMetadata struct {
	DaysUntil     int        `json:"daysUntil"`
	CurrentStatus ItemStatus `json:"currentStatus"`
	ItemName      string     `json:"itemName"`
}

// Notification はユーザー向けのアプリ内通知を表す。
// スイープで作成され、以降は既読化と削除のみ行われる。
type Notification struct {
	ID        string
	UserID    string
	ItemID    string
	Type      NotificationType
	Title     string
	Message   string
	Metadata  NotificationMetadata
	Read      bool
	ReadAt    *time.Time
	CreatedAt time.Time
}

// PushSubscription はWeb Pushの配信先（ブラウザ/デバイス）を表す。
type PushSubscription struct {
	ID        string
	UserID    string
	Endpoint  string
	P256dh    string
	Auth      string
	CreatedAt time.Time
}
