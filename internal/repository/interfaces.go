// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hitoshi/freshtrack/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// ListAll は全ユーザーを作成日時順に返す。
	ListAll(ctx context.Context) ([]*model.User, error)

	// UpdatePreferences はユーザー設定JSONを置き換える。
	// ユーザーが存在しない場合はfalseを返す。
	UpdatePreferences(ctx context.Context, id string, preferences json.RawMessage) (bool, error)
}

// SessionRepository はセッションの参照用インターフェース。
// セッションの発行と破棄は外部の認証サービスが行う。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// ItemTypeRepository は食材種別の永続化インターフェース。
type ItemTypeRepository interface {
	// List は全種別をカテゴリ、名前の順に返す。
	List(ctx context.Context) ([]*model.ItemType, error)

	// FindByID は指定IDの種別を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ItemType, error)

	// UpsertByName は名前をキーに種別を作成または更新する。
	UpsertByName(ctx context.Context, itemType *model.ItemType) error
}

// ItemRepository は食材データの永続化インターフェース。
// 取得系メソッドは食材種別をJOINしてItem.ItemTypeに設定する。
type ItemRepository interface {
	// FindByID は指定IDの食材を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Item, error)

	// ListByUser はユーザーの食材を絞り込み条件付きで作成日時の降順に返す。
	ListByUser(ctx context.Context, userID string, filter model.ItemFilter) ([]*model.Item, error)

	// ListActiveByUser はステータスがFRESHまたはOLDで、種別が設定された食材を返す。
	ListActiveByUser(ctx context.Context, userID string) ([]*model.Item, error)

	// Create は食材を作成する。
	Create(ctx context.Context, item *model.Item) error

	// Update は食材の可変項目を上書き更新する。
	Update(ctx context.Context, item *model.Item) error

	// Delete は指定IDの食材を削除する。関連する通知はCASCADE削除される。
	Delete(ctx context.Context, id string) error
}

// NotificationRepository は通知の永続化インターフェース。
// notifyDateは重複排除に使う暦日（"2006-01-02"形式）。
type NotificationRepository interface {
	// ExistsForDay は同じユーザー・食材・種別の通知がその日に既に作成済みかを返す。
	ExistsForDay(ctx context.Context, userID, itemID string, typ model.NotificationType, notifyDate string) (bool, error)

	// CreateForDay は通知を作成する。同日の通知が既に存在する場合は何もせずfalseを返す。
	CreateForDay(ctx context.Context, notification *model.Notification, notifyDate string) (bool, error)

	// FindByID は指定IDの通知を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Notification, error)

	// ListByUser はユーザーの通知を新しい順に最大limit件返す。
	// cursorが空でない場合は、そのIDの通知を含めてそれより古いものを返す。
	ListByUser(ctx context.Context, userID, cursor string, limit int, unreadOnly bool) ([]*model.Notification, error)

	// CountUnread は未読通知の件数を返す。
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkRead は通知を既読にする。
	MarkRead(ctx context.Context, id string, readAt time.Time) error

	// MarkAllRead はユーザーの未読通知をすべて既読にし、更新件数を返す。
	MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int64, error)

	// Delete は指定IDの通知を削除する。
	Delete(ctx context.Context, id string) error

	// DeleteAllRead はユーザーの既読通知をすべて削除し、削除件数を返す。
	DeleteAllRead(ctx context.Context, userID string) (int64, error)

	// DeleteReadBefore はbeforeより前に作成された既読通知を全ユーザー分削除する。
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

// PushSubscriptionRepository はWeb Push配信先の永続化インターフェース。
type PushSubscriptionRepository interface {
	// ListByUser はユーザーの配信先を返す。
	ListByUser(ctx context.Context, userID string) ([]*model.PushSubscription, error)

	// Upsert は(user_id, endpoint)をキーに配信先を作成または鍵を更新する。
	Upsert(ctx context.Context, subscription *model.PushSubscription) error

	// DeleteByID は指定IDの配信先を削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByUserAndEndpoint はユーザーとendpointで配信先を削除し、削除件数を返す。
	DeleteByUserAndEndpoint(ctx context.Context, userID, endpoint string) (int64, error)
}
