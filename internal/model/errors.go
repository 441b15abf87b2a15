// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, inventory, notification, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeItemNotFound         = "ITEM_NOT_FOUND"
	ErrCodeItemTypeNotFound     = "ITEM_TYPE_NOT_FOUND"
	ErrCodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInvalidStatus        = "INVALID_STATUS"
	ErrCodeInvalidPercent       = "INVALID_PERCENT_CONSUMED"
	ErrCodeInvalidItem          = "INVALID_ITEM"
	ErrCodeInvalidCursor        = "INVALID_CURSOR"
	ErrCodeInvalidPreferences   = "INVALID_PREFERENCES"
	ErrCodeInvalidSubscription  = "INVALID_SUBSCRIPTION"
	ErrCodeSubscriptionNotFound = "SUBSCRIPTION_NOT_FOUND"
	ErrCodePushDisabled         = "PUSH_DISABLED"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeOriginRejected       = "ORIGIN_REJECTED"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
)

// NewItemNotFoundError は食材未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定された食材が見つかりません: %s", itemID),
		Category: "inventory",
		Action:   "食材IDを確認してください。",
	}
}

// NewItemTypeNotFoundError は食材種別未検出エラーを生成する。
func NewItemTypeNotFoundError(itemTypeID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemTypeNotFound,
		Message:  fmt.Sprintf("指定された食材種別が見つかりません: %s", itemTypeID),
		Category: "validation",
		Action:   "食材種別の一覧から選択してください。",
	}
}

// NewNotificationNotFoundError は通知未検出エラーを生成する。
func NewNotificationNotFoundError(notificationID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotificationNotFound,
		Message:  fmt.Sprintf("指定された通知が見つかりません: %s", notificationID),
		Category: "notification",
		Action:   "通知IDを確認してください。",
	}
}

// NewForbiddenError は他ユーザーのリソースへのアクセスを拒否するエラーを生成する。
func NewForbiddenError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この%sを操作する権限がありません。", resource),
		Category: "auth",
		Action:   "自分のアカウントのデータのみ操作できます。",
	}
}

// NewInvalidStatusError は無効な食材ステータスのエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効なステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには FRESH、OLD、BAD、EATEN、DISCARDED のいずれかを指定してください。",
	}
}

// NewInvalidPercentError は消費率が範囲外の場合のエラーを生成する。
func NewInvalidPercentError(percent int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPercent,
		Message:  fmt.Sprintf("無効な消費率です: %d", percent),
		Category: "validation",
		Action:   "消費率は0から100の範囲で指定してください。",
	}
}

// NewInvalidItemError は食材の入力値が不正な場合のエラーを生成する。
func NewInvalidItemError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidItem,
		Message:  fmt.Sprintf("食材の入力内容が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidCursorError は無効なページネーションカーソルのエラーを生成する。
func NewInvalidCursorError(cursor string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCursor,
		Message:  fmt.Sprintf("無効なカーソル値です: %s", cursor),
		Category: "validation",
		Action:   "一覧の先頭から取得し直してください。",
	}
}

// NewInvalidPreferencesError はユーザー設定が不正な場合のエラーを生成する。
func NewInvalidPreferencesError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPreferences,
		Message:  fmt.Sprintf("設定の内容が不正です: %s", reason),
		Category: "validation",
		Action:   "設定値を確認してください。",
	}
}

// NewInvalidSubscriptionError はプッシュ購読情報が不正な場合のエラーを生成する。
func NewInvalidSubscriptionError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSubscription,
		Message:  fmt.Sprintf("プッシュ通知の登録情報が不正です: %s", reason),
		Category: "validation",
		Action:   "ブラウザの通知許可を確認し、再度登録してください。",
	}
}

// NewSubscriptionNotFoundError はプッシュ購読が見つからない場合のエラーを生成する。
func NewSubscriptionNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeSubscriptionNotFound,
		Message:  "指定されたプッシュ通知の登録が見つかりません。",
		Category: "notification",
		Action:   "通知設定画面から再度登録してください。",
	}
}

// NewPushDisabledError はサーバーでプッシュ通知が無効な場合のエラーを生成する。
func NewPushDisabledError() *APIError {
	return &APIError{
		Code:     ErrCodePushDisabled,
		Message:  "このサーバーではプッシュ通知が有効化されていません。",
		Category: "notification",
		Action:   "アプリ内通知をご利用ください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUnauthorizedError は未認証リクエストのエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewRateLimitedError はレート制限超過のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewOriginRejectedError は許可されていないオリジンからの状態変更リクエストのエラーを生成する。
func NewOriginRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodeOriginRejected,
		Message:  "許可されていないオリジンからのリクエストです。",
		Category: "auth",
		Action:   "アプリの画面から操作してください。",
	}
}

// NewInvalidRequestError はリクエストボディやクエリが解析できない場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストの形式が不正です: %s", reason),
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}
