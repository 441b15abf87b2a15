// Package model はドメインモデルを定義する。
package model

import "time"

// ItemStatus は食材の状態を表す。
type ItemStatus string

const (
	// ItemStatusFresh は購入直後の新鮮な状態。
	ItemStatusFresh ItemStatus = "FRESH"
	// ItemStatusOld は賞味期限の2/3を経過した状態。
	ItemStatusOld ItemStatus = "OLD"
	// ItemStatusBad は賞味期限を経過した状態。
	ItemStatusBad ItemStatus = "BAD"
	// ItemStatusEaten は食べ終えた状態。
	ItemStatusEaten ItemStatus = "EATEN"
	// ItemStatusDiscarded は廃棄された状態。
	ItemStatusDiscarded ItemStatus = "DISCARDED"
)

// Valid は定義済みのステータスかどうかを返す。
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusFresh, ItemStatusOld, ItemStatusBad, ItemStatusEaten, ItemStatusDiscarded:
		return true
	default:
		return false
	}
}

// IsActive はまだ消費可能な在庫（FRESHまたはOLD）かどうかを返す。
func (s ItemStatus) IsActive() bool {
	return s == ItemStatusFresh || s == ItemStatusOld
}

// IsFinished はユーザーが消費または廃棄した状態かどうかを返す。
func (s ItemStatus) IsFinished() bool {
	return s == ItemStatusEaten || s == ItemStatusDiscarded
}

// ItemType は食材種別の参照データ。起動時にシードされ、以降は読み取り専用。
type ItemType struct {
	ID                       string
	Name                     string
	StorageAdvice            string
	SuggestedLifeSpanSeconds int64 // 0は賞味期限を追跡しない
	Category                 string
	CreatedAt                time.Time
}

// Item はユーザーの在庫にある食材を表す。
// CreatedAtが賞味期限計算の起点となる。
type Item struct {
	ID              string
	UserID          string
	Name            string
	Price           float64
	Quantity        int
	PercentConsumed int
	Status          ItemStatus
	ItemTypeID      string    // 未設定の場合は空文字
	ItemType        *ItemType // JOINで取得した種別。未設定の場合はnil
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ItemFilter は食材一覧の絞り込み条件。
type ItemFilter struct {
	Statuses []ItemStatus
	Search   string
}
