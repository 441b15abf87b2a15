// Package item は食材在庫の管理機能を提供する。
package item

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/freshtrack/internal/freshness"
	"github.com/hitoshi/freshtrack/internal/model"
	"github.com/hitoshi/freshtrack/internal/repository"
	"github.com/hitoshi/freshtrack/internal/security"
	"github.com/hitoshi/freshtrack/internal/transition"
)

const maxNameLength = 200

// Service は食材の登録・更新・削除・一覧のサービス。
type Service struct {
	items        repository.ItemRepository
	itemTypes    repository.ItemTypeRepository
	scheduler    transition.Scheduler
	sanitizer    security.TextSanitizer
	removalDelay time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// Option はServiceの任意設定。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRemovalDelay は食べ終えた・廃棄した食材を削除するまでの猶予を設定する。
func WithRemovalDelay(d time.Duration) Option {
	return func(s *Service) { s.removalDelay = d }
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	items repository.ItemRepository,
	itemTypes repository.ItemTypeRepository,
	scheduler transition.Scheduler,
	sanitizer security.TextSanitizer,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		items:        items,
		itemTypes:    itemTypes,
		scheduler:    scheduler,
		sanitizer:    sanitizer,
		removalDelay: 7 * 24 * time.Hour,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput は食材登録の入力。
type CreateInput struct {
	Name       string
	Price      float64
	Quantity   int // 0以下の場合は1
	ItemTypeID string
}

// UpdateInput は食材更新の入力。nilの項目は変更しない。
// ItemTypeIDに空文字を指定すると種別の紐付けを解除する。
type UpdateInput struct {
	Name            *string
	Price           *float64
	Quantity        *int
	PercentConsumed *int
	Status          *model.ItemStatus
	ItemTypeID      *string
}

// Result は作成・更新の結果。
// 状態遷移の予約に失敗しても食材は保存済みで、Warningに理由が入る。
type Result struct {
	View    View
	Warning string
}

// Create は食材をFRESH・消費率0%で登録し、OLD/BADへの状態遷移を予約する。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*Result, error) {
	name, err := s.cleanName(input.Name)
	if err != nil {
		return nil, err
	}
	if input.Price < 0 {
		return nil, model.NewInvalidItemError("価格は0以上で指定してください")
	}
	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	itemType, err := s.resolveItemType(ctx, input.ItemTypeID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	item := &model.Item{
		ID:              uuid.New().String(),
		UserID:          userID,
		Name:            name,
		Price:           input.Price,
		Quantity:        quantity,
		PercentConsumed: 0,
		Status:          model.ItemStatusFresh,
		ItemTypeID:      input.ItemTypeID,
		ItemType:        itemType,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}

	result := &Result{View: NewView(item, now)}
	if err := s.scheduler.ScheduleTransitions(ctx, item, itemType); err != nil {
		// 食材は作成済みのまま。遷移が予約されない場合はFRESHのまま残る。
		s.logger.Error("状態遷移の予約に失敗しました",
			slog.String("user_id", userID),
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
		result.Warning = "状態の自動更新を予約できませんでした"
	}
	return result, nil
}

// Update は所有者の食材を更新する。消費率が100%になった食材はEATENにする。
// 食べ終えた・廃棄した状態に変わった食材は猶予期間後の削除を予約する。
func (s *Service) Update(ctx context.Context, userID, itemID string, input UpdateInput) (*Result, error) {
	item, err := s.findOwned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	wasFinished := item.Status.IsFinished()

	if input.Name != nil {
		name, err := s.cleanName(*input.Name)
		if err != nil {
			return nil, err
		}
		item.Name = name
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, model.NewInvalidItemError("価格は0以上で指定してください")
		}
		item.Price = *input.Price
	}
	if input.Quantity != nil {
		if *input.Quantity < 1 {
			return nil, model.NewInvalidItemError("数量は1以上で指定してください")
		}
		item.Quantity = *input.Quantity
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, model.NewInvalidStatusError(string(*input.Status))
		}
		item.Status = *input.Status
	}
	if input.PercentConsumed != nil {
		p := *input.PercentConsumed
		if p < 0 || p > 100 {
			return nil, model.NewInvalidPercentError(p)
		}
		item.PercentConsumed = p
	}
	if item.PercentConsumed == 100 {
		item.Status = model.ItemStatusEaten
	}
	if input.ItemTypeID != nil {
		itemType, err := s.resolveItemType(ctx, *input.ItemTypeID)
		if err != nil {
			return nil, err
		}
		item.ItemTypeID = *input.ItemTypeID
		item.ItemType = itemType
	}

	now := s.now()
	item.UpdatedAt = now
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	result := &Result{View: NewView(item, now)}
	if !wasFinished && item.Status.IsFinished() {
		if err := s.scheduler.QueueRemoval(ctx, []string{item.ID}, s.removalDelay); err != nil {
			s.logger.Error("食材の削除予約に失敗しました",
				slog.String("user_id", userID),
				slog.String("item_id", item.ID),
				slog.String("error", err.Error()),
			)
			result.Warning = "食材の自動削除を予約できませんでした"
		}
	}
	return result, nil
}

// Delete は所有者の食材を削除する。関連する通知も削除される。
func (s *Service) Delete(ctx context.Context, userID, itemID string) error {
	if _, err := s.findOwned(ctx, userID, itemID); err != nil {
		return err
	}
	return s.items.Delete(ctx, itemID)
}

// Get は所有者の食材を鮮度情報付きで返す。
func (s *Service) Get(ctx context.Context, userID, itemID string) (*View, error) {
	item, err := s.findOwned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	v := NewView(item, s.now())
	return &v, nil
}

// List はユーザーの食材を絞り込み、鮮度情報付きで返す。
func (s *Service) List(ctx context.Context, userID string, filter model.ItemFilter) ([]View, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, model.NewInvalidStatusError(string(st))
		}
	}
	items, err := s.items.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]View, len(items))
	for i, it := range items {
		views[i] = NewView(it, now)
	}
	return views, nil
}

func (s *Service) findOwned(ctx context.Context, userID, itemID string) (*model.Item, error) {
	if _, err := uuid.Parse(itemID); err != nil {
		return nil, model.NewItemNotFoundError(itemID)
	}
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, model.NewItemNotFoundError(itemID)
	}
	if item.UserID != userID {
		return nil, model.NewForbiddenError("食材")
	}
	return item, nil
}

func (s *Service) resolveItemType(ctx context.Context, itemTypeID string) (*model.ItemType, error) {
	if itemTypeID == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(itemTypeID); err != nil {
		return nil, model.NewItemTypeNotFoundError(itemTypeID)
	}
	itemType, err := s.itemTypes.FindByID(ctx, itemTypeID)
	if err != nil {
		return nil, err
	}
	if itemType == nil {
		return nil, model.NewItemTypeNotFoundError(itemTypeID)
	}
	return itemType, nil
}

// cleanName はマークアップを除去した食材名を返す。
func (s *Service) cleanName(raw string) (string, error) {
	name := s.sanitizer.SanitizeText(raw)
	if name == "" {
		return "", model.NewInvalidItemError("名前は必須です")
	}
	if len([]rune(name)) > maxNameLength {
		return "", model.NewInvalidItemError(fmt.Sprintf("名前は%d文字以内で指定してください", maxNameLength))
	}
	return name, nil
}

// View は食材と、ある時点での鮮度の見え方。
type View struct {
	Item *model.Item
	// ExpiresAt は賞味期限。期限を追跡しない食材ではnil。
	ExpiresAt     *time.Time
	DaysUntil     *int
	Freshness     freshness.ExpirationStatus
	TimeRemaining string
}

// NewView はnow時点の鮮度情報を計算する。
func NewView(item *model.Item, now time.Time) View {
	v := View{Item: item, Freshness: freshness.StatusFresh}
	if _, ok := freshness.ShelfLife(item.ItemType); !ok {
		return v
	}
	exp := freshness.ExpirationDate(item, item.ItemType, now)
	days := freshness.DaysUntilExpiration(item, item.ItemType, now)
	v.ExpiresAt = &exp
	v.DaysUntil = &days
	v.Freshness = freshness.Status(item, item.ItemType, now)
	v.TimeRemaining = freshness.TimeRemaining(item, item.ItemType, now)
	return v
}
