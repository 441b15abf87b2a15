// Package notification はアプリ内通知の参照と既読・削除を提供する。
// 通知の作成は賞味期限スイープ（worker/expiring）のみが行う。
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/freshtrack/internal/model"
	"github.com/hitoshi/freshtrack/internal/repository"
)

const (
	// DefaultLimit は1ページあたりのデフォルト件数。
	DefaultLimit = 20
	// MaxLimit は1ページあたりの最大件数。
	MaxLimit = 100
)

// Service は通知のサービス。
type Service struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。nowがnilの場合はtime.Now。
func NewService(repo repository.NotificationRepository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: now}
}

// ListResult はListの戻り値。
// NextCursorは次ページ先頭の通知ID。最終ページでは空。
type ListResult struct {
	Notifications []*model.Notification
	NextCursor    string
}

// List はユーザーの通知を新しい順に返す。
// limitが0以下の場合はDefaultLimit、MaxLimitを超える場合はMaxLimitに丸める。
// limit+1件を取得して次ページの有無を判定する。
func (s *Service) List(ctx context.Context, userID, cursor string, limit int, unreadOnly bool) (*ListResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			return nil, model.NewInvalidCursorError(cursor)
		}
	}

	notifications, err := s.repo.ListByUser(ctx, userID, cursor, limit+1, unreadOnly)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Notifications: notifications}
	if len(notifications) > limit {
		result.NextCursor = notifications[limit].ID
		result.Notifications = notifications[:limit]
	}
	if result.Notifications == nil {
		result.Notifications = []*model.Notification{}
	}
	return result, nil
}

// UnreadCount は未読件数を返す。
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead は所有者の通知を既読にする。既読済みの場合は既読日時を変更しない。
func (s *Service) MarkRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	n, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}
	now := s.now()
	if err := s.repo.MarkRead(ctx, id, now); err != nil {
		return nil, err
	}
	n.Read = true
	n.ReadAt = &now
	return n, nil
}

// MarkAllRead はユーザーの未読通知をすべて既読にし、件数を返す。
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

// Delete は所有者の通知を削除する。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.findOwned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// DeleteAllRead はユーザーの既読通知をすべて削除し、件数を返す。
func (s *Service) DeleteAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.DeleteAllRead(ctx, userID)
}

func (s *Service) findOwned(ctx context.Context, userID, id string) (*model.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewNotificationNotFoundError(id)
	}
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, model.NewNotificationNotFoundError(id)
	}
	if n.UserID != userID {
		return nil, model.NewForbiddenError("通知")
	}
	return n, nil
}
