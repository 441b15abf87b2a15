// Package user はユーザー設定の参照と更新を提供する。
package user

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hitoshi/freshtrack/internal/freshness"
	"github.com/hitoshi/freshtrack/internal/model"
	"github.com/hitoshi/freshtrack/internal/repository"
)

// MaxWarningDays は通知閾値に指定できる最大日数。
const MaxWarningDays = 30

// maxPreferencesSize は保存するユーザー設定JSONの最大バイト数。
const maxPreferencesSize = 16 * 1024

// Preferences はユーザー設定の保存値と、デフォルトを補った実効値。
type Preferences struct {
	Raw                  json.RawMessage
	NotificationsEnabled bool
	ExpiringItemsEnabled bool
	WarningDays          int
}

// Service はユーザー設定のサービス層。
type Service struct {
	userRepo repository.UserRepository
	logger   *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, logger *slog.Logger) *Service {
	return &Service{userRepo: userRepo, logger: logger}
}

// GetPreferences はユーザー設定を返す。
func (s *Service) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return effective(user.Preferences), nil
}

// UpdatePreferences はユーザー設定JSONを置き換える。
// 通知に関係する項目は型を検証し、それ以外の項目はそのまま保存する。
func (s *Service) UpdatePreferences(ctx context.Context, userID string, raw json.RawMessage) (*Preferences, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, model.NewInvalidPreferencesError("JSONの形式が不正です")
	}
	stored := json.RawMessage(compact.Bytes())

	ok, err := s.userRepo.UpdatePreferences(ctx, userID, stored)
	if err != nil {
		return nil, fmt.Errorf("ユーザー設定の更新に失敗しました: %w", err)
	}
	if !ok {
		return nil, model.NewUserNotFoundError()
	}

	s.logger.Info("ユーザー設定を更新しました",
		slog.String("user_id", userID),
	)
	return effective(stored), nil
}

func validate(raw json.RawMessage) error {
	if len(raw) > maxPreferencesSize {
		return model.NewInvalidPreferencesError("設定が大きすぎます")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return model.NewInvalidPreferencesError("JSONオブジェクトを指定してください")
	}

	// model.ParsePreferencesは不正値をデフォルト扱いにするため、保存前に厳密に検証する。
	var p model.Preferences
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.NewInvalidPreferencesError("notifications の型が不正です")
	}
	if p.Notifications != nil && p.Notifications.ExpiringItems != nil {
		if d := p.Notifications.ExpiringItems.DaysBeforeWarning; d != nil && (*d < 0 || *d > MaxWarningDays) {
			return model.NewInvalidPreferencesError(
				fmt.Sprintf("daysBeforeWarning は0から%dの範囲で指定してください", MaxWarningDays))
		}
	}
	return nil
}

func effective(raw json.RawMessage) *Preferences {
	p := model.ParsePreferences(raw)
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	return &Preferences{
		Raw:                  raw,
		NotificationsEnabled: p.NotificationsEnabled(),
		ExpiringItemsEnabled: p.ExpiringItemsEnabled(),
		WarningDays:          p.WarningDays(freshness.DefaultWarningDays),
	}
}
