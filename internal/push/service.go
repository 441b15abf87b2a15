package push

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/hitoshi/freshtrack/internal/model"
	"github.com/hitoshi/freshtrack/internal/repository"
)

const (
	// p256dhKeyLength は非圧縮形式のP-256公開鍵のバイト長。
	p256dhKeyLength = 65
	// authSecretLength はWeb Pushの認証シークレットのバイト長。
	authSecretLength = 16
)

// SubscribeInput はブラウザのPushSubscription.toJSON()に対応する入力。
type SubscribeInput struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// Service はプッシュ購読の登録と解除を扱う。
type Service struct {
	subs      repository.PushSubscriptionRepository
	validator EndpointValidator
	publicKey string
	logger    *slog.Logger
}

// NewService はServiceを生成する。publicKeyが空の場合、プッシュ通知は無効として扱う。
func NewService(subs repository.PushSubscriptionRepository, validator EndpointValidator, publicKey string, logger *slog.Logger) *Service {
	return &Service{subs: subs, validator: validator, publicKey: publicKey, logger: logger}
}

// PublicKey はクライアントが購読に使うVAPID公開鍵を返す。
func (s *Service) PublicKey() (string, error) {
	if s.publicKey == "" {
		return "", model.NewPushDisabledError()
	}
	return s.publicKey, nil
}

// Subscribe は購読を登録する。同じユーザーとendpointの組が既にあれば鍵を更新する。
func (s *Service) Subscribe(ctx context.Context, userID string, input SubscribeInput) (*model.PushSubscription, error) {
	if s.publicKey == "" {
		return nil, model.NewPushDisabledError()
	}
	if err := s.validator.ValidateEndpoint(input.Endpoint); err != nil {
		s.logger.Warn("プッシュ購読の配信先を拒否しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewInvalidSubscriptionError("endpoint")
	}
	if !validKey(input.P256dh, p256dhKeyLength) {
		return nil, model.NewInvalidSubscriptionError("keys.p256dh")
	}
	if !validKey(input.Auth, authSecretLength) {
		return nil, model.NewInvalidSubscriptionError("keys.auth")
	}

	sub := &model.PushSubscription{
		UserID:   userID,
		Endpoint: input.Endpoint,
		P256dh:   input.P256dh,
		Auth:     input.Auth,
	}
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("upsert push subscription: %w", err)
	}
	return sub, nil
}

// Unsubscribe はユーザーの購読をendpointで解除する。
func (s *Service) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	if endpoint == "" {
		return model.NewInvalidSubscriptionError("endpoint")
	}
	n, err := s.subs.DeleteByUserAndEndpoint(ctx, userID, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	if n == 0 {
		return model.NewSubscriptionNotFoundError()
	}
	return nil
}

// List はユーザーの購読一覧を返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.PushSubscription, error) {
	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	return subs, nil
}

// validKey はbase64url（パディング有無どちらも可）でデコードした長さを検証する。
func validKey(encoded string, wantLen int) bool {
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding, base64.StdEncoding} {
		if b, err := enc.DecodeString(encoded); err == nil {
			return len(b) == wantLen
		}
	}
	return false
}
