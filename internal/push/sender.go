// Package push はWeb Push (VAPID) による通知配信と購読管理を提供する。
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/hitoshi/freshtrack/internal/metrics"
	"github.com/hitoshi/freshtrack/internal/model"
	"github.com/hitoshi/freshtrack/internal/repository"
)

// Message はユーザーに届けるプッシュ通知の内容。
type Message struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]any
}

// payload はService Workerが受け取るJSON。
type payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// EndpointValidator は配信先URLの安全性を検証する。
type EndpointValidator interface {
	ValidateEndpoint(rawURL string) error
}

// Config はVAPID署名と配信オプションの設定。
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subject はVAPIDのsubクレーム。"mailto:"付きでもメールアドレスのみでもよい。
	Subject string
	TTL     time.Duration
}

// deliveryResult はプッシュサービスの応答ステータスの分類。
type deliveryResult int

const (
	// deliveryOK は配信受付済み（2xx）。
	deliveryOK deliveryResult = iota
	// deliveryGone は購読が失効している（404/410）。登録を削除する。
	deliveryGone
	// deliveryFailed はその他の失敗。再送は行わない。
	deliveryFailed
)

// classifyStatus はプッシュサービスのHTTPステータスを分類する。
func classifyStatus(statusCode int) deliveryResult {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return deliveryOK
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return deliveryGone
	default:
		return deliveryFailed
	}
}

// Sender はユーザーの全購読先へ通知を配信する。
type Sender struct {
	subs       repository.PushSubscriptionRepository
	validator  EndpointValidator
	httpClient webpush.HTTPClient
	cfg        Config
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

// NewSender はSenderを生成する。
// httpClientには security.EndpointGuard.NewSafeClient の戻り値を渡す。
func NewSender(
	subs repository.PushSubscriptionRepository,
	validator EndpointValidator,
	httpClient webpush.HTTPClient,
	cfg Config,
	m metrics.MetricsCollector,
	logger *slog.Logger,
) *Sender {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Sender{
		subs:       subs,
		validator:  validator,
		httpClient: httpClient,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
	}
}

// Send はユーザーの全購読先に通知を配信する。
// 購読先が0件の場合は成功として扱う。
// 失効した購読先は削除し、失敗として数えない。
// いずれかの配信が失敗した場合は、失敗をまとめたエラーを返す。
func (s *Sender) Send(ctx context.Context, msg Message) error {
	subs, err := s.subs.ListByUser(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("list push subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	body, err := json.Marshal(payload{Title: msg.Title, Body: msg.Body, Data: msg.Data})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	var errs []error
	for _, sub := range subs {
		if err := s.deliver(ctx, sub, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deliver は1件の購読先に配信する。
func (s *Sender) deliver(ctx context.Context, sub *model.PushSubscription, body []byte) error {
	if err := s.validator.ValidateEndpoint(sub.Endpoint); err != nil {
		s.metrics.RecordPushDelivery(metrics.OutcomeFailure)
		s.logger.Warn("安全でない配信先のためプッシュ通知をスキップしました",
			slog.String("subscription_id", sub.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("subscription %s: %w", sub.ID, err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.httpClient,
		Subscriber:      strings.TrimPrefix(s.cfg.Subject, "mailto:"),
		TTL:             int(s.cfg.TTL.Seconds()),
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
	})
	if err != nil {
		s.metrics.RecordPushDelivery(metrics.OutcomeFailure)
		return fmt.Errorf("subscription %s: send: %w", sub.ID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch classifyStatus(resp.StatusCode) {
	case deliveryOK:
		s.metrics.RecordPushDelivery(metrics.OutcomeSuccess)
		return nil
	case deliveryGone:
		s.metrics.RecordPushDelivery(metrics.OutcomePruned)
		if err := s.subs.DeleteByID(ctx, sub.ID); err != nil {
			return fmt.Errorf("subscription %s: prune: %w", sub.ID, err)
		}
		s.logger.Info("失効したプッシュ購読を削除しました",
			slog.String("subscription_id", sub.ID),
			slog.String("user_id", sub.UserID),
			slog.Int("status", resp.StatusCode),
		)
		return nil
	default:
		s.metrics.RecordPushDelivery(metrics.OutcomeFailure)
		return fmt.Errorf("subscription %s: push service returned status %d", sub.ID, resp.StatusCode)
	}
}
