package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/freshtrack/internal/model"
	"github.com/hitoshi/freshtrack/internal/push"
)

// PushServiceInterface はプッシュ購読ハンドラーが必要とするサービスインターフェース。
type PushServiceInterface interface {
	PublicKey() (string, error)
	Subscribe(ctx context.Context, userID string, input push.SubscribeInput) (*model.PushSubscription, error)
	Unsubscribe(ctx context.Context, userID, endpoint string) error
	List(ctx context.Context, userID string) ([]*model.PushSubscription, error)
}

// PushHandler はWeb Push購読のHTTPハンドラー。
type PushHandler struct {
	service PushServiceInterface
	logger  *slog.Logger
}

// NewPushHandler はPushHandlerを生成する。
func NewPushHandler(service PushServiceInterface, logger *slog.Logger) *PushHandler {
	return &PushHandler{service: service, logger: logger}
}

// subscribeRequest はブラウザのPushSubscription.toJSON()の形。
type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// pushSubscriptionResponse は鍵を含めない購読情報。
type pushSubscriptionResponse struct {
	ID        string    `json:"id"`
	Endpoint  string    `json:"endpoint"`
	CreatedAt time.Time `json:"createdAt"`
}

func toPushSubscriptionResponse(s *model.PushSubscription) pushSubscriptionResponse {
	return pushSubscriptionResponse{ID: s.ID, Endpoint: s.Endpoint, CreatedAt: s.CreatedAt}
}

// PublicKey はVAPID公開鍵を返す。
// GET /api/push/public-key
func (h *PushHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.service.PublicKey()
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": key})
}

// Subscribe は配信先を登録する。同じendpointの再登録は鍵の更新として扱う。
// POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req subscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.service.Subscribe(r.Context(), userID, push.SubscribeInput{
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPushSubscriptionResponse(sub))
}

// Unsubscribe は配信先を解除する。
// POST /api/push/unsubscribe
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req unsubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.Unsubscribe(r.Context(), userID, req.Endpoint); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions は登録済みの配信先を返す。
// GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	subs, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	resp := struct {
		Subscriptions []pushSubscriptionResponse `json:"subscriptions"`
	}{Subscriptions: make([]pushSubscriptionResponse, len(subs))}
	for i, s := range subs {
		resp.Subscriptions[i] = toPushSubscriptionResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}
