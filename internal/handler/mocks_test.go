package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/freshtrack/internal/item"
	"github.com/hitoshi/freshtrack/internal/middleware"
	"github.com/hitoshi/freshtrack/internal/model"
	"github.com/hitoshi/freshtrack/internal/notification"
	"github.com/hitoshi/freshtrack/internal/push"
	"github.com/hitoshi/freshtrack/internal/user"
)

// --- モック定義 ---

type mockItemService struct {
	createFn func(ctx context.Context, userID string, input item.CreateInput) (*item.Result, error)
	updateFn func(ctx context.Context, userID, itemID string, input item.UpdateInput) (*item.Result, error)
	deleteFn func(ctx context.Context, userID, itemID string) error
	getFn    func(ctx context.Context, userID, itemID string) (*item.View, error)
	listFn   func(ctx context.Context, userID string, filter model.ItemFilter) ([]item.View, error)
}

func (m *mockItemService) Create(ctx context.Context, userID string, input item.CreateInput) (*item.Result, error) {
	return m.createFn(ctx, userID, input)
}

func (m *mockItemService) Update(ctx context.Context, userID, itemID string, input item.UpdateInput) (*item.Result, error) {
	return m.updateFn(ctx, userID, itemID, input)
}

func (m *mockItemService) Delete(ctx context.Context, userID, itemID string) error {
	return m.deleteFn(ctx, userID, itemID)
}

func (m *mockItemService) Get(ctx context.Context, userID, itemID string) (*item.View, error) {
	return m.getFn(ctx, userID, itemID)
}

func (m *mockItemService) List(ctx context.Context, userID string, filter model.ItemFilter) ([]item.View, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, filter)
	}
	return nil, nil
}

type mockItemTypeService struct {
	listFn func(ctx context.Context) ([]*model.ItemType, error)
	getFn  func(ctx context.Context, id string) (*model.ItemType, error)
}

func (m *mockItemTypeService) List(ctx context.Context) ([]*model.ItemType, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockItemTypeService) Get(ctx context.Context, id string) (*model.ItemType, error) {
	return m.getFn(ctx, id)
}

type mockNotificationService struct {
	listFn          func(ctx context.Context, userID, cursor string, limit int, unreadOnly bool) (*notification.ListResult, error)
	unreadCountFn   func(ctx context.Context, userID string) (int, error)
	markReadFn      func(ctx context.Context, userID, id string) (*model.Notification, error)
	markAllReadFn   func(ctx context.Context, userID string) (int64, error)
	deleteFn        func(ctx context.Context, userID, id string) error
	deleteAllReadFn func(ctx context.Context, userID string) (int64, error)
}

func (m *mockNotificationService) List(ctx context.Context, userID, cursor string, limit int, unreadOnly bool) (*notification.ListResult, error) {
	return m.listFn(ctx, userID, cursor, limit, unreadOnly)
}

func (m *mockNotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return m.unreadCountFn(ctx, userID)
}

func (m *mockNotificationService) MarkRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	return m.markReadFn(ctx, userID, id)
}

func (m *mockNotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return m.markAllReadFn(ctx, userID)
}

func (m *mockNotificationService) Delete(ctx context.Context, userID, id string) error {
	return m.deleteFn(ctx, userID, id)
}

func (m *mockNotificationService) DeleteAllRead(ctx context.Context, userID string) (int64, error) {
	return m.deleteAllReadFn(ctx, userID)
}

type mockPushService struct {
	publicKeyFn   func() (string, error)
	subscribeFn   func(ctx context.Context, userID string, input push.SubscribeInput) (*model.PushSubscription, error)
	unsubscribeFn func(ctx context.Context, userID, endpoint string) error
	listFn        func(ctx context.Context, userID string) ([]*model.PushSubscription, error)
}

func (m *mockPushService) PublicKey() (string, error) {
	if m.publicKeyFn != nil {
		return m.publicKeyFn()
	}
	return "", model.NewPushDisabledError()
}

func (m *mockPushService) Subscribe(ctx context.Context, userID string, input push.SubscribeInput) (*model.PushSubscription, error) {
	return m.subscribeFn(ctx, userID, input)
}

func (m *mockPushService) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	return m.unsubscribeFn(ctx, userID, endpoint)
}

func (m *mockPushService) List(ctx context.Context, userID string) ([]*model.PushSubscription, error) {
	return m.listFn(ctx, userID)
}

type mockUserService struct {
	getPreferencesFn    func(ctx context.Context, userID string) (*user.Preferences, error)
	updatePreferencesFn func(ctx context.Context, userID string, raw json.RawMessage) (*user.Preferences, error)
}

func (m *mockUserService) GetPreferences(ctx context.Context, userID string) (*user.Preferences, error) {
	return m.getPreferencesFn(ctx, userID)
}

func (m *mockUserService) UpdatePreferences(ctx context.Context, userID string, raw json.RawMessage) (*user.Preferences, error) {
	return m.updatePreferencesFn(ctx, userID, raw)
}

// --- テストヘルパー ---

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
}
