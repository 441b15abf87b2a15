package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/freshtrack/internal/middleware"
	"github.com/hitoshi/freshtrack/internal/model"
	"github.com/hitoshi/freshtrack/internal/notification"
)

// NotificationServiceInterface は通知ハンドラーが必要とするサービスインターフェース。
type NotificationServiceInterface interface {
	List(ctx context.Context, userID, cursor string, limit int, unreadOnly bool) (*notification.ListResult, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteAllRead(ctx context.Context, userID string) (int64, error)
}

// NotificationHandler はアプリ内通知のHTTPハンドラー。
type NotificationHandler struct {
	service NotificationServiceInterface
	logger  *slog.Logger
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationServiceInterface, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, logger: logger}
}

type notificationResponse struct {
	ID        string                     `json:"id"`
	ItemID    string                     `json:"itemId"`
	Type      model.NotificationType     `json:"type"`
	Title     string                     `json:"title"`
	Message   string                     `json:"message"`
	Metadata  model.NotificationMetadata `json:"metadata"`
	Read      bool                       `json:"read"`
	ReadAt    *time.Time                 `json:"readAt"`
	CreatedAt time.Time                  `json:"createdAt"`
}

type notificationListResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	NextCursor    string                 `json:"nextCursor,omitempty"`
	HasMore       bool                   `json:"hasMore"`
}

func toNotificationResponse(n *model.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		ItemID:    n.ItemID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Metadata:  n.Metadata,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

// List は通知一覧を返す。
// GET /api/notifications?cursor=xxx&limit=20&unreadOnly=true
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			middleware.WriteAPIError(w, model.NewInvalidRequestError("limitは整数で指定してください"))
			return
		}
		limit = n
	}
	unreadOnly := false
	if raw := q.Get("unreadOnly"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			middleware.WriteAPIError(w, model.NewInvalidRequestError("unreadOnlyはtrueまたはfalseで指定してください"))
			return
		}
		unreadOnly = b
	}

	result, err := h.service.List(r.Context(), userID, q.Get("cursor"), limit, unreadOnly)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	resp := notificationListResponse{
		Notifications: make([]notificationResponse, len(result.Notifications)),
		NextCursor:    result.NextCursor,
		HasMore:       result.NextCursor != "",
	}
	for i, n := range result.Notifications {
		resp.Notifications[i] = toNotificationResponse(n)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UnreadCount は未読件数を返す。
// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkRead は通知を既読にする。
// POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	n, err := h.service.MarkRead(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponse(n))
}

// MarkAllRead は未読通知をすべて既読にする。
// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	updated, err := h.service.MarkAllRead(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// Delete は通知を削除する。
// DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllRead は既読通知をすべて削除する。
// DELETE /api/notifications/read
func (h *NotificationHandler) DeleteAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.DeleteAllRead(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
