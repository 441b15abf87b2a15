package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/freshtrack/internal/user"
)

// UserServiceInterface はユーザー設定ハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetPreferences(ctx context.Context, userID string) (*user.Preferences, error)
	UpdatePreferences(ctx context.Context, userID string, raw json.RawMessage) (*user.Preferences, error)
}

// UserHandler はユーザー設定のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	logger  *slog.Logger
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

// preferencesResponse は保存値そのものと、デフォルトを補った実効値。
type preferencesResponse struct {
	Preferences json.RawMessage `json:"preferences"`
	Effective   struct {
		NotificationsEnabled bool `json:"notificationsEnabled"`
		ExpiringItemsEnabled bool `json:"expiringItemsEnabled"`
		WarningDays          int  `json:"warningDays"`
	} `json:"effective"`
}

func toPreferencesResponse(p *user.Preferences) preferencesResponse {
	var resp preferencesResponse
	resp.Preferences = p.Raw
	resp.Effective.NotificationsEnabled = p.NotificationsEnabled
	resp.Effective.ExpiringItemsEnabled = p.ExpiringItemsEnabled
	resp.Effective.WarningDays = p.WarningDays
	return resp
}

// GetPreferences はユーザー設定を返す。
// GET /api/users/me/preferences
func (h *UserHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	prefs, err := h.service.GetPreferences(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPreferencesResponse(prefs))
}

// UpdatePreferences はユーザー設定を置き換える。
// PUT /api/users/me/preferences
func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var raw json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), userID, raw)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPreferencesResponse(prefs))
}
