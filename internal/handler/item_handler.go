package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/freshtrack/internal/item"
	"github.com/hitoshi/freshtrack/internal/model"
)

// ItemServiceInterface は食材ハンドラーが必要とするサービスインターフェース。
type ItemServiceInterface interface {
	Create(ctx context.Context, userID string, input item.CreateInput) (*item.Result, error)
	Update(ctx context.Context, userID, itemID string, input item.UpdateInput) (*item.Result, error)
	Delete(ctx context.Context, userID, itemID string) error
	Get(ctx context.Context, userID, itemID string) (*item.View, error)
	List(ctx context.Context, userID string, filter model.ItemFilter) ([]item.View, error)
}

// ItemHandler は在庫食材のHTTPハンドラー。
type ItemHandler struct {
	service ItemServiceInterface
	logger  *slog.Logger
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service ItemServiceInterface, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{service: service, logger: logger}
}

// --- リクエスト/レスポンス型 ---

type createItemRequest struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	ItemTypeID string  `json:"itemTypeId"`
}

type updateItemRequest struct {
	Name            *string  `json:"name"`
	Price           *float64 `json:"price"`
	Quantity        *int     `json:"quantity"`
	PercentConsumed *int     `json:"percentConsumed"`
	Status          *string  `json:"status"`
	ItemTypeID      *string  `json:"itemTypeId"`
}

type itemResponse struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Price               float64           `json:"price"`
	Quantity            int               `json:"quantity"`
	PercentConsumed     int               `json:"percentConsumed"`
	Status              model.ItemStatus  `json:"status"`
	ItemType            *itemTypeResponse `json:"itemType"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
	ExpiresAt           *time.Time        `json:"expiresAt"`
	DaysUntilExpiration *int              `json:"daysUntilExpiration"`
	Freshness           string            `json:"freshness"`
	TimeRemaining       string            `json:"timeRemaining,omitempty"`
}

type itemResultResponse struct {
	Item    itemResponse `json:"item"`
	Warning string       `json:"warning,omitempty"`
}

type itemListResponse struct {
	Items []itemResponse `json:"items"`
}

func toItemResponse(v item.View) itemResponse {
	resp := itemResponse{
		ID:                  v.Item.ID,
		Name:                v.Item.Name,
		Price:               v.Item.Price,
		Quantity:            v.Item.Quantity,
		PercentConsumed:     v.Item.PercentConsumed,
		Status:              v.Item.Status,
		CreatedAt:           v.Item.CreatedAt,
		UpdatedAt:           v.Item.UpdatedAt,
		ExpiresAt:           v.ExpiresAt,
		DaysUntilExpiration: v.DaysUntil,
		Freshness:           string(v.Freshness),
		TimeRemaining:       v.TimeRemaining,
	}
	if v.Item.ItemType != nil {
		it := toItemTypeResponse(v.Item.ItemType)
		resp.ItemType = &it
	}
	return resp
}

// List は食材一覧を返す。
// GET /api/items?status=FRESH,OLD&search=milk
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filter := model.ItemFilter{Search: strings.TrimSpace(r.URL.Query().Get("search"))}
	for _, raw := range r.URL.Query()["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, model.ItemStatus(strings.ToUpper(s)))
			}
		}
	}

	views, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	resp := itemListResponse{Items: make([]itemResponse, len(views))}
	for i, v := range views {
		resp.Items[i] = toItemResponse(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create は食材を登録する。
// POST /api/items
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Create(r.Context(), userID, item.CreateInput{
		Name:       req.Name,
		Price:      req.Price,
		Quantity:   req.Quantity,
		ItemTypeID: req.ItemTypeID,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, itemResultResponse{
		Item:    toItemResponse(result.View),
		Warning: result.Warning,
	})
}

// Get は食材を1件返す。
// GET /api/items/{id}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	view, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(*view))
}

// Update は食材を部分更新する。
// PATCH /api/items/{id}
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := item.UpdateInput{
		Name:            req.Name,
		Price:           req.Price,
		Quantity:        req.Quantity,
		PercentConsumed: req.PercentConsumed,
		ItemTypeID:      req.ItemTypeID,
	}
	if req.Status != nil {
		status := model.ItemStatus(strings.ToUpper(*req.Status))
		input.Status = &status
	}

	result, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), input)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, itemResultResponse{
		Item:    toItemResponse(result.View),
		Warning: result.Warning,
	})
}

// Delete は食材を削除する。
// DELETE /api/items/{id}
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
