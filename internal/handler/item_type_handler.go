package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/freshtrack/internal/model"
)

// ItemTypeServiceInterface は食材種別ハンドラーが必要とするサービスインターフェース。
type ItemTypeServiceInterface interface {
	List(ctx context.Context) ([]*model.ItemType, error)
	Get(ctx context.Context, id string) (*model.ItemType, error)
}

// ItemTypeHandler は食材種別（参照データ）のHTTPハンドラー。
type ItemTypeHandler struct {
	service ItemTypeServiceInterface
	logger  *slog.Logger
}

// NewItemTypeHandler はItemTypeHandlerを生成する。
func NewItemTypeHandler(service ItemTypeServiceInterface, logger *slog.Logger) *ItemTypeHandler {
	return &ItemTypeHandler{service: service, logger: logger}
}

type itemTypeResponse struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Category                 string `json:"category"`
	StorageAdvice            string `json:"storageAdvice"`
	SuggestedLifeSpanSeconds int64  `json:"suggestedLifeSpanSeconds"`
}

func toItemTypeResponse(t *model.ItemType) itemTypeResponse {
	return itemTypeResponse{
		ID:                       t.ID,
		Name:                     t.Name,
		Category:                 t.Category,
		StorageAdvice:            t.StorageAdvice,
		SuggestedLifeSpanSeconds: t.SuggestedLifeSpanSeconds,
	}
}

// List は食材種別の一覧を返す。
// GET /api/item-types
func (h *ItemTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	resp := struct {
		ItemTypes []itemTypeResponse `json:"itemTypes"`
	}{ItemTypes: make([]itemTypeResponse, len(types))}
	for i, t := range types {
		resp.ItemTypes[i] = toItemTypeResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get は食材種別を1件返す。
// GET /api/item-types/{id}
func (h *ItemTypeHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemTypeResponse(t))
}
