package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/freshtrack/internal/item"
	"github.com/hitoshi/freshtrack/internal/model"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func milkView() item.View {
	it := &model.Item{
		ID:         "11111111-1111-1111-1111-111111111111",
		UserID:     "user-123",
		Name:       "Milk",
		Price:      1.99,
		Quantity:   1,
		Status:     model.ItemStatusFresh,
		ItemTypeID: "type-milk",
		ItemType:   &model.ItemType{ID: "type-milk", Name: "Milk", Category: "Dairy", SuggestedLifeSpanSeconds: 3 * 86400},
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
	return item.NewView(it, testNow)
}

func TestItemHandler_List_ParsesFilter(t *testing.T) {
	var gotFilter model.ItemFilter
	svc := &mockItemService{
		listFn: func(ctx context.Context, userID string, filter model.ItemFilter) ([]item.View, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want user-123", userID)
			}
			gotFilter = filter
			return []item.View{milkView()}, nil
		},
	}
	h := NewItemHandler(svc, newTestLogger(&bytes.Buffer{}))

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/items?status=fresh,OLD&status=BAD&search=+milk+", nil), "user-123")
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	want := []model.ItemStatus{model.ItemStatusFresh, model.ItemStatusOld, model.ItemStatusBad}
	if !reflect.DeepEqual(gotFilter.Statuses, want) {
		t.Errorf("Statuses = %v, want %v", gotFilter.Statuses, want)
	}
	if gotFilter.Search != "milk" {
		t.Errorf("Search = %q, want milk", gotFilter.Search)
	}

	var resp itemListResponse
	decodeBody(t, w, &resp)
	if len(resp.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(resp.Items))
	}
	got := resp.Items[0]
	if got.Name != "Milk" || got.Freshness != "fresh" || got.TimeRemaining != "Expires in 3 days" {
		t.Errorf("unexpected item: %+v", got)
	}
	if got.DaysUntilExpiration == nil || *got.DaysUntilExpiration != 3 {
		t.Errorf("daysUntilExpiration = %v, want 3", got.DaysUntilExpiration)
	}
	if got.ItemType == nil || got.ItemType.Category != "Dairy" {
		t.Errorf("itemType = %+v, want Dairy", got.ItemType)
	}
}

func TestItemHandler_List_EmptyReturnsArray(t *testing.T) {
	h := NewItemHandler(&mockItemService{}, newTestLogger(&bytes.Buffer{}))

	w := httptest.NewRecorder()
	h.List(w, withUserID(httptest.NewRequest(http.MethodGet, "/api/items", nil), "user-123"))

	if body := strings.TrimSpace(w.Body.String()); body != `{"items":[]}` {
		t.Errorf("body = %s, want {\"items\":[]}", body)
	}
}

func TestItemHandler_List_NonPerishableHasNullExpiry(t *testing.T) {
	svc := &mockItemService{
		listFn: func(ctx context.Context, userID string, filter model.ItemFilter) ([]item.View, error) {
			it := &model.Item{ID: "i", Name: "Rice", Status: model.ItemStatusFresh, CreatedAt: testNow}
			return []item.View{item.NewView(it, testNow)}, nil
		},
	}
	h := NewItemHandler(svc, newTestLogger(&bytes.Buffer{}))

	w := httptest.NewRecorder()
	h.List(w, withUserID(httptest.NewRequest(http.MethodGet, "/api/items", nil), "user-123"))

	body := w.Body.String()
	for _, want := range []string{`"expiresAt":null`, `"daysUntilExpiration":null`, `"itemType":null`} {
		if !strings.Contains(body, want) {
			t.Errorf("body should contain %s: %s", want, body)
		}
	}
}

func TestItemHandler_Create_ReturnsCreatedWithWarning(t *testing.T) {
	svc := &mockItemService{
		createFn: func(ctx context.Context, userID string, input item.CreateInput) (*item.Result, error) {
			want := item.CreateInput{Name: "Milk", Price: 1.99, Quantity: 2, ItemTypeID: "type-milk"}
			if input != want {
				t.Errorf("input = %+v, want %+v", input, want)
			}
			return &item.Result{View: milkView(), Warning: "状態遷移を予約できませんでした"}, nil
		},
	}
	h := NewItemHandler(svc, newTestLogger(&bytes.Buffer{}))

	body := `{"name":"Milk","price":1.99,"quantity":2,"itemTypeId":"type-milk"}`
	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(body)), "user-123")
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var resp itemResultResponse
	decodeBody(t, w, &resp)
	if resp.Item.ID != milkView().Item.ID {
		t.Errorf("item.id = %q", resp.Item.ID)
	}
	if resp.Warning == "" {
		t.Error("warning should be present")
	}
}

func TestItemHandler_Create_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := NewItemHandler(&mockItemService{}, newTestLogger(&bytes.Buffer{}))

	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader("{")), "user-123")
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if errResp := parseAPIErrorResponse(t, w); errResp["code"] != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeInvalidRequest)
	}
}

func TestItemHandler_Create_ServiceValidationError(t *testing.T) {
	svc := &mockItemService{
		createFn: func(ctx context.Context, userID string, input item.CreateInput) (*item.Result, error) {
			return nil, model.NewItemTypeNotFoundError(input.ItemTypeID)
		},
	}
	h := NewItemHandler(svc, newTestLogger(&bytes.Buffer{}))

	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"name":"x","itemTypeId":"nope"}`)), "user-123")
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestItemHandler_Get_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"未検出", model.NewItemNotFoundError("x"), http.StatusNotFound, model.ErrCodeItemNotFound},
		{"他ユーザー", model.NewForbiddenError("食材"), http.StatusForbidden, model.ErrCodeForbidden},
		{"内部エラー", errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			svc := &mockItemService{
				getFn: func(ctx context.Context, userID, itemID string) (*item.View, error) {
					if itemID != "item-9" {
						t.Errorf("itemID = %q, want item-9", itemID)
					}
					return nil, tt.err
				},
			}
			h := NewItemHandler(svc, newTestLogger(&buf))

			req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/api/items/item-9", nil), "id", "item-9")
			w := httptest.NewRecorder()
			h.Get(w, withUserID(req, "user-123"))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			errResp := parseAPIErrorResponse(t, w)
			if errResp["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", errResp["code"], tt.wantCode)
			}
			if strings.Contains(errResp["message"], "connection refused") {
				t.Error("internal error details must not leak to the response")
			}
		})
	}
}

func TestItemHandler_Update_PassesPartialInput(t *testing.T) {
	svc := &mockItemService{
		updateFn: func(ctx context.Context, userID, itemID string, input item.UpdateInput) (*item.Result, error) {
			if input.Name != nil || input.Price != nil || input.Quantity != nil {
				t.Errorf("unset fields should stay nil: %+v", input)
			}
			if input.PercentConsumed == nil || *input.PercentConsumed != 100 {
				t.Errorf("PercentConsumed = %v, want 100", input.PercentConsumed)
			}
			if input.Status == nil || *input.Status != model.ItemStatusEaten {
				t.Errorf("Status = %v, want EATEN", input.Status)
			}
			if input.ItemTypeID == nil || *input.ItemTypeID != "" {
				t.Errorf("ItemTypeID = %v, want empty string pointer", input.ItemTypeID)
			}
			return &item.Result{View: milkView()}, nil
		},
	}
	h := NewItemHandler(svc, newTestLogger(&bytes.Buffer{}))

	body := `{"percentConsumed":100,"status":"eaten","itemTypeId":""}`
	req := withChiURLParam(httptest.NewRequest(http.MethodPatch, "/api/items/x", strings.NewReader(body)), "id", "x")
	w := httptest.NewRecorder()
	h.Update(w, withUserID(req, "user-123"))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if strings.Contains(w.Body.String(), `"warning"`) {
		t.Errorf("warning should be omitted when empty: %s", w.Body.String())
	}
}

func TestItemHandler_Delete_ReturnsNoContent(t *testing.T) {
	deleted := ""
	svc := &mockItemService{
		deleteFn: func(ctx context.Context, userID, itemID string) error {
			deleted = itemID
			return nil
		},
	}
	h := NewItemHandler(svc, newTestLogger(&bytes.Buffer{}))

	req := withChiURLParam(httptest.NewRequest(http.MethodDelete, "/api/items/item-1", nil), "id", "item-1")
	w := httptest.NewRecorder()
	h.Delete(w, withUserID(req, "user-123"))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deleted != "item-1" {
		t.Errorf("deleted = %q, want item-1", deleted)
	}
}

func TestItemHandler_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewItemHandler(&mockItemService{}, newTestLogger(&bytes.Buffer{}))

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/items", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if errResp := parseAPIErrorResponse(t, w); errResp["code"] != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeUnauthorized)
	}
}
