package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/freshtrack/internal/model"
)

// TestWriteErrorResponse_WritesUnifiedFormat は統一エラーフォーマットでレスポンスが書き込まれることを検証する。
func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "TEST_ERROR",
		Message:  "テストエラーです。",
		Category: "validation",
		Action:   "正しい値を入力してください。",
	})

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	want := map[string]string{
		"code":     "TEST_ERROR",
		"message":  "テストエラーです。",
		"category": "validation",
		"action":   "正しい値を入力してください。",
	}
	for field, v := range want {
		if raw[field] != v {
			t.Errorf("%s = %v, want %q", field, raw[field], v)
		}
	}
}

// TestWriteAPIError_MapsCodeToStatus はエラーコードからHTTPステータスが決まることを検証する。
func TestWriteAPIError_MapsCodeToStatus(t *testing.T) {
	tests := []struct {
		err  *model.APIError
		want int
	}{
		{model.NewItemNotFoundError("x"), http.StatusNotFound},
		{model.NewItemTypeNotFoundError("x"), http.StatusNotFound},
		{model.NewNotificationNotFoundError("x"), http.StatusNotFound},
		{model.NewSubscriptionNotFoundError(), http.StatusNotFound},
		{model.NewUserNotFoundError(), http.StatusNotFound},
		{model.NewForbiddenError("食材"), http.StatusForbidden},
		{model.NewOriginRejectedError(), http.StatusForbidden},
		{model.NewUnauthorizedError(), http.StatusUnauthorized},
		{model.NewRateLimitedError(), http.StatusTooManyRequests},
		{model.NewPushDisabledError(), http.StatusServiceUnavailable},
		{model.NewInvalidStatusError("X"), http.StatusBadRequest},
		{model.NewInvalidPercentError(101), http.StatusBadRequest},
		{model.NewInvalidItemError("x"), http.StatusBadRequest},
		{model.NewInvalidCursorError("x"), http.StatusBadRequest},
		{model.NewInvalidPreferencesError("x"), http.StatusBadRequest},
		{model.NewInvalidSubscriptionError("x"), http.StatusBadRequest},
		{model.NewInvalidRequestError("x"), http.StatusBadRequest},
		{&model.APIError{Code: "SOMETHING_NEW"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteAPIError(w, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if body := decodeErrorBody(t, w); body.Code != tt.err.Code {
				t.Errorf("code = %q, want %q", body.Code, tt.err.Code)
			}
		})
	}
}

// TestInternalServerError_ReturnsSystemError は内部エラーが統一フォーマットで返ることを検証する。
func TestInternalServerError_ReturnsSystemError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := decodeErrorBody(t, w)
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want %q", body.Code, "INTERNAL_ERROR")
	}
	if body.Category != "system" {
		t.Errorf("category = %q, want %q", body.Category, "system")
	}
	if body.Action == "" {
		t.Error("action should not be empty")
	}
}
