package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/freshtrack/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// statusByCode はAPIErrorコードとHTTPステータスの対応表。
var statusByCode = map[string]int{
	model.ErrCodeItemNotFound:         http.StatusNotFound,
	model.ErrCodeItemTypeNotFound:     http.StatusNotFound,
	model.ErrCodeNotificationNotFound: http.StatusNotFound,
	model.ErrCodeSubscriptionNotFound: http.StatusNotFound,
	model.ErrCodeUserNotFound:         http.StatusNotFound,
	model.ErrCodeForbidden:            http.StatusForbidden,
	model.ErrCodeOriginRejected:       http.StatusForbidden,
	model.ErrCodeUnauthorized:         http.StatusUnauthorized,
	model.ErrCodeRateLimited:          http.StatusTooManyRequests,
	model.ErrCodePushDisabled:         http.StatusServiceUnavailable,
	model.ErrCodeInvalidStatus:        http.StatusBadRequest,
	model.ErrCodeInvalidPercent:       http.StatusBadRequest,
	model.ErrCodeInvalidItem:          http.StatusBadRequest,
	model.ErrCodeInvalidCursor:        http.StatusBadRequest,
	model.ErrCodeInvalidPreferences:   http.StatusBadRequest,
	model.ErrCodeInvalidSubscription:  http.StatusBadRequest,
	model.ErrCodeInvalidRequest:       http.StatusBadRequest,
}

// StatusForAPIError はAPIErrorコードに対応するHTTPステータスを返す。
// 未知のコードは500とする。
func StatusForAPIError(apiErr *model.APIError) int {
	if status, ok := statusByCode[apiErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteAPIError はコードに対応するステータスでAPIErrorを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForAPIError(apiErr), apiErr)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
