package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// loggedUserKey は後段のセッションミドルウェアが認証済みユーザーIDを書き戻す箱のキー。
var loggedUserKey = contextKey("logged_user")

// recordUserID はアクセスログ用にユーザーIDを記録する。
// ロギングミドルウェアを通っていないリクエストでは何もしない。
func recordUserID(ctx context.Context, userID string) {
	if holder, ok := ctx.Value(loggedUserKey).(*atomic.Value); ok {
		holder.Store(userID)
	}
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// request_idはchiのRequestIDがある場合、user_idは認証済みの場合のみ含む。
// 5xxはERROR、4xxはWARNで出力する。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			holder := &atomic.Value{}
			ctx := context.WithValue(r.Context(), loggedUserKey, holder)

			next.ServeHTTP(ww, r.WithContext(ctx))

			// 何も書き込まずに返ったハンドラーはnet/httpが200を返す
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			}
			if reqID := chimw.GetReqID(r.Context()); reqID != "" {
				args = append(args, slog.String("request_id", reqID))
			}
			if userID, ok := holder.Load().(string); ok && userID != "" {
				args = append(args, slog.String("user_id", userID))
			} else if userID, err := UserIDFromContext(r.Context()); err == nil {
				args = append(args, slog.String("user_id", userID))
			}

			logger.Log(r.Context(), levelForStatus(status), "http_request", args...)
		})
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
