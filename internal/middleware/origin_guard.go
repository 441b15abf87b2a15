package middleware

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/freshtrack/internal/model"
)

// NewOriginGuardMiddleware はCookie認証の状態変更リクエストに対するCSRF対策ミドルウェアを返す。
// POST/PUT/PATCH/DELETEでOriginヘッダー（無ければRefererのオリジン）が付いている場合、
// 許可リストに含まれなければ403を返す。
// どちらも無いリクエストはブラウザ以外のクライアントとみなして通す。
func NewOriginGuardMiddleware(allowedOrigins []string, logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			origin := requestOrigin(r)
			if origin != "" && !originAllowed(origin, allowedOrigins) {
				logger.Warn("許可されていないオリジンからの状態変更リクエストを拒否しました",
					slog.String("origin", origin),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				WriteAPIError(w, model.NewOriginRejectedError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	ref := r.Header.Get("Referer")
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
