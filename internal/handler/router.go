package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/freshtrack/internal/metrics"
	"github.com/hitoshi/freshtrack/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	SessionFinder  middleware.SessionFinder
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter

	// 運用エンドポイント。MetricsGathererがnilの場合は/metricsを公開しない
	HealthChecker   HealthChecker
	MetricsGatherer prometheus.Gatherer

	// ドメインサービス
	ItemService         ItemServiceInterface
	ItemTypeService     ItemTypeServiceInterface
	NotificationService NotificationServiceInterface
	PushService         PushServiceInterface
	UserService         UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → Logging → CORS
//	  → (認証ルートのみ) Session → RateLimit → OriginGuard
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewCORSMiddleware(deps.AllowedOrigins))

	itemHandler := NewItemHandler(deps.ItemService, logger)
	itemTypeHandler := NewItemTypeHandler(deps.ItemTypeService, logger)
	notificationHandler := NewNotificationHandler(deps.NotificationService, logger)
	pushHandler := NewPushHandler(deps.PushService, logger)
	userHandler := NewUserHandler(deps.UserService, logger)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker, logger))
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}
	r.Route("/api/item-types", func(r chi.Router) {
		r.Get("/", itemTypeHandler.List)
		r.Get("/{id}", itemTypeHandler.Get)
	})
	r.Get("/api/push/public-key", pushHandler.PublicKey)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, logger))
		r.Use(deps.RateLimiter.Middleware())
		r.Use(middleware.NewOriginGuardMiddleware(deps.AllowedOrigins, logger))

		r.Route("/api/items", func(r chi.Router) {
			r.Get("/", itemHandler.List)
			r.Post("/", itemHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", itemHandler.Get)
				r.Patch("/", itemHandler.Update)
				r.Delete("/", itemHandler.Delete)
			})
		})

		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Get("/unread-count", notificationHandler.UnreadCount)
			r.Post("/read-all", notificationHandler.MarkAllRead)
			r.Delete("/read", notificationHandler.DeleteAllRead)
			r.Route("/{id}", func(r chi.Router) {
				r.Post("/read", notificationHandler.MarkRead)
				r.Delete("/", notificationHandler.Delete)
			})
		})

		r.Route("/api/push", func(r chi.Router) {
			r.Post("/subscribe", pushHandler.Subscribe)
			r.Post("/unsubscribe", pushHandler.Unsubscribe)
			r.Get("/subscriptions", pushHandler.ListSubscriptions)
		})

		r.Route("/api/users/me", func(r chi.Router) {
			r.Get("/preferences", userHandler.GetPreferences)
			r.Put("/preferences", userHandler.UpdatePreferences)
		})
	})

	return r
}
