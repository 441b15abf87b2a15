package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/freshtrack/internal/config"
	"github.com/hitoshi/freshtrack/internal/database"
	"github.com/hitoshi/freshtrack/internal/handler"
	"github.com/hitoshi/freshtrack/internal/item"
	"github.com/hitoshi/freshtrack/internal/itemtype"
	"github.com/hitoshi/freshtrack/internal/logger"
	"github.com/hitoshi/freshtrack/internal/metrics"
	"github.com/hitoshi/freshtrack/internal/middleware"
	"github.com/hitoshi/freshtrack/internal/notification"
	"github.com/hitoshi/freshtrack/internal/push"
	"github.com/hitoshi/freshtrack/internal/repository"
	"github.com/hitoshi/freshtrack/internal/security"
	"github.com/hitoshi/freshtrack/internal/transition"
	"github.com/hitoshi/freshtrack/internal/user"
	"github.com/hitoshi/freshtrack/internal/worker/cleanup"
	"github.com/hitoshi/freshtrack/internal/worker/expiring"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "info")

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映してロガーを差し替える
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// 以下の2つは軽量サブコマンドのため、フル初期化をスキップする
	switch cmd {
	case CommandHealthcheck:
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	case CommandVAPIDKeys:
		return runVAPIDKeys(w)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("push_enabled", cfg.PushEnabled()),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandSweep:
		return runSweep(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase は設定のプール値でDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	return database.Connect(context.Background(), cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
}

// newRegistry はGo実行時とプロセスのメトリクスを含むPrometheusレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newNotifier はVAPID鍵が設定されている場合にWeb Push送信者を生成する。
// 未設定の場合はnilを返し、スイープはアプリ内通知のみ作成する。
func newNotifier(cfg *config.Config, subRepo repository.PushSubscriptionRepository, guard security.EndpointGuard, m metrics.MetricsCollector) expiring.Notifier {
	if !cfg.PushEnabled() {
		slog.Warn("VAPID鍵が未設定のためプッシュ通知を無効化しました")
		return nil
	}
	return push.NewSender(
		subRepo,
		guard,
		guard.NewSafeClient(cfg.PushTimeout),
		push.Config{
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			Subject:         cfg.VAPIDSubject,
			TTL:             cfg.PushTTL,
		},
		m,
		slog.Default(),
	)
}

// newExpiringJob は賞味期限チェックのスイープジョブを組み立てる。
func newExpiringJob(cfg *config.Config, db *sql.DB, m metrics.MetricsCollector) *expiring.Job {
	subRepo := repository.NewPostgresPushSubscriptionRepo(db)
	return expiring.NewJob(
		repository.NewPostgresUserRepo(db),
		repository.NewPostgresItemRepo(db),
		repository.NewPostgresNotificationRepo(db),
		newNotifier(cfg, subRepo, security.NewEndpointGuard(), m),
		cfg.SweepLocation,
		m,
		slog.Default(),
		cfg.SweepMaxConcurrency,
	)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	itemTypeRepo := repository.NewPostgresItemTypeRepo(db)
	itemRepo := repository.NewPostgresItemRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)
	subRepo := repository.NewPostgresPushSubscriptionRepo(db)

	// 3. セキュリティとメトリクスの初期化
	endpointGuard := security.NewEndpointGuard()
	sanitizer := security.NewTextSanitizer()
	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	// 4. ドメインサービスの初期化
	scheduler := transition.NewClient(
		&http.Client{Timeout: cfg.SchedulerTimeout},
		cfg.SchedulerAPIURL,
		cfg.SchedulerAPIKey,
		collector,
		slog.Default(),
	)
	itemService := item.NewService(
		itemRepo, itemTypeRepo, scheduler, sanitizer, slog.Default(),
		item.WithRemovalDelay(cfg.ItemRemovalDelay),
	)
	itemTypeService := itemtype.NewService(itemTypeRepo, slog.Default())
	notificationService := notification.NewService(notificationRepo, time.Now)
	pushService := push.NewService(subRepo, endpointGuard, cfg.VAPIDPublicKey, slog.Default())
	userService := user.NewService(userRepo, slog.Default())

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral),
		slog.Default(),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:          slog.Default(),
		SessionFinder:   sessionRepo,
		AllowedOrigins:  middleware.ParseAllowedOrigins(cfg.CORSAllowedOrigin),
		RateLimiter:     rateLimiter,
		HealthChecker:   db,
		MetricsGatherer: reg,

		ItemService:         itemService,
		ItemTypeService:     itemTypeService,
		NotificationService: notificationService,
		PushService:         pushService,
		UserService:         userService,
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 賞味期限チェックをcron式に従って実行し、既読通知のクリーンアップを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// 2. メトリクスとジョブの初期化
	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	expiringJob := newExpiringJob(cfg, db, collector)

	cleanupJob := cleanup.NewCleanupJob(repository.NewPostgresNotificationRepo(db), collector, slog.Default())
	cleanupJob.RetentionDays = cfg.NotificationRetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 3. メトリクス公開（任意）
	if cfg.WorkerMetricsPort != "" {
		metricsServer := &http.Server{
			Addr:              ":" + cfg.WorkerMetricsPort,
			Handler:           metrics.SetupMetricsRoute(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server listen error", slog.String("error", err.Error()))
			}
		}()
		defer metricsServer.Close()
	}

	slog.Info("worker starting",
		slog.String("sweep_schedule", cfg.SweepSchedule),
		slog.String("sweep_timezone", cfg.SweepLocation.String()),
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
	)

	// クリーンアップジョブをバックグラウンドで実行
	cleanupDone := make(chan struct{})
	go func() {
		defer close(cleanupDone)
		cleanupJob.Start(ctx, cfg.CleanupInterval)
	}()

	// 賞味期限チェックをメインgoroutineで実行（ブロッキング）
	err = expiringJob.Start(ctx, cfg.SweepSchedule)
	cancel()
	<-cleanupDone
	if err != nil {
		return err
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runSweep は賞味期限チェックを1回だけ実行する。
func runSweep(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	job := newExpiringJob(cfg, db, metrics.Nop{})
	if _, err := job.RunOnce(ctx, time.Now()); err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	return nil
}

// runMigrate はデータベースマイグレーションを実行し、組み込みの食材種別を投入する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL, slog.Default())
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	seeder := itemtype.NewService(repository.NewPostgresItemTypeRepo(db), slog.Default())
	if _, err := seeder.Seed(context.Background()); err != nil {
		return fmt.Errorf("item type seed failed: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// runVAPIDKeys はVAPID鍵ペアを生成し、環境変数の形式でwに書き出す。
func runVAPIDKeys(w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return fmt.Errorf("failed to generate VAPID keys: %w", err)
	}
	_, err = fmt.Fprintf(w, "VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", publicKey, privateKey)
	return err
}

// maskDatabaseURL はデータベースURLのパスワードとクエリをマスクする。
// 解析できないURLは全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	u.RawQuery = ""
	return u.Redacted()
}
