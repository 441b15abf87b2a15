package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Scheduler（外部の遅延タスクスケジューラ）
	SchedulerAPIURL  string
	SchedulerAPIKey  string
	SchedulerTimeout time.Duration
	// ItemRemovalDelay は食べ終えた/廃棄した食材を在庫から削除するまでの猶予
	ItemRemovalDelay time.Duration

	// Web Push
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	PushTimeout     time.Duration
	PushTTL         time.Duration

	// Sweep
	SweepSchedule       string
	SweepLocation       *time.Location
	SweepMaxConcurrency int

	// Cleanup
	NotificationRetentionDays int
	CleanupInterval           time.Duration

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort        string
	// WorkerMetricsPort はworkerモードで/metricsを公開するポート。空の場合は公開しない
	WorkerMetricsPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// PushEnabled はWeb Push配信に必要なVAPID鍵が揃っているかを返す。
func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SchedulerAPIURL = os.Getenv("SCHEDULER_API_URL")
	if cfg.SchedulerAPIURL == "" {
		missing = append(missing, "SCHEDULER_API_URL")
	}

	cfg.SchedulerAPIKey = os.Getenv("SCHEDULER_API_KEY")
	if cfg.SchedulerAPIKey == "" {
		missing = append(missing, "SCHEDULER_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.SchedulerTimeout = getEnvDuration("SCHEDULER_TIMEOUT", 10*time.Second)
	cfg.ItemRemovalDelay = getEnvDuration("ITEM_REMOVAL_DELAY", 7*24*time.Hour)
	cfg.VAPIDPublicKey = getEnvString("VAPID_PUBLIC_KEY", "")
	cfg.VAPIDPrivateKey = getEnvString("VAPID_PRIVATE_KEY", "")
	cfg.VAPIDSubject = getEnvString("VAPID_SUBJECT", "mailto:admin@localhost")
	cfg.PushTimeout = getEnvDuration("PUSH_TIMEOUT", 10*time.Second)
	cfg.PushTTL = getEnvDuration("PUSH_TTL", 24*time.Hour)
	cfg.SweepSchedule = getEnvString("SWEEP_SCHEDULE", "0 * * * *")
	cfg.SweepMaxConcurrency = getEnvInt("SWEEP_MAX_CONCURRENCY", 4)
	cfg.NotificationRetentionDays = getEnvInt("NOTIFICATION_RETENTION_DAYS", 30)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.WorkerMetricsPort = os.Getenv("WORKER_METRICS_PORT")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	loc, err := time.LoadLocation(getEnvString("SWEEP_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_TIMEZONE: %w", err)
	}
	cfg.SweepLocation = loc

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
