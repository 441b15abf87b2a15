// Package dbtest はPostgreSQLを使う結合テストの共通準備を提供する。
// TEST_DATABASE_URL が未設定、または接続できない場合はテストをスキップする。
package dbtest

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/hitoshi/freshtrack/internal/database"
)

// lockKey は結合テスト同士を直列化するアドバイザリロックのキー。
// go test はパッケージを並列に実行するため、同じデータベースを使うテストはこのロックを取る。
const lockKey = 7305011

// URL はテスト用データベースのURLを返す。未設定の場合はテストをスキップする。
func URL(t *testing.T) string {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}
	return dbURL
}

// Connect はテスト用データベースに接続し、テスト終了までロックを保持する。
func Connect(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dbURL := URL(t)

	db, err := database.Connect(context.Background(), dbURL, database.PoolConfig{MaxOpenConns: 4})
	if err != nil {
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("ロック用の接続取得に失敗: %v", err)
	}
	if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_lock($1)`, lockKey); err != nil {
		conn.Close()
		t.Fatalf("アドバイザリロックの取得に失敗: %v", err)
	}
	t.Cleanup(func() {
		conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockKey)
		conn.Close()
	})
	return db, dbURL
}

// Migrated は最新スキーマを適用し、指定テーブルを空にした接続を返す。
func Migrated(t *testing.T, truncate ...string) *sql.DB {
	t.Helper()
	db, dbURL := Connect(t)

	if _, err := database.RunMigrations(dbURL, nil); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	for _, table := range truncate {
		if _, err := db.Exec(`TRUNCATE ` + table + ` CASCADE`); err != nil {
			t.Fatalf("%s のクリーンアップに失敗: %v", table, err)
		}
	}
	return db
}
