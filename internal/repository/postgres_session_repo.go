package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/hitoshi/freshtrack/internal/model"
)

// PostgresSessionRepo は外部の認証サービスが発行したセッションを参照する。
type PostgresSessionRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db, now: time.Now}
}

// FindByID は有効期限内のセッションを返す。存在しないか期限切れの場合はnil。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	query, args, err := psql.
		Select("id", "user_id", "expires_at", "created_at").
		From("sessions").
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Gt{"expires_at": r.now()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("セッション検索クエリの生成に失敗: %w", err)
	}

	var s model.Session
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗: %w", err)
	}
	return &s, nil
}
