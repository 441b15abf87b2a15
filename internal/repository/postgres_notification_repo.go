package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/hitoshi/freshtrack/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

var notificationColumns = []string{
	"id", "user_id", "item_id", "type", "title", "message", "metadata", "read", "read_at", "created_at",
}

func scanNotification(row rowScanner) (*model.Notification, error) {
	n := &model.Notification{}
	var metadata []byte
	var readAt sql.NullTime

	err := row.Scan(
		&n.ID, &n.UserID, &n.ItemID, &n.Type, &n.Title, &n.Message,
		&metadata, &n.Read, &readAt, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return nil, fmt.Errorf("通知メタデータの解析に失敗しました: %w", err)
		}
	}
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	return n, nil
}

// ExistsForDay は同じユーザー・食材・種別の通知がその日に既に作成済みかを返す。
func (r *PostgresNotificationRepo) ExistsForDay(ctx context.Context, userID, itemID string, typ model.NotificationType, notifyDate string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM notifications
		     WHERE user_id = $1 AND item_id = $2 AND type = $3 AND notify_date = $4::date
		 )`,
		userID, itemID, string(typ), notifyDate,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("通知の重複確認に失敗しました: %w", err)
	}
	return exists, nil
}

// CreateForDay は通知を作成する。
// (user_id, item_id, type, notify_date)のユニーク制約に衝突した場合は何もせずfalseを返す。
func (r *PostgresNotificationRepo) CreateForDay(ctx context.Context, n *model.Notification, notifyDate string) (bool, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return false, fmt.Errorf("通知メタデータの変換に失敗しました: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, item_id, type, title, message, metadata, notify_date, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, false, $9)
		 ON CONFLICT (user_id, item_id, type, notify_date) DO NOTHING`,
		n.ID, n.UserID, n.ItemID, string(n.Type), n.Title, n.Message, metadata, notifyDate, n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("通知の作成に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// FindByID は指定IDの通知を取得する。見つからない場合はnilを返す。
func (r *PostgresNotificationRepo) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	query, args, err := psql.Select(notificationColumns...).
		From("notifications").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("通知取得クエリの構築に失敗しました: %w", err)
	}

	n, err := scanNotification(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("通知の取得に失敗しました: %w", err)
	}
	return n, nil
}

// ListByUser はユーザーの通知を(created_at, id)の降順に最大limit件返す。
// cursorが空でない場合は、そのIDの通知を含めてそれより古いものを返す。
func (r *PostgresNotificationRepo) ListByUser(ctx context.Context, userID, cursor string, limit int, unreadOnly bool) ([]*model.Notification, error) {
	q := psql.Select(notificationColumns...).
		From("notifications").
		Where(squirrel.Eq{"user_id": userID})
	if unreadOnly {
		q = q.Where(squirrel.Eq{"read": false})
	}
	if cursor != "" {
		q = q.Where(
			"(created_at, id) <= (SELECT c.created_at, c.id FROM notifications c WHERE c.id = ? AND c.user_id = ?)",
			cursor, userID,
		)
	}
	query, args, err := q.OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("通知一覧クエリの構築に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("通知のスキャンに失敗しました: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("通知一覧の走査に失敗しました: %w", err)
	}

	return notifications, nil
}

// CountUnread は未読通知の件数を返す。
func (r *PostgresNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = $1 AND read = false`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("未読通知数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// MarkRead は通知を既読にする。既読済みの場合はread_atを変更しない。
func (r *PostgresNotificationRepo) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true, read_at = COALESCE(read_at, $2) WHERE id = $1`,
		id, readAt,
	)
	if err != nil {
		return fmt.Errorf("通知の既読化に失敗しました: %w", err)
	}
	return nil
}

// MarkAllRead はユーザーの未読通知をすべて既読にし、更新件数を返す。
func (r *PostgresNotificationRepo) MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true, read_at = $2 WHERE user_id = $1 AND read = false`,
		userID, readAt,
	)
	if err != nil {
		return 0, fmt.Errorf("通知の一括既読化に失敗しました: %w", err)
	}
	return result.RowsAffected()
}

// Delete は指定IDの通知を削除する。
func (r *PostgresNotificationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("通知の削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteAllRead はユーザーの既読通知をすべて削除し、削除件数を返す。
func (r *PostgresNotificationRepo) DeleteAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE user_id = $1 AND read = true`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("既読通知の削除に失敗しました: %w", err)
	}
	return result.RowsAffected()
}

// DeleteReadBefore はbeforeより前に作成された既読通知を全ユーザー分削除する。
func (r *PostgresNotificationRepo) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE read = true AND created_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("古い既読通知の削除に失敗しました: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
