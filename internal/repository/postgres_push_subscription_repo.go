package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/freshtrack/internal/model"
)

// PostgresPushSubscriptionRepo はPostgreSQLを使用したWeb Push配信先リポジトリ。
type PostgresPushSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresPushSubscriptionRepo はPostgresPushSubscriptionRepoを生成する。
func NewPostgresPushSubscriptionRepo(db *sql.DB) *PostgresPushSubscriptionRepo {
	return &PostgresPushSubscriptionRepo{db: db}
}

// ListByUser はユーザーの配信先を登録順に返す。
func (r *PostgresPushSubscriptionRepo) ListByUser(ctx context.Context, userID string) ([]*model.PushSubscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, endpoint, p256dh, auth, created_at
		 FROM push_subscriptions WHERE user_id = $1 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("プッシュ配信先の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var subs []*model.PushSubscription
	for rows.Next() {
		s := &model.PushSubscription{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("プッシュ配信先のスキャンに失敗しました: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("プッシュ配信先の走査に失敗しました: %w", err)
	}

	return subs, nil
}

// Upsert は(user_id, endpoint)をキーに配信先を作成または鍵を更新する。
// subscription.IDとCreatedAtには確定した値が設定される。
func (r *PostgresPushSubscriptionRepo) Upsert(ctx context.Context, s *model.PushSubscription) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, endpoint) DO UPDATE SET
		     p256dh = EXCLUDED.p256dh,
		     auth = EXCLUDED.auth
		 RETURNING id, created_at`,
		s.ID, s.UserID, s.Endpoint, s.P256dh, s.Auth,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("プッシュ配信先の登録に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの配信先を削除する。
func (r *PostgresPushSubscriptionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("プッシュ配信先の削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteByUserAndEndpoint はユーザーとendpointで配信先を削除し、削除件数を返す。
func (r *PostgresPushSubscriptionRepo) DeleteByUserAndEndpoint(ctx context.Context, userID, endpoint string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`,
		userID, endpoint,
	)
	if err != nil {
		return 0, fmt.Errorf("プッシュ配信先の削除に失敗しました: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ PushSubscriptionRepository = (*PostgresPushSubscriptionRepo)(nil)
