package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/freshtrack/internal/model"
)

// PostgresItemTypeRepo はPostgreSQLを使用した食材種別リポジトリ。
type PostgresItemTypeRepo struct {
	db *sql.DB
}

// NewPostgresItemTypeRepo はPostgresItemTypeRepoを生成する。
func NewPostgresItemTypeRepo(db *sql.DB) *PostgresItemTypeRepo {
	return &PostgresItemTypeRepo{db: db}
}

const itemTypeColumns = `id, name, storage_advice, suggested_life_span_seconds, category, created_at`

// List は全種別をカテゴリ、名前の順に返す。
func (r *PostgresItemTypeRepo) List(ctx context.Context) ([]*model.ItemType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemTypeColumns+` FROM item_types ORDER BY category, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("食材種別一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var types []*model.ItemType
	for rows.Next() {
		t := &model.ItemType{}
		if err := rows.Scan(&t.ID, &t.Name, &t.StorageAdvice, &t.SuggestedLifeSpanSeconds, &t.Category, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("食材種別のスキャンに失敗しました: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("食材種別一覧の走査に失敗しました: %w", err)
	}

	return types, nil
}

// FindByID は指定IDの種別を取得する。見つからない場合はnilを返す。
func (r *PostgresItemTypeRepo) FindByID(ctx context.Context, id string) (*model.ItemType, error) {
	t := &model.ItemType{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+itemTypeColumns+` FROM item_types WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.StorageAdvice, &t.SuggestedLifeSpanSeconds, &t.Category, &t.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("食材種別の取得に失敗しました: %w", err)
	}

	return t, nil
}

// UpsertByName は名前をキーに種別を作成または更新する。
// 既存の種別のIDは変更しない。itemType.IDには確定したIDが設定される。
func (r *PostgresItemTypeRepo) UpsertByName(ctx context.Context, itemType *model.ItemType) error {
	if itemType.ID == "" {
		itemType.ID = uuid.New().String()
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO item_types (id, name, storage_advice, suggested_life_span_seconds, category)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO UPDATE SET
		     storage_advice = EXCLUDED.storage_advice,
		     suggested_life_span_seconds = EXCLUDED.suggested_life_span_seconds,
		     category = EXCLUDED.category
		 RETURNING id, created_at`,
		itemType.ID, itemType.Name, itemType.StorageAdvice,
		itemType.SuggestedLifeSpanSeconds, itemType.Category,
	).Scan(&itemType.ID, &itemType.CreatedAt)
	if err != nil {
		return fmt.Errorf("食材種別の登録に失敗しました: %w", err)
	}

	return nil
}

// compile-time interface check
var _ ItemTypeRepository = (*PostgresItemTypeRepo)(nil)
