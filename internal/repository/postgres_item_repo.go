package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/hitoshi/freshtrack/internal/model"
)

// psql はPostgreSQL用のプレースホルダ（$1, $2, ...）を使うクエリビルダ。
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// PostgresItemRepo はPostgreSQLを使用した食材リポジトリ。
type PostgresItemRepo struct {
	db *sql.DB
}

// NewPostgresItemRepo はPostgresItemRepoを生成する。
func NewPostgresItemRepo(db *sql.DB) *PostgresItemRepo {
	return &PostgresItemRepo{db: db}
}

var itemSelectColumns = []string{
	"i.id", "i.user_id", "i.name", "i.price", "i.quantity", "i.percent_consumed",
	"i.status", "i.item_type_id", "i.created_at", "i.updated_at",
	"t.id", "t.name", "t.storage_advice", "t.suggested_life_span_seconds", "t.category", "t.created_at",
}

// selectItems は食材種別をLEFT JOINした食材取得クエリの土台を返す。
func selectItems() squirrel.SelectBuilder {
	return psql.Select(itemSelectColumns...).
		From("items i").
		LeftJoin("item_types t ON t.id = i.item_type_id")
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanItem はselectItemsの1行を食材に変換する。
func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var itemTypeID, typeID, typeName, typeAdvice, typeCategory sql.NullString
	var typeLife sql.NullInt64
	var typeCreatedAt sql.NullTime

	err := row.Scan(
		&item.ID, &item.UserID, &item.Name, &item.Price, &item.Quantity, &item.PercentConsumed,
		&item.Status, &itemTypeID, &item.CreatedAt, &item.UpdatedAt,
		&typeID, &typeName, &typeAdvice, &typeLife, &typeCategory, &typeCreatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.ItemTypeID = nullStringValue(itemTypeID)
	if typeID.Valid {
		item.ItemType = &model.ItemType{
			ID:                       typeID.String,
			Name:                     typeName.String,
			StorageAdvice:            typeAdvice.String,
			SuggestedLifeSpanSeconds: typeLife.Int64,
			Category:                 typeCategory.String,
			CreatedAt:                typeCreatedAt.Time,
		}
	}
	return item, nil
}

// FindByID は指定IDの食材を取得する。見つからない場合はnilを返す。
func (r *PostgresItemRepo) FindByID(ctx context.Context, id string) (*model.Item, error) {
	query, args, err := selectItems().Where(squirrel.Eq{"i.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("食材取得クエリの構築に失敗しました: %w", err)
	}

	item, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("食材の取得に失敗しました: %w", err)
	}
	return item, nil
}

// ListByUser はユーザーの食材を絞り込み条件付きで作成日時の降順に返す。
func (r *PostgresItemRepo) ListByUser(ctx context.Context, userID string, filter model.ItemFilter) ([]*model.Item, error) {
	q := selectItems().Where(squirrel.Eq{"i.user_id": userID})
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where(squirrel.Eq{"i.status": statuses})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		q = q.Where(squirrel.ILike{"i.name": "%" + escapeLike(search) + "%"})
	}
	q = q.OrderBy("i.created_at DESC", "i.id DESC")

	return r.list(ctx, q)
}

// ListActiveByUser はステータスがFRESHまたはOLDで、種別が設定された食材を返す。
func (r *PostgresItemRepo) ListActiveByUser(ctx context.Context, userID string) ([]*model.Item, error) {
	q := selectItems().
		Where(squirrel.Eq{
			"i.user_id": userID,
			"i.status":  []string{string(model.ItemStatusFresh), string(model.ItemStatusOld)},
		}).
		Where(squirrel.NotEq{"i.item_type_id": nil}).
		OrderBy("i.created_at", "i.id")

	return r.list(ctx, q)
}

func (r *PostgresItemRepo) list(ctx context.Context, q squirrel.SelectBuilder) ([]*model.Item, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("食材一覧クエリの構築に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("食材一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []*model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("食材のスキャンに失敗しました: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("食材一覧の走査に失敗しました: %w", err)
	}

	return items, nil
}

// Create は食材を作成する。
func (r *PostgresItemRepo) Create(ctx context.Context, item *model.Item) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO items (id, user_id, name, price, quantity, percent_consumed, status, item_type_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		item.ID, item.UserID, item.Name, item.Price, item.Quantity, item.PercentConsumed,
		string(item.Status), nullString(item.ItemTypeID), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("食材の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は食材の可変項目を上書き更新する。作成日時は賞味期限の起点のため変更しない。
func (r *PostgresItemRepo) Update(ctx context.Context, item *model.Item) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE items SET
		    name = $2, price = $3, quantity = $4, percent_consumed = $5,
		    status = $6, item_type_id = $7, updated_at = $8
		 WHERE id = $1`,
		item.ID, item.Name, item.Price, item.Quantity, item.PercentConsumed,
		string(item.Status), nullString(item.ItemTypeID), item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("食材の更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの食材を削除する。
func (r *PostgresItemRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("食材の削除に失敗しました: %w", err)
	}
	return nil
}

// nullStringValue はsql.NullStringを文字列に変換する。NULLの場合は空文字を返す。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullString は空文字をNULLとして扱う。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// escapeLike はLIKEパターンの特殊文字をエスケープする。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// compile-time interface check
var _ ItemRepository = (*PostgresItemRepo)(nil)
