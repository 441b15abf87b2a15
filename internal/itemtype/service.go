// Package itemtype は食材種別（参照データ）の参照とシードを提供する。
package itemtype

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/freshtrack/internal/model"
	"github.com/hitoshi/freshtrack/internal/repository"
)

//go:embed item_types.json
var builtinJSON []byte

// seedEntry は組み込み種別のJSON表現。
type seedEntry struct {
	Name                     string `json:"name"`
	StorageAdvice            string `json:"storageAdvice"`
	SuggestedLifeSpanSeconds int64  `json:"suggestedLifeSpanSeconds"`
	Category                 string `json:"category"`
}

// Builtin は組み込みの食材種別一覧を返す。
func Builtin() ([]*model.ItemType, error) {
	var entries []seedEntry
	if err := json.Unmarshal(builtinJSON, &entries); err != nil {
		return nil, fmt.Errorf("組み込み食材種別の読み込みに失敗: %w", err)
	}
	types := make([]*model.ItemType, len(entries))
	for i, e := range entries {
		types[i] = &model.ItemType{
			Name:                     e.Name,
			StorageAdvice:            e.StorageAdvice,
			SuggestedLifeSpanSeconds: e.SuggestedLifeSpanSeconds,
			Category:                 e.Category,
		}
	}
	return types, nil
}

// Service は食材種別のサービス。
type Service struct {
	repo   repository.ItemTypeRepository
	logger *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ItemTypeRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List は全種別を返す。
func (s *Service) List(ctx context.Context) ([]*model.ItemType, error) {
	return s.repo.List(ctx)
}

// Get は指定IDの種別を返す。
func (s *Service) Get(ctx context.Context, id string) (*model.ItemType, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewItemTypeNotFoundError(id)
	}
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, model.NewItemTypeNotFoundError(id)
	}
	return t, nil
}

// Seed は組み込み種別を名前をキーに登録する。何度実行しても結果は同じ。
func (s *Service) Seed(ctx context.Context) (int, error) {
	types, err := Builtin()
	if err != nil {
		return 0, err
	}
	for _, t := range types {
		if err := s.repo.UpsertByName(ctx, t); err != nil {
			return 0, fmt.Errorf("食材種別 %q のシードに失敗: %w", t.Name, err)
		}
	}
	s.logger.Info("食材種別をシードしました", slog.Int("count", len(types)))
	return len(types), nil
}
