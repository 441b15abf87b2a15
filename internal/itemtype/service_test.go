package itemtype

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hitoshi/freshtrack/internal/model"
)

type mockRepo struct {
	byName    map[string]*model.ItemType
	byID      map[string]*model.ItemType
	upsertErr error
	upserts   int
}

func newMockRepo() *mockRepo {
	return &mockRepo{byName: map[string]*model.ItemType{}, byID: map[string]*model.ItemType{}}
}

func (m *mockRepo) List(ctx context.Context) ([]*model.ItemType, error) {
	var out []*model.ItemType
	for _, t := range m.byName {
		out = append(out, t)
	}
	return out, nil
}
func (m *mockRepo) FindByID(ctx context.Context, id string) (*model.ItemType, error) {
	return m.byID[id], nil
}
func (m *mockRepo) UpsertByName(ctx context.Context, t *model.ItemType) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	m.byName[t.Name] = t
	return nil
}

func newTestService(repo *mockRepo) *Service {
	var buf bytes.Buffer
	return NewService(repo, slog.New(slog.NewJSONHandler(&buf, nil)))
}

func TestBuiltin(t *testing.T) {
	types, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	if len(types) < 100 {
		t.Fatalf("expected at least 100 built-in types, got %d", len(types))
	}

	seen := map[string]bool{}
	byName := map[string]*model.ItemType{}
	for _, ty := range types {
		if ty.Name == "" || ty.Category == "" {
			t.Errorf("incomplete type: %+v", ty)
		}
		if ty.SuggestedLifeSpanSeconds < 0 {
			t.Errorf("%s: negative shelf life", ty.Name)
		}
		if seen[ty.Name] {
			t.Errorf("duplicate name %q", ty.Name)
		}
		seen[ty.Name] = true
		byName[ty.Name] = ty
	}

	// 1週間と2日
	if milk := byName["Milk"]; milk == nil || milk.SuggestedLifeSpanSeconds != 777600 {
		t.Errorf("Milk = %+v, want 777600 seconds", milk)
	}
	if np := byName["Non-perishable"]; np == nil || np.SuggestedLifeSpanSeconds != 0 {
		t.Errorf("Non-perishable = %+v, want 0 seconds", np)
	}
}

func TestSeed_IsIdempotent(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	first, err := svc.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	second, err := svc.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed again: %v", err)
	}
	if first != second || len(repo.byName) != first {
		t.Errorf("seeded %d then %d, stored %d", first, second, len(repo.byName))
	}
}

func TestSeed_ReturnsRepositoryError(t *testing.T) {
	repo := newMockRepo()
	repo.upsertErr = errors.New("db down")

	if _, err := newTestService(repo).Seed(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet(t *testing.T) {
	const id = "3f1c2b7a-0000-4000-8000-000000000001"
	repo := newMockRepo()
	repo.byID[id] = &model.ItemType{ID: id, Name: "Milk"}
	svc := newTestService(repo)

	got, err := svc.Get(context.Background(), id)
	if err != nil || got.Name != "Milk" {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	for _, missing := range []string{"not-a-uuid", "3f1c2b7a-0000-4000-8000-000000000002"} {
		_, err := svc.Get(context.Background(), missing)
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeItemTypeNotFound {
			t.Errorf("Get(%q): expected ITEM_TYPE_NOT_FOUND, got %v", missing, err)
		}
	}
}
