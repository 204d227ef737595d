package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"coffeeshop/internal/domain"

	"gorm.io/driver/sqlite"
)

func openSQLiteStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(sqlite.Open(filepath.Join(t.TempDir(), "drinks.db")))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestDrinkRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewDrinkRepository(openSQLiteStore(t).DB)

	recipe := []domain.Ingredient{
		{Name: "espresso", Color: "brown", Parts: 1},
		{Name: "milk", Color: "white", Parts: 3},
	}
	created, err := repo.Create(ctx, domain.Drink{Title: "latte", Recipe: recipe})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected generated id")
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 drink, got %d", len(list))
	}
	got := list[0]
	if got.Title != "latte" || len(got.Recipe) != 2 {
		t.Fatalf("unexpected drink: %+v", got)
	}
	for i := range recipe {
		if got.Recipe[i] != recipe[i] {
			t.Fatalf("recipe[%d] mismatch: %+v vs %+v", i, got.Recipe[i], recipe[i])
		}
	}
}

func TestDrinkRepository_DuplicateTitle(t *testing.T) {
	ctx := context.Background()
	repo := NewDrinkRepository(openSQLiteStore(t).DB)

	if _, err := repo.Create(ctx, domain.Drink{Title: "mocha", Recipe: []domain.Ingredient{{Name: "cocoa"}}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := repo.Create(ctx, domain.Drink{Title: "mocha", Recipe: []domain.Ingredient{{Name: "cocoa"}}})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestDrinkRepository_UpdatePartial(t *testing.T) {
	ctx := context.Background()
	repo := NewDrinkRepository(openSQLiteStore(t).DB)

	created, err := repo.Create(ctx, domain.Drink{
		Title:  "cortado",
		Recipe: []domain.Ingredient{{Name: "espresso", Color: "brown", Parts: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "gibraltar"
	updated, err := repo.Update(ctx, created.ID, domain.DrinkPatch{Title: &title})
	if err != nil {
		t.Fatalf("update title: %v", err)
	}
	if updated.Title != "gibraltar" || len(updated.Recipe) != 1 || updated.Recipe[0].Name != "espresso" {
		t.Fatalf("unexpected drink after title update: %+v", updated)
	}

	updated, err = repo.Update(ctx, created.ID, domain.DrinkPatch{
		Recipe: []domain.Ingredient{{Name: "ristretto", Color: "dark", Parts: 2}},
	})
	if err != nil {
		t.Fatalf("update recipe: %v", err)
	}
	if updated.Title != "gibraltar" || updated.Recipe[0].Name != "ristretto" || updated.Recipe[0].Parts != 2 {
		t.Fatalf("unexpected drink after recipe update: %+v", updated)
	}
}

func TestDrinkRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewDrinkRepository(openSQLiteStore(t).DB)

	title := "ghost"
	if _, err := repo.Update(ctx, 999, domain.DrinkPatch{Title: &title}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	if err := repo.Delete(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestDrinkRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewDrinkRepository(openSQLiteStore(t).DB)

	created, err := repo.Create(ctx, domain.Drink{Title: "americano", Recipe: []domain.Ingredient{{Name: "water"}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty catalog, got %+v", list)
	}
}

func TestDrinkRepository_Reset(t *testing.T) {
	ctx := context.Background()
	repo := NewDrinkRepository(openSQLiteStore(t).DB)

	if _, err := repo.Create(ctx, domain.Drink{Title: "old", Recipe: []domain.Ingredient{{Name: "x"}}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	seed := []domain.Drink{{Title: "water", Recipe: []domain.Ingredient{{Name: "water", Color: "blue", Parts: 1}}}}
	if err := repo.Reset(ctx, seed); err != nil {
		t.Fatalf("reset: %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Title != "water" || list[0].Recipe[0].Color != "blue" {
		t.Fatalf("unexpected catalog after reset: %+v", list)
	}
}

func TestDrinkRepository_NoDB(t *testing.T) {
	repo := NewDrinkRepository(nil)
	if _, err := repo.List(context.Background()); !errors.Is(err, errDBUnavailable) {
		t.Fatalf("expected errDBUnavailable, got %v", err)
	}
}

func TestStorePing(t *testing.T) {
	store := openSQLiteStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := (&Store{}).Ping(context.Background()); err == nil {
		t.Fatal("expected ping without db to fail")
	}
}
