package drinkmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"coffeeshop/internal/domain"
)

// Repository keeps drinks in process memory. It backs the service when no database is
// configured and in tests.
type Repository struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID int64
	drinks map[int64]domain.Drink
}

func New() *Repository {
	return NewWithClock(nil)
}

func NewWithClock(now func() time.Time) *Repository {
	if now == nil {
		now = time.Now
	}
	return &Repository{
		now:    now,
		nextID: 1,
		drinks: make(map[int64]domain.Drink),
	}
}

func (r *Repository) List(_ context.Context) ([]domain.Drink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Drink, 0, len(r.drinks))
	for _, drink := range r.drinks {
		out = append(out, cloneDrink(drink))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repository) Create(_ context.Context, drink domain.Drink) (domain.Drink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.titleTaken(drink.Title, 0) {
		return domain.Drink{}, domain.ErrConflict
	}
	now := r.now()
	drink.ID = r.nextID
	drink.CreatedAt = now
	drink.UpdatedAt = now
	drink.Recipe = domain.CloneRecipe(drink.Recipe)
	r.nextID++
	r.drinks[drink.ID] = drink
	return cloneDrink(drink), nil
}

func (r *Repository) Update(_ context.Context, id int64, patch domain.DrinkPatch) (domain.Drink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	drink, ok := r.drinks[id]
	if !ok {
		return domain.Drink{}, domain.ErrNotFound
	}
	if patch.Title != nil {
		if r.titleTaken(*patch.Title, id) {
			return domain.Drink{}, domain.ErrConflict
		}
		drink.Title = *patch.Title
	}
	if patch.Recipe != nil {
		drink.Recipe = domain.CloneRecipe(patch.Recipe)
	}
	if !patch.Empty() {
		drink.UpdatedAt = r.now()
	}
	r.drinks[id] = drink
	return cloneDrink(drink), nil
}

func (r *Repository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drinks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.drinks, id)
	return nil
}

func (r *Repository) Reset(_ context.Context, seed []domain.Drink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drinks = make(map[int64]domain.Drink, len(seed))
	r.nextID = 1
	now := r.now()
	for _, drink := range seed {
		drink.ID = r.nextID
		drink.CreatedAt = now
		drink.UpdatedAt = now
		drink.Recipe = domain.CloneRecipe(drink.Recipe)
		r.drinks[drink.ID] = drink
		r.nextID++
	}
	return nil
}

func (r *Repository) titleTaken(title string, except int64) bool {
	for id, drink := range r.drinks {
		if id != except && drink.Title == title {
			return true
		}
	}
	return false
}

func cloneDrink(in domain.Drink) domain.Drink {
	in.Recipe = domain.CloneRecipe(in.Recipe)
	return in
}
