package usecase

import (
	"context"

	"coffeeshop/internal/domain"
)

// DrinkRepository persists drinks. Update and Delete touch a single row and return
// domain.ErrNotFound when the id does not exist; Create and Update return
// domain.ErrConflict on a duplicate title.
type DrinkRepository interface {
	List(ctx context.Context) ([]domain.Drink, error)
	Create(ctx context.Context, drink domain.Drink) (domain.Drink, error)
	Update(ctx context.Context, id int64, patch domain.DrinkPatch) (domain.Drink, error)
	Delete(ctx context.Context, id int64) error
	Reset(ctx context.Context, seed []domain.Drink) error
}
