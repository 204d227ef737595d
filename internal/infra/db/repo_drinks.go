package db

import (
	"context"
	"fmt"
	"time"

	"coffeeshop/internal/domain"

	"gorm.io/gorm"
)

type DrinkRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDrinkRepository(db *gorm.DB) *DrinkRepository {
	return &DrinkRepository{db: db, now: time.Now}
}

func (r *DrinkRepository) List(ctx context.Context) ([]domain.Drink, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []DrinkModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list drinks: %w", err)
	}
	out := make([]domain.Drink, 0, len(models))
	for _, model := range models {
		out = append(out, model.toDomain())
	}
	return out, nil
}

func (r *DrinkRepository) Create(ctx context.Context, drink domain.Drink) (domain.Drink, error) {
	if r.db == nil {
		return domain.Drink{}, errDBUnavailable
	}
	now := r.now().UTC()
	drink.ID = 0
	drink.CreatedAt = now
	drink.UpdatedAt = now
	model := toDrinkModel(drink)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Drink{}, translateError(err)
	}
	return model.toDomain(), nil
}

// Update changes the supplied columns of one row and reads it back in the same
// transaction.
func (r *DrinkRepository) Update(ctx context.Context, id int64, patch domain.DrinkPatch) (domain.Drink, error) {
	if r.db == nil {
		return domain.Drink{}, errDBUnavailable
	}
	var out DrinkModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := DrinkModel{UpdatedAt: r.now().UTC()}
		columns := []string{"updated_at"}
		if patch.Title != nil {
			values.Title = *patch.Title
			columns = append(columns, "title")
		}
		if patch.Recipe != nil {
			values.Recipe = toIngredientModels(patch.Recipe)
			columns = append(columns, "recipe")
		}
		res := tx.Model(&DrinkModel{}).Where("id = ?", id).Select(columns).Updates(&values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&out, "id = ?", id).Error
	})
	if err != nil {
		return domain.Drink{}, translateError(err)
	}
	return out.toDomain(), nil
}

func (r *DrinkRepository) Delete(ctx context.Context, id int64) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).Delete(&DrinkModel{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete drink: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Reset drops and recreates the drinks table, then inserts seed.
func (r *DrinkRepository) Reset(ctx context.Context, seed []domain.Drink) error {
	if r.db == nil {
		return errDBUnavailable
	}
	db := r.db.WithContext(ctx)
	if err := db.Migrator().DropTable(&DrinkModel{}); err != nil {
		return fmt.Errorf("drop drinks: %w", err)
	}
	if err := db.AutoMigrate(&DrinkModel{}); err != nil {
		return fmt.Errorf("migrate drinks: %w", err)
	}
	for _, drink := range seed {
		if _, err := r.Create(ctx, drink); err != nil {
			return fmt.Errorf("seed %q: %w", drink.Title, err)
		}
	}
	return nil
}
