package db

import (
	"time"

	"coffeeshop/internal/domain"
)

type DrinkModel struct {
	ID        int64             `gorm:"primaryKey;autoIncrement"`
	Title     string            `gorm:"size:80;uniqueIndex;not null"`
	Recipe    []IngredientModel `gorm:"serializer:json;type:text;not null"`
	CreatedAt time.Time         `gorm:"not null"`
	UpdatedAt time.Time         `gorm:"not null"`
}

func (DrinkModel) TableName() string {
	return "drinks"
}

// IngredientModel is the JSON shape of one recipe entry inside the recipe column.
type IngredientModel struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

func toDrinkModel(drink domain.Drink) DrinkModel {
	return DrinkModel{
		ID:        drink.ID,
		Title:     drink.Title,
		Recipe:    toIngredientModels(drink.Recipe),
		CreatedAt: drink.CreatedAt,
		UpdatedAt: drink.UpdatedAt,
	}
}

func toIngredientModels(recipe []domain.Ingredient) []IngredientModel {
	out := make([]IngredientModel, 0, len(recipe))
	for _, in := range recipe {
		out = append(out, IngredientModel{Name: in.Name, Color: in.Color, Parts: in.Parts})
	}
	return out
}

func (m DrinkModel) toDomain() domain.Drink {
	recipe := make([]domain.Ingredient, 0, len(m.Recipe))
	for _, in := range m.Recipe {
		recipe = append(recipe, domain.Ingredient{Name: in.Name, Color: in.Color, Parts: in.Parts})
	}
	return domain.Drink{
		ID:        m.ID,
		Title:     m.Title,
		Recipe:    recipe,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
