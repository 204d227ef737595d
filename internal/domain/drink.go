package domain

import "time"

type Ingredient struct {
	Name  string
	Color string
	Parts int
}

type Drink struct {
	ID        int64
	Title     string
	Recipe    []Ingredient
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DrinkPatch carries the fields of a partial update. Nil fields are left untouched.
type DrinkPatch struct {
	Title  *string
	Recipe []Ingredient
}

func (p DrinkPatch) Empty() bool {
	return p.Title == nil && p.Recipe == nil
}

type ShortIngredient struct {
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

type LongIngredient struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

type ShortDrink struct {
	ID     int64             `json:"id"`
	Title  string            `json:"title"`
	Recipe []ShortIngredient `json:"recipe"`
}

type LongDrink struct {
	ID     int64            `json:"id"`
	Title  string           `json:"title"`
	Recipe []LongIngredient `json:"recipe"`
}

// Short is the public view: ingredient names are redacted.
func (d Drink) Short() ShortDrink {
	recipe := make([]ShortIngredient, 0, len(d.Recipe))
	for _, in := range d.Recipe {
		recipe = append(recipe, ShortIngredient{Color: in.Color, Parts: in.Parts})
	}
	return ShortDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

func (d Drink) Long() LongDrink {
	recipe := make([]LongIngredient, 0, len(d.Recipe))
	for _, in := range d.Recipe {
		recipe = append(recipe, LongIngredient{Name: in.Name, Color: in.Color, Parts: in.Parts})
	}
	return LongDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

func CloneRecipe(in []Ingredient) []Ingredient {
	if in == nil {
		return nil
	}
	out := make([]Ingredient, len(in))
	copy(out, in)
	return out
}
