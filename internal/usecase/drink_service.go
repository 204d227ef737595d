package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"coffeeshop/internal/domain"
)

const maxTitleLength = 80

// SeedDrinks is what a reset catalog starts with.
var SeedDrinks = []domain.Drink{
	{
		Title:  "water",
		Recipe: []domain.Ingredient{{Name: "water", Color: "blue", Parts: 1}},
	},
}

type DrinkService struct {
	Drinks DrinkRepository
}

type CreateDrinkInput struct {
	Title  string
	Recipe []domain.Ingredient
}

func NewDrinkService(drinks DrinkRepository) *DrinkService {
	return &DrinkService{Drinks: drinks}
}

func (s *DrinkService) ListDrinks(ctx context.Context) ([]domain.Drink, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Drinks.List(ctx)
}

// CreateDrink stores a new drink and returns the whole catalog after the insert.
func (s *DrinkService) CreateDrink(ctx context.Context, in CreateDrinkInput) ([]domain.Drink, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if err := validateRecipe(in.Recipe); err != nil {
		return nil, err
	}
	if _, err := s.Drinks.Create(ctx, domain.Drink{Title: title, Recipe: domain.CloneRecipe(in.Recipe)}); err != nil {
		return nil, err
	}
	return s.Drinks.List(ctx)
}

// UpdateDrink applies only the supplied fields.
func (s *DrinkService) UpdateDrink(ctx context.Context, id int64, patch domain.DrinkPatch) (domain.Drink, error) {
	if err := s.ready(); err != nil {
		return domain.Drink{}, err
	}
	if id <= 0 {
		return domain.Drink{}, domain.ErrNotFound
	}
	if patch.Title != nil {
		title, err := normalizeTitle(*patch.Title)
		if err != nil {
			return domain.Drink{}, err
		}
		patch.Title = &title
	}
	if patch.Recipe != nil {
		if err := validateRecipe(patch.Recipe); err != nil {
			return domain.Drink{}, err
		}
		patch.Recipe = domain.CloneRecipe(patch.Recipe)
	}
	return s.Drinks.Update(ctx, id, patch)
}

func (s *DrinkService) DeleteDrink(ctx context.Context, id int64) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, domain.ErrNotFound
	}
	if err := s.Drinks.Delete(ctx, id); err != nil {
		return 0, err
	}
	return id, nil
}

// ResetCatalog drops every drink and stores SeedDrinks.
func (s *DrinkService) ResetCatalog(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	seed := make([]domain.Drink, 0, len(SeedDrinks))
	for _, drink := range SeedDrinks {
		seed = append(seed, domain.Drink{Title: drink.Title, Recipe: domain.CloneRecipe(drink.Recipe)})
	}
	return s.Drinks.Reset(ctx, seed)
}

func (s *DrinkService) ready() error {
	if s == nil || s.Drinks == nil {
		return errors.New("drink repository is required")
	}
	return nil
}

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", invalidf("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", invalidf("title must be at most %d characters", maxTitleLength)
	}
	return title, nil
}

func validateRecipe(recipe []domain.Ingredient) error {
	if len(recipe) == 0 {
		return invalidf("recipe must contain at least one ingredient")
	}
	for i, in := range recipe {
		if strings.TrimSpace(in.Name) == "" {
			return invalidf("recipe[%d].name is required", i)
		}
		if in.Parts < 0 {
			return invalidf("recipe[%d].parts must not be negative", i)
		}
	}
	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, fmt.Sprintf(format, args...))
}
