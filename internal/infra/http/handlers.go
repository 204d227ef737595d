package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/usecase"

	"github.com/gin-gonic/gin"
)

const maxRequestBodyBytes = 1 << 20

type drinkRequest struct {
	Title  *string         `json:"title"`
	Recipe json.RawMessage `json:"recipe"`
}

type ingredientInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

type drinksResponse[T any] struct {
	Success bool `json:"success"`
	Drinks  []T  `json:"drinks"`
}

type drinkResponse struct {
	Success bool             `json:"success"`
	Drink   domain.LongDrink `json:"drink"`
}

type deleteResponse struct {
	Success bool  `json:"success"`
	Drink   int64 `json:"drink"`
}

func bindDrinkRequest(c *gin.Context, req *drinkRequest) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodyBytes)
	if err := c.ShouldBindJSON(req); err != nil {
		message := "invalid json"
		if maxErr := (*http.MaxBytesError)(nil); errors.As(err, &maxErr) {
			message = "request body too large"
		}
		writeErrorCode(c, http.StatusBadRequest, domain.CodeBadRequest, message)
		return false
	}
	return true
}

func (s *Server) handleListDrinks(c *gin.Context) {
	drinks, err := s.drinks.ListDrinks(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]domain.ShortDrink, 0, len(drinks))
	for _, drink := range drinks {
		out = append(out, drink.Short())
	}
	c.JSON(http.StatusOK, drinksResponse[domain.ShortDrink]{Success: true, Drinks: out})
}

func (s *Server) handleListDrinksDetail(c *gin.Context, _ domain.ClaimSet) {
	drinks, err := s.drinks.ListDrinks(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, drinksResponse[domain.LongDrink]{Success: true, Drinks: longDrinks(drinks)})
}

func (s *Server) handleCreateDrink(c *gin.Context, claims domain.ClaimSet) {
	var req drinkRequest
	if !bindDrinkRequest(c, &req) {
		return
	}
	recipe, err := decodeRecipe(req.Recipe)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, domain.CodeBadRequest, err.Error())
		return
	}
	in := usecase.CreateDrinkInput{Recipe: recipe}
	if req.Title != nil {
		in.Title = *req.Title
	}
	drinks, err := s.drinks.CreateDrink(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Info("drink created", "title", in.Title, "subject", claims.Subject)
	c.JSON(http.StatusOK, drinksResponse[domain.LongDrink]{Success: true, Drinks: longDrinks(drinks)})
}

func (s *Server) handleUpdateDrink(c *gin.Context, claims domain.ClaimSet) {
	id, ok := drinkID(c)
	if !ok {
		writeErrorCode(c, http.StatusNotFound, domain.CodeNotFound, "")
		return
	}
	var req drinkRequest
	if !bindDrinkRequest(c, &req) {
		return
	}
	recipe, err := decodeRecipe(req.Recipe)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, domain.CodeBadRequest, err.Error())
		return
	}
	drink, err := s.drinks.UpdateDrink(c.Request.Context(), id, domain.DrinkPatch{Title: req.Title, Recipe: recipe})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Info("drink updated", "id", id, "subject", claims.Subject)
	c.JSON(http.StatusOK, drinkResponse{Success: true, Drink: drink.Long()})
}

func (s *Server) handleDeleteDrink(c *gin.Context, claims domain.ClaimSet) {
	id, ok := drinkID(c)
	if !ok {
		writeErrorCode(c, http.StatusNotFound, domain.CodeNotFound, "")
		return
	}
	deleted, err := s.drinks.DeleteDrink(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Info("drink deleted", "id", deleted, "subject", claims.Subject)
	c.JSON(http.StatusOK, deleteResponse{Success: true, Drink: deleted})
}

func drinkID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func longDrinks(drinks []domain.Drink) []domain.LongDrink {
	out := make([]domain.LongDrink, 0, len(drinks))
	for _, drink := range drinks {
		out = append(out, drink.Long())
	}
	return out
}

var errRecipeShape = errors.New("recipe must be an ingredient object or an array of ingredients")

// decodeRecipe accepts either a list of ingredients or a single ingredient object. An
// absent or null recipe decodes to nil.
func decodeRecipe(raw json.RawMessage) ([]domain.Ingredient, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var inputs []ingredientInput
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &inputs); err != nil {
			return nil, fmt.Errorf("invalid recipe: %w", err)
		}
	case '{':
		var single ingredientInput
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("invalid recipe: %w", err)
		}
		inputs = []ingredientInput{single}
	default:
		return nil, errRecipeShape
	}
	recipe := make([]domain.Ingredient, 0, len(inputs))
	for _, in := range inputs {
		recipe = append(recipe, domain.Ingredient{Name: in.Name, Color: in.Color, Parts: in.Parts})
	}
	return recipe, nil
}
