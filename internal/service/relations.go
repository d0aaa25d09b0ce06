package service

import (
	"context"
	"fmt"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"gorm.io/gorm"
)

// RelationService toggles the favorite and shopping cart marks a user puts on
// recipes.
type RelationService struct {
	db *gorm.DB
}

func NewRelationService(db *gorm.DB) *RelationService {
	return &RelationService{db: db}
}

func (s *RelationService) AddFavorite(ctx context.Context, userID, recipeID uint) (*types.ShortRecipeResponse, error) {
	row := &models.Favorite{UserID: userID, RecipeID: recipeID}
	return s.add(ctx, row, userID, recipeID, "Recipe is already in favorites.")
}

func (s *RelationService) RemoveFavorite(ctx context.Context, userID, recipeID uint) error {
	return s.remove(ctx, &models.Favorite{}, userID, recipeID, "favorite")
}

func (s *RelationService) AddToCart(ctx context.Context, userID, recipeID uint) (*types.ShortRecipeResponse, error) {
	row := &models.ShoppingCartItem{UserID: userID, RecipeID: recipeID}
	return s.add(ctx, row, userID, recipeID, "Recipe is already in the shopping cart.")
}

func (s *RelationService) RemoveFromCart(ctx context.Context, userID, recipeID uint) error {
	return s.remove(ctx, &models.ShoppingCartItem{}, userID, recipeID, "shopping cart entry")
}

// add inserts row unless the (user, recipe) pair is already present, in which
// case a ConflictError is returned and nothing is written.
func (s *RelationService) add(ctx context.Context, row any, userID, recipeID uint, duplicate string) (*types.ShortRecipeResponse, error) {
	recipe, err := findRecipe(ctx, s.db, recipeID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(row).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check relation: %w", err)
	}
	if count > 0 {
		return nil, &ConflictError{Field: "recipe", Message: duplicate}
	}
	if err := db.Omit("User", "Recipe").Create(row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, &ConflictError{Field: "recipe", Message: duplicate}
		}
		return nil, fmt.Errorf("failed to create relation: %w", err)
	}

	logging.Ctx(ctx).Debug().Str("relation", fmt.Sprintf("%T", row)).Uint("recipe_id", recipeID).Msg("relation added")
	short := toShortRecipe(recipe)
	return &short, nil
}

// remove deletes the (user, recipe) row. Missing recipes and missing rows are
// both ErrNotFound.
func (s *RelationService) remove(ctx context.Context, model any, userID, recipeID uint, what string) error {
	if _, err := findRecipe(ctx, s.db, recipeID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(model)
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s: %w", what, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s for recipe %d: %w", what, recipeID, ErrNotFound)
	}
	return nil
}
