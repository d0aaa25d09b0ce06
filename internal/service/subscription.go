package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"gorm.io/gorm"
)

// SubscriptionService manages who follows whom.
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// Subscribe makes userID follow authorID. recipesLimit bounds the recipes
// embedded in the returned view; zero or less means all.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error) {
	if userID == authorID {
		return nil, NewValidationError("author", "You cannot subscribe to yourself.")
	}

	db := s.db.WithContext(ctx)
	var author models.User
	if err := db.First(&author, authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user", authorID)
		}
		return nil, fmt.Errorf("failed to get author: %w", err)
	}

	duplicate := &ConflictError{Field: "author", Message: "You are already subscribed to this author."}
	var count int64
	if err := db.Model(&models.Subscription{}).Where("user_id = ? AND author_id = ?", userID, authorID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check subscription: %w", err)
	}
	if count > 0 {
		return nil, duplicate
	}
	sub := models.Subscription{UserID: userID, AuthorID: authorID}
	if err := db.Omit("User", "Author").Create(&sub).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, duplicate
		}
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	logging.Ctx(ctx).Info().Uint("user_id", userID).Uint("author_id", authorID).Msg("subscribed")
	views, err := s.views(ctx, []models.User{author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", authorID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to get author: %w", err)
	}
	if count == 0 {
		return notFound("user", authorID)
	}

	res := db.Where("user_id = ? AND author_id = ?", userID, authorID).Delete(&models.Subscription{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subscription to %d: %w", authorID, ErrNotFound)
	}
	return nil
}

// ListSubscriptions returns one page of the authors userID follows, ordered by
// username.
func (s *SubscriptionService) ListSubscriptions(ctx context.Context, userID uint, page types.Page, recipesLimit int) ([]types.SubscriptionResponse, int64, error) {
	db := s.db.WithContext(ctx)
	followed := s.db.Model(&models.Subscription{}).Select("author_id").Where("user_id = ?", userID)
	query := db.Model(&models.User{}).Where("id IN (?)", followed).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	paged := query.Order("username")
	if page.Limit > 0 {
		paged = paged.Offset(page.Offset()).Limit(page.Limit)
	}
	if err := paged.Find(&authors).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	views, err := s.views(ctx, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// views builds subscription views for authors the caller follows.
func (s *SubscriptionService) views(ctx context.Context, authors []models.User, recipesLimit int) ([]types.SubscriptionResponse, error) {
	db := s.db.WithContext(ctx)
	out := make([]types.SubscriptionResponse, 0, len(authors))
	for i := range authors {
		author := &authors[i]

		var count int64
		if err := db.Model(&models.Recipe{}).Where("author_id = ?", author.ID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count recipes: %w", err)
		}

		var recipes []models.Recipe
		q := db.Where("author_id = ?", author.ID).Order("created_at DESC").Order("id DESC")
		if recipesLimit > 0 {
			q = q.Limit(recipesLimit)
		}
		if err := q.Find(&recipes).Error; err != nil {
			return nil, fmt.Errorf("failed to list author recipes: %w", err)
		}

		view := types.SubscriptionResponse{
			UserResponse: toUserResponse(author, true),
			Recipes:      make([]types.ShortRecipeResponse, 0, len(recipes)),
			RecipesCount: count,
		}
		for j := range recipes {
			view.Recipes = append(view.Recipes, toShortRecipe(&recipes[j]))
		}
		out = append(out, view)
	}
	return out, nil
}
