package service

import (
	"context"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"gorm.io/gorm"
)

func toUserResponse(u *models.User, subscribed bool) types.UserResponse {
	return types.UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

func toTagResponse(t *models.Tag) types.TagResponse {
	return types.TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func toIngredientResponse(i *models.Ingredient) types.IngredientResponse {
	return types.IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

func toShortRecipe(r *models.Recipe) types.ShortRecipeResponse {
	return types.ShortRecipeResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}

// idSet plucks column for the viewer's rows whose match column is in ids. An
// anonymous viewer (0) has no rows.
func idSet(ctx context.Context, db *gorm.DB, model any, viewerID uint, match string, ids []uint) (map[uint]bool, error) {
	set := map[uint]bool{}
	if viewerID == 0 || len(ids) == 0 {
		return set, nil
	}
	var found []uint
	err := db.WithContext(ctx).Model(model).
		Where("user_id = ? AND "+match+" IN ?", viewerID, ids).
		Pluck(match, &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		set[id] = true
	}
	return set, nil
}

func subscribedTo(ctx context.Context, db *gorm.DB, viewerID uint, authorIDs []uint) (map[uint]bool, error) {
	return idSet(ctx, db, &models.Subscription{}, viewerID, "author_id", authorIDs)
}
