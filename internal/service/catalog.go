package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"gorm.io/gorm"
)

// CatalogService manages the tag and ingredient reference data.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) ListTags(ctx context.Context) ([]types.TagResponse, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	out := make([]types.TagResponse, 0, len(tags))
	for i := range tags {
		out = append(out, toTagResponse(&tags[i]))
	}
	return out, nil
}

func (s *CatalogService) GetTag(ctx context.Context, id uint) (*types.TagResponse, error) {
	tag, err := s.findTag(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toTagResponse(tag)
	return &resp, nil
}

func (s *CatalogService) CreateTag(ctx context.Context, req *types.TagRequest) (*types.TagResponse, error) {
	tag := models.Tag{}
	applyTag(&tag, req)
	if err := s.checkTagUnique(ctx, &tag); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, &ConflictError{Field: "slug", Message: "Tag with this name, color or slug already exists."}
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	resp := toTagResponse(&tag)
	return &resp, nil
}

func (s *CatalogService) UpdateTag(ctx context.Context, id uint, req *types.TagRequest) (*types.TagResponse, error) {
	tag, err := s.findTag(ctx, id)
	if err != nil {
		return nil, err
	}
	applyTag(tag, req)
	if err := s.checkTagUnique(ctx, tag); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(tag).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, &ConflictError{Field: "slug", Message: "Tag with this name, color or slug already exists."}
		}
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}
	resp := toTagResponse(tag)
	return &resp, nil
}

func (s *CatalogService) DeleteTag(ctx context.Context, id uint) error {
	tag, err := s.findTag(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM recipe_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
			return fmt.Errorf("failed to detach tag: %w", err)
		}
		return tx.Delete(tag).Error
	})
}

func applyTag(tag *models.Tag, req *types.TagRequest) {
	tag.Name = strings.TrimSpace(req.Name)
	tag.Color = strings.ToUpper(req.Color)
	tag.Slug = req.Slug
}

// checkTagUnique reports the first field that clashes with another tag.
func (s *CatalogService) checkTagUnique(ctx context.Context, tag *models.Tag) error {
	for _, field := range []struct{ column, value string }{
		{"name", tag.Name},
		{"color", tag.Color},
		{"slug", tag.Slug},
	} {
		var count int64
		err := s.db.WithContext(ctx).Model(&models.Tag{}).
			Where(field.column+" = ? AND id <> ?", field.value, tag.ID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check tag %s: %w", field.column, err)
		}
		if count > 0 {
			return &ConflictError{Field: field.column, Message: fmt.Sprintf("Tag with this %s already exists.", field.column)}
		}
	}
	return nil
}

func (s *CatalogService) findTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("tag", id)
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &tag, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListIngredients returns ingredients whose name starts with prefix, ignoring
// case. An empty prefix lists everything.
func (s *CatalogService) ListIngredients(ctx context.Context, prefix string) ([]types.IngredientResponse, error) {
	query := s.db.WithContext(ctx).Order("name")
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, escapeLike(strings.ToLower(prefix))+"%")
	}
	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	out := make([]types.IngredientResponse, 0, len(ingredients))
	for i := range ingredients {
		out = append(out, toIngredientResponse(&ingredients[i]))
	}
	return out, nil
}

func (s *CatalogService) GetIngredient(ctx context.Context, id uint) (*types.IngredientResponse, error) {
	ingredient, err := s.findIngredient(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toIngredientResponse(ingredient)
	return &resp, nil
}

func (s *CatalogService) CreateIngredient(ctx context.Context, req *types.IngredientRequest) (*types.IngredientResponse, error) {
	ingredient := models.Ingredient{
		Name:            strings.TrimSpace(req.Name),
		MeasurementUnit: strings.TrimSpace(req.MeasurementUnit),
	}
	if err := s.checkIngredientUnique(ctx, &ingredient); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&ingredient).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, &ConflictError{Field: "name", Message: "Ingredient with this name already exists."}
		}
		return nil, fmt.Errorf("failed to create ingredient: %w", err)
	}
	resp := toIngredientResponse(&ingredient)
	return &resp, nil
}

func (s *CatalogService) UpdateIngredient(ctx context.Context, id uint, req *types.IngredientRequest) (*types.IngredientResponse, error) {
	ingredient, err := s.findIngredient(ctx, id)
	if err != nil {
		return nil, err
	}
	ingredient.Name = strings.TrimSpace(req.Name)
	ingredient.MeasurementUnit = strings.TrimSpace(req.MeasurementUnit)
	if err := s.checkIngredientUnique(ctx, ingredient); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(ingredient).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, &ConflictError{Field: "name", Message: "Ingredient with this name already exists."}
		}
		return nil, fmt.Errorf("failed to update ingredient: %w", err)
	}
	resp := toIngredientResponse(ingredient)
	return &resp, nil
}

// DeleteIngredient refuses to remove an ingredient still used by a recipe.
func (s *CatalogService) DeleteIngredient(ctx context.Context, id uint) error {
	ingredient, err := s.findIngredient(ctx, id)
	if err != nil {
		return err
	}
	var used int64
	if err := s.db.WithContext(ctx).Model(&models.RecipeIngredient{}).Where("ingredient_id = ?", id).Count(&used).Error; err != nil {
		return fmt.Errorf("failed to check ingredient usage: %w", err)
	}
	if used > 0 {
		return NewValidationError("ingredient", fmt.Sprintf("Ingredient is used by %d recipes.", used))
	}
	return s.db.WithContext(ctx).Delete(ingredient).Error
}

func (s *CatalogService) checkIngredientUnique(ctx context.Context, ingredient *models.Ingredient) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Ingredient{}).
		Where("name = ? AND id <> ?", ingredient.Name, ingredient.ID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check ingredient name: %w", err)
	}
	if count > 0 {
		return &ConflictError{Field: "name", Message: "Ingredient with this name already exists."}
	}
	return nil
}

func (s *CatalogService) findIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("ingredient", id)
		}
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	return &ingredient, nil
}
