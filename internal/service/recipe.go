package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecipeService handles recipe operations
type RecipeService struct {
	db     *gorm.DB
	images ImageStore
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, images ImageStore) *RecipeService {
	return &RecipeService{
		db:     db,
		images: images,
	}
}

// recipeInput is a request after merge and validation.
type recipeInput struct {
	name        string
	text        string
	cookingTime int
	tagIDs      []uint
	ingredients []types.IngredientAmount
}

func validateRecipe(req *types.RecipeRequest) (*recipeInput, error) {
	verr := &ValidationError{}
	in := &recipeInput{
		name:        strings.TrimSpace(req.Name),
		text:        strings.TrimSpace(req.Text),
		cookingTime: req.CookingTime,
	}
	if in.name == "" {
		verr.Add("name", "This field may not be blank.")
	}
	if in.text == "" {
		verr.Add("text", "This field may not be blank.")
	}
	if in.cookingTime < 1 {
		verr.Add("cooking_time", "Ensure this value is greater than or equal to 1.")
	}

	tags, err := MergeTags(req.Tags)
	var tagErr *ValidationError
	if errors.As(err, &tagErr) {
		verr.Add("tags", tagErr.Fields["tags"]...)
	}
	in.tagIDs = tags

	ingredients, err := MergeIngredients(req.Ingredients)
	var ingErr *ValidationError
	if errors.As(err, &ingErr) {
		verr.Add("ingredients", ingErr.Fields["ingredients"]...)
	}
	in.ingredients = ingredients

	if !verr.Empty() {
		return nil, verr
	}
	return in, nil
}

// CreateRecipe stores a new recipe with its tags and merged ingredients.
func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeRequest) (*types.RecipeResponse, error) {
	in, err := validateRecipe(req)
	if err != nil {
		return nil, err
	}
	if req.Image == "" {
		return nil, NewValidationError("image", "This field is required.")
	}
	imageURL, err := s.storeImage(ctx, req.Image)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        in.name,
		Text:        in.text,
		Image:       imageURL,
		CookingTime: in.cookingTime,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := loadTags(tx, in.tagIDs)
		if err != nil {
			return err
		}
		if err := checkIngredients(tx, in.ingredients); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}
		return replaceComposition(tx, &recipe, tags, in.ingredients)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecipeWrites.WithLabelValues("create").Inc()
	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Uint("author_id", authorID).Msg("recipe created")
	return s.GetRecipe(ctx, authorID, recipe.ID)
}

// UpdateRecipe replaces every field of the recipe, including its tags and
// ingredients. Only the author may update a recipe.
func (s *RecipeService) UpdateRecipe(ctx context.Context, userID, recipeID uint, req *types.RecipeRequest) (*types.RecipeResponse, error) {
	recipe, err := s.ownedRecipe(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}
	in, err := validateRecipe(req)
	if err != nil {
		return nil, err
	}

	imageURL := recipe.Image
	if strings.HasPrefix(req.Image, "data:") {
		if imageURL, err = s.storeImage(ctx, req.Image); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := loadTags(tx, in.tagIDs)
		if err != nil {
			return err
		}
		if err := checkIngredients(tx, in.ingredients); err != nil {
			return err
		}
		err = tx.Model(recipe).Omit(clause.Associations).Updates(map[string]any{
			"name":         in.name,
			"text":         in.text,
			"image":        imageURL,
			"cooking_time": in.cookingTime,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}
		return replaceComposition(tx, recipe, tags, in.ingredients)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecipeWrites.WithLabelValues("update").Inc()
	logging.Ctx(ctx).Info().Uint("recipe_id", recipeID).Msg("recipe updated")
	return s.GetRecipe(ctx, userID, recipeID)
}

// DeleteRecipe removes the recipe together with its associations and every
// favorite and cart row pointing at it.
func (s *RecipeService) DeleteRecipe(ctx context.Context, userID, recipeID uint) error {
	recipe, err := s.ownedRecipe(ctx, userID, recipeID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("failed to clear recipe tags: %w", err)
		}
		for _, model := range []any{&models.RecipeIngredient{}, &models.Favorite{}, &models.ShoppingCartItem{}} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete %T rows: %w", model, err)
			}
		}
		return tx.Delete(recipe).Error
	})
	if err != nil {
		return err
	}

	metrics.RecipeWrites.WithLabelValues("delete").Inc()
	logging.Ctx(ctx).Info().Uint("recipe_id", recipeID).Msg("recipe deleted")
	return nil
}

// GetRecipe returns one recipe as seen by viewerID (0 for anonymous).
func (s *RecipeService) GetRecipe(ctx context.Context, viewerID, recipeID uint) (*types.RecipeResponse, error) {
	out, err := s.recipeResponses(ctx, viewerID, []uint{recipeID})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, notFound("recipe", recipeID)
	}
	return &out[0], nil
}

// ListRecipes returns one page of recipes matching filter, newest first, and
// the total number of matches.
func (s *RecipeService) ListRecipes(ctx context.Context, viewerID uint, filter types.RecipeFilter) ([]types.RecipeResponse, int64, error) {
	if viewerID == 0 && (filter.IsFavorited || filter.IsInShoppingCart) {
		return []types.RecipeResponse{}, 0, nil
	}

	query := s.db.WithContext(ctx).Model(&models.Recipe{})
	if len(filter.Tags) > 0 {
		tagged := s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.Tags)
		query = query.Where("recipes.id IN (?)", tagged)
	}
	if filter.AuthorID != nil {
		query = query.Where("recipes.author_id = ?", *filter.AuthorID)
	}
	if filter.IsFavorited {
		favorited := s.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", viewerID)
		query = query.Where("recipes.id IN (?)", favorited)
	}
	if filter.IsInShoppingCart {
		inCart := s.db.Model(&models.ShoppingCartItem{}).Select("recipe_id").Where("user_id = ?", viewerID)
		query = query.Where("recipes.id IN (?)", inCart)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var ids []uint
	page := query.Order("recipes.created_at DESC").Order("recipes.id DESC")
	if filter.Page.Limit > 0 {
		page = page.Offset(filter.Page.Offset()).Limit(filter.Page.Limit)
	}
	if err := page.Pluck("recipes.id", &ids).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}

	out, err := s.recipeResponses(ctx, viewerID, ids)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ShortRecipe returns the compact view of a recipe.
func (s *RecipeService) ShortRecipe(ctx context.Context, recipeID uint) (*types.ShortRecipeResponse, error) {
	recipe, err := findRecipe(ctx, s.db, recipeID)
	if err != nil {
		return nil, err
	}
	short := toShortRecipe(recipe)
	return &short, nil
}

func (s *RecipeService) storeImage(ctx context.Context, dataURI string) (string, error) {
	data, contentType, err := DecodeImage(dataURI)
	if err != nil {
		return "", err
	}
	url, err := s.images.Save(ctx, data, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return url, nil
}

func (s *RecipeService) ownedRecipe(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	recipe, err := findRecipe(ctx, s.db, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != userID {
		return nil, fmt.Errorf("recipe %d belongs to another author: %w", recipeID, ErrForbidden)
	}
	return recipe, nil
}

func findRecipe(ctx context.Context, db *gorm.DB, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("recipe", recipeID)
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

// loadTags fetches the tags by id, failing with a field error on unknown ids.
func loadTags(tx *gorm.DB, ids []uint) ([]models.Tag, error) {
	var tags []models.Tag
	if err := tx.Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	if len(tags) == len(ids) {
		return tags, nil
	}
	found := make(map[uint]bool, len(tags))
	for _, t := range tags {
		found[t.ID] = true
	}
	verr := &ValidationError{}
	for _, id := range ids {
		if !found[id] {
			verr.Add("tags", fmt.Sprintf("Tag with id %d does not exist.", id))
		}
	}
	return nil, verr
}

func checkIngredients(tx *gorm.DB, items []types.IngredientAmount) error {
	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	var existing []uint
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return fmt.Errorf("failed to load ingredients: %w", err)
	}
	if len(existing) == len(ids) {
		return nil
	}
	found := make(map[uint]bool, len(existing))
	for _, id := range existing {
		found[id] = true
	}
	verr := &ValidationError{}
	for _, id := range ids {
		if !found[id] {
			verr.Add("ingredients", fmt.Sprintf("Ingredient with id %d does not exist.", id))
		}
	}
	return verr
}

// replaceComposition swaps the recipe's tags and ingredient rows for new ones.
// It must run inside a transaction.
func replaceComposition(tx *gorm.DB, recipe *models.Recipe, tags []models.Tag, items []types.IngredientAmount) error {
	if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return fmt.Errorf("failed to clear recipe ingredients: %w", err)
	}

	rows := make([]models.RecipeIngredient, len(items))
	for i, item := range items {
		rows[i] = models.RecipeIngredient{
			RecipeID:     recipe.ID,
			IngredientID: item.ID,
			Amount:       item.Amount,
		}
	}
	if err := tx.Omit(clause.Associations).CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("failed to create recipe ingredients: %w", err)
	}

	if err := tx.Model(recipe).Association("Tags").Replace(tags); err != nil {
		return fmt.Errorf("failed to set recipe tags: %w", err)
	}
	return nil
}

// recipeResponses loads the recipes with their relations and viewer flags,
// keeping the order of ids. Unknown ids are skipped.
func (s *RecipeService) recipeResponses(ctx context.Context, viewerID uint, ids []uint) ([]types.RecipeResponse, error) {
	if len(ids) == 0 {
		return []types.RecipeResponse{}, nil
	}

	var recipes []models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient").
		Where("id IN ?", ids).
		Find(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}

	authorIDs := make([]uint, 0, len(recipes))
	for _, r := range recipes {
		authorIDs = append(authorIDs, r.AuthorID)
	}
	favorited, err := idSet(ctx, s.db, &models.Favorite{}, viewerID, "recipe_id", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	inCart, err := idSet(ctx, s.db, &models.ShoppingCartItem{}, viewerID, "recipe_id", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load shopping cart: %w", err)
	}
	subscribed, err := subscribedTo(ctx, s.db, viewerID, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	byID := make(map[uint]*models.Recipe, len(recipes))
	for i := range recipes {
		byID[recipes[i].ID] = &recipes[i]
	}
	out := make([]types.RecipeResponse, 0, len(recipes))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			continue
		}
		resp := types.RecipeResponse{
			ID:               r.ID,
			Tags:             make([]types.TagResponse, 0, len(r.Tags)),
			Author:           toUserResponse(&r.Author, subscribed[r.AuthorID]),
			Ingredients:      make([]types.RecipeIngredientResponse, 0, len(r.Ingredients)),
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
		}
		for i := range r.Tags {
			resp.Tags = append(resp.Tags, toTagResponse(&r.Tags[i]))
		}
		for _, ri := range r.Ingredients {
			resp.Ingredients = append(resp.Ingredients, types.RecipeIngredientResponse{
				ID:              ri.IngredientID,
				Name:            ri.Ingredient.Name,
				MeasurementUnit: ri.Ingredient.MeasurementUnit,
				Amount:          ri.Amount,
			})
		}
		out = append(out, resp)
	}
	return out, nil
}
