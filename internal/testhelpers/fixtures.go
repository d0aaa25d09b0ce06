package testhelpers

import (
	"fmt"
	"testing"
	"time"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"gorm.io/gorm"
)

const TestJWTSecret = "test-jwt-secret"

// TestAuthService signs and validates tokens with TestJWTSecret.
func TestAuthService() *service.AuthService {
	return service.NewAuthService(TestJWTSecret, time.Hour)
}

// CreateTestUser inserts a user; the password hash is a placeholder.
func CreateTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("%s@example.com", username),
		Username:     username,
		FirstName:    "Test",
		LastName:     username,
		PasswordHash: "not-a-real-hash",
		Role:         models.RoleUser,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestUserAndToken creates a user and a bearer token for it.
func CreateTestUserAndToken(t *testing.T, db *gorm.DB, username string) (*models.User, string) {
	t.Helper()
	user := CreateTestUser(t, db, username)
	token, err := TestAuthService().GenerateToken(user)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return user, token
}

// MakeAdmin grants the admin role to user.
func MakeAdmin(t *testing.T, db *gorm.DB, user *models.User) {
	t.Helper()
	if err := db.Model(user).Update("role", models.RoleAdmin).Error; err != nil {
		t.Fatalf("failed to promote user: %v", err)
	}
	user.Role = models.RoleAdmin
}

func CreateTestTag(t *testing.T, db *gorm.DB, slug, color string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: slug, Color: color, Slug: slug}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create test tag: %v", err)
	}
	return tag
}

func CreateTestIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(ingredient).Error; err != nil {
		t.Fatalf("failed to create test ingredient: %v", err)
	}
	return ingredient
}

// CreateTestRecipe inserts a recipe with the given tags and ingredient amounts
// (ingredient id -> amount).
func CreateTestRecipe(t *testing.T, db *gorm.DB, authorID uint, name string, tags []*models.Tag, amounts map[uint]int) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        name,
		Text:        "Mix everything.",
		Image:       "http://localhost/media/recipes/images/test.png",
		CookingTime: 10,
	}
	for _, tag := range tags {
		recipe.Tags = append(recipe.Tags, *tag)
	}
	for id, amount := range amounts {
		recipe.Ingredients = append(recipe.Ingredients, models.RecipeIngredient{IngredientID: id, Amount: amount})
	}
	if err := db.Omit("Author", "Ingredients.Ingredient").Create(recipe).Error; err != nil {
		t.Fatalf("failed to create test recipe: %v", err)
	}
	return recipe
}

func AddToCart(t *testing.T, db *gorm.DB, userID, recipeID uint) {
	t.Helper()
	if err := db.Omit("User", "Recipe").Create(&models.ShoppingCartItem{UserID: userID, RecipeID: recipeID}).Error; err != nil {
		t.Fatalf("failed to add recipe to cart: %v", err)
	}
}
