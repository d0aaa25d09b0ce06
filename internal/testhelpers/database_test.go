package testhelpers

import (
	"testing"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupSQLiteMigratesSchema(t *testing.T) {
	db := SetupSQLite(t)

	for _, model := range models.All() {
		assert.True(t, db.Migrator().HasTable(model), "%T", model)
	}
	assert.True(t, db.Migrator().HasTable("recipe_tags"))
}

func TestSQLiteEnforcesConstraints(t *testing.T) {
	db := SetupSQLite(t)
	user := CreateTestUser(t, db, "cook")

	// cooking time must be positive
	err := db.Omit("Author").Create(&models.Recipe{AuthorID: user.ID, Name: "n", Text: "t", Image: "i", CookingTime: 0}).Error
	assert.Error(t, err)

	// unknown author
	err = db.Omit("Author").Create(&models.Recipe{AuthorID: 999, Name: "n", Text: "t", Image: "i", CookingTime: 1}).Error
	assert.Error(t, err)

	// no self subscription
	err = db.Omit("User", "Author").Create(&models.Subscription{UserID: user.ID, AuthorID: user.ID}).Error
	assert.Error(t, err)
}

func TestCreateTestRecipe(t *testing.T) {
	db := SetupSQLite(t)
	user := CreateTestUser(t, db, "cook")
	tag := CreateTestTag(t, db, "lunch", "#00FF00")
	salt := CreateTestIngredient(t, db, "salt", "g")

	recipe := CreateTestRecipe(t, db, user.ID, "Soup", []*models.Tag{tag}, map[uint]int{salt.ID: 5})

	var count int64
	require.NoError(t, db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", recipe.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, db.Table("recipe_tags").Where("recipe_id = ?", recipe.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
