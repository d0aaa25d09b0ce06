package models

import (
	"time"
)

type Recipe struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	AuthorID    uint               `gorm:"not null;index" json:"author_id"`
	Author      User               `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Name        string             `gorm:"size:256;not null" json:"name"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	Image       string             `gorm:"size:255;not null" json:"image"`
	CookingTime int                `gorm:"not null;check:chk_recipes_cooking_time,cooking_time >= 1" json:"cooking_time"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE" json:"-"`
}

// RecipeIngredient carries the amount of one ingredient in one recipe.
type RecipeIngredient struct {
	ID           uint       `gorm:"primaryKey" json:"-"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient" json:"-"`
	IngredientID uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient;index" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Amount       int        `gorm:"not null;check:chk_recipe_ingredients_amount,amount BETWEEN 1 AND 32767" json:"amount"`
}
