package types

// MaxIngredientAmount caps the amount of one ingredient in a recipe, after
// duplicates are merged.
const MaxIngredientAmount = 32767

// IngredientAmount is one submitted ingredient entry of a recipe.
type IngredientAmount struct {
	ID     uint `json:"id" binding:"required"`
	Amount int  `json:"amount" binding:"required,min=1,max=32767"`
}

// RecipeRequest is the body of recipe create and update. Tags and ingredients are
// always replaced wholesale.
type RecipeRequest struct {
	Name        string             `json:"name" binding:"required,max=256"`
	Text        string             `json:"text" binding:"required"`
	Image       string             `json:"image"`
	CookingTime int                `json:"cooking_time" binding:"required,min=1"`
	Tags        []uint             `json:"tags" binding:"required,min=1"`
	Ingredients []IngredientAmount `json:"ingredients" binding:"required,min=1,dive"`
}

type TagRequest struct {
	Name  string `json:"name" binding:"required,max=16"`
	Color string `json:"color" binding:"required,hexcolor"`
	Slug  string `json:"slug" binding:"required,max=50,slug"`
}

type IngredientRequest struct {
	Name            string `json:"name" binding:"required,max=64"`
	MeasurementUnit string `json:"measurement_unit" binding:"required,max=8"`
}

// RecipeFilter carries the recipe list query parameters.
type RecipeFilter struct {
	Tags             []string
	AuthorID         *uint
	IsFavorited      bool
	IsInShoppingCart bool
	Page             Page
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Limit  int
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}
