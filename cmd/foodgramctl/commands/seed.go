package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

var (
	// Seed flags
	ingredientsFile string
	seedPassword    string
)

var seedUsers = []service.CreateUserParams{
	{Email: "admin@example.com", Username: "admin", FirstName: "Admin", LastName: "User", Role: models.RoleAdmin},
	{Email: "john.doe@example.com", Username: "johndoe", FirstName: "John", LastName: "Doe"},
	{Email: "jane.smith@example.com", Username: "janesmith", FirstName: "Jane", LastName: "Smith"},
}

var seedTags = []types.TagRequest{
	{Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"},
	{Name: "Lunch", Color: "#49B64E", Slug: "lunch"},
	{Name: "Dinner", Color: "#8775D2", Slug: "dinner"},
}

var seedIngredients = []types.IngredientRequest{
	{Name: "flour", MeasurementUnit: "g"},
	{Name: "sugar", MeasurementUnit: "g"},
	{Name: "salt", MeasurementUnit: "g"},
	{Name: "milk", MeasurementUnit: "ml"},
	{Name: "eggs", MeasurementUnit: "pcs"},
	{Name: "butter", MeasurementUnit: "g"},
}

// seedCmd loads demo data. Rows that already exist are skipped, so it can be
// run repeatedly.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo users, tags and ingredients",
	Long: `Load demo users, tags and ingredients. Existing rows are left alone.

Examples:
  foodgramctl seed
  foodgramctl seed --ingredients ./data/ingredients.json --password secret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close(db)

		ingredients := seedIngredients
		if ingredientsFile != "" {
			ingredients, err = readIngredients(ingredientsFile)
			if err != nil {
				return err
			}
		}
		return seed(cmd.Context(), db, ingredients)
	},
}

func init() {
	seedCmd.Flags().StringVar(&ingredientsFile, "ingredients", "", `JSON file of [{"name": ..., "measurement_unit": ...}]`)
	seedCmd.Flags().StringVar(&seedPassword, "password", "foodgram123", "Password for the seeded users")
	rootCmd.AddCommand(seedCmd)
}

func readIngredients(path string) ([]types.IngredientRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ingredients: %w", err)
	}
	var out []types.IngredientRequest
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return out, nil
}

func seed(ctx context.Context, db *gorm.DB, ingredients []types.IngredientRequest) error {
	users := service.NewUserService(db)
	catalog := service.NewCatalogService(db)
	var created, skipped int

	count := func(what string, err error) error {
		switch {
		case err == nil:
			created++
		case errors.Is(err, service.ErrConflict):
			skipped++
			logging.Debug().Str("row", what).Msg("already exists")
		default:
			return fmt.Errorf("failed to seed %s: %w", what, err)
		}
		return nil
	}

	for _, p := range seedUsers {
		p.Password = seedPassword
		_, err := users.CreateUser(ctx, p)
		if err := count("user "+p.Username, err); err != nil {
			return err
		}
	}
	for i := range seedTags {
		_, err := catalog.CreateTag(ctx, &seedTags[i])
		if err := count("tag "+seedTags[i].Slug, err); err != nil {
			return err
		}
	}
	for i := range ingredients {
		_, err := catalog.CreateIngredient(ctx, &ingredients[i])
		if err := count("ingredient "+ingredients[i].Name, err); err != nil {
			return err
		}
	}

	logging.Info().Int("created", created).Int("skipped", skipped).Msg("seed complete")
	return nil
}
