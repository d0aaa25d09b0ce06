package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/pageza/foodgram/backend/internal/types"
	"gorm.io/gorm"
)

const shoppingListHeader = "Ingredient\tAmount\tMeasurement Unit"

const shoppingListQuery = `
SELECT i.name AS name, i.measurement_unit AS measurement_unit, SUM(ri.amount) AS amount
FROM recipe_ingredients ri
JOIN ingredients i ON i.id = ri.ingredient_id
JOIN shopping_carts sc ON sc.recipe_id = ri.recipe_id
WHERE sc.user_id = ?
GROUP BY i.name, i.measurement_unit
ORDER BY i.name`

// ShoppingListService aggregates the ingredients of every recipe in a user's
// shopping cart.
type ShoppingListService struct {
	db     *sqlx.DB
	header bool
}

// NewShoppingListService shares the gorm connection pool. header controls
// whether the rendered list starts with a column header line.
func NewShoppingListService(db *gorm.DB, header bool) (*ShoppingListService, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	driver := "postgres"
	if db.Dialector.Name() == "sqlite" {
		driver = "sqlite3"
	}
	return &ShoppingListService{
		db:     sqlx.NewDb(sqlDB, driver),
		header: header,
	}, nil
}

// Aggregate sums amounts per (ingredient name, unit) over the user's cart,
// ordered by name and then unit.
func (s *ShoppingListService) Aggregate(ctx context.Context, userID uint) ([]types.ShoppingListItem, error) {
	items := []types.ShoppingListItem{}
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(shoppingListQuery), userID); err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	// database collations disagree on ordering, so settle it here
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].MeasurementUnit < items[j].MeasurementUnit
	})
	return items, nil
}

// Render formats items as tab separated "name\tamount\tunit" lines. An empty
// list renders as an empty document even with the header enabled.
func (s *ShoppingListService) Render(items []types.ShoppingListItem) []byte {
	if len(items) == 0 {
		return []byte{}
	}
	var buf bytes.Buffer
	if s.header {
		buf.WriteString(shoppingListHeader)
		buf.WriteByte('\n')
	}
	for i, item := range items {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(item.Name)
		buf.WriteByte('\t')
		buf.WriteString(strconv.FormatInt(item.Amount, 10))
		buf.WriteByte('\t')
		buf.WriteString(item.MeasurementUnit)
	}
	return buf.Bytes()
}

// Export aggregates and renders the list, returning the body and line count.
func (s *ShoppingListService) Export(ctx context.Context, userID uint) ([]byte, int, error) {
	items, err := s.Aggregate(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return s.Render(items), len(items), nil
}
