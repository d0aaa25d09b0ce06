package service

import (
	"fmt"

	"github.com/pageza/foodgram/backend/internal/types"
)

// MergeIngredients folds repeated ingredient ids into one entry whose amount is
// the sum of the repeats. Entries keep the order of first occurrence. Every
// amount, before and after merging, must lie in [1, types.MaxIngredientAmount].
func MergeIngredients(items []types.IngredientAmount) ([]types.IngredientAmount, error) {
	if len(items) == 0 {
		return nil, NewValidationError("ingredients", "At least one ingredient is required.")
	}

	verr := &ValidationError{}
	merged := make([]types.IngredientAmount, 0, len(items))
	index := make(map[uint]int, len(items))
	for _, item := range items {
		if item.Amount < 1 {
			verr.Add("ingredients", fmt.Sprintf("Amount of ingredient %d must be at least 1.", item.ID))
			continue
		}
		if item.Amount > types.MaxIngredientAmount {
			verr.Add("ingredients", tooMuch(item.ID))
			continue
		}
		if i, ok := index[item.ID]; ok {
			// both terms are capped, so the sum cannot overflow
			if merged[i].Amount > types.MaxIngredientAmount-item.Amount {
				verr.Add("ingredients", tooMuch(item.ID))
				merged[i].Amount = types.MaxIngredientAmount
				continue
			}
			merged[i].Amount += item.Amount
			continue
		}
		index[item.ID] = len(merged)
		merged = append(merged, item)
	}
	if !verr.Empty() {
		return nil, verr
	}
	return merged, nil
}

func tooMuch(id uint) string {
	return fmt.Sprintf("Amount of ingredient %d must be at most %d.", id, types.MaxIngredientAmount)
}

// MergeTags drops repeated tag ids, keeping the first occurrence.
func MergeTags(ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, NewValidationError("tags", "At least one tag is required.")
	}
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
