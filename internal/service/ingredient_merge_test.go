package service

import (
	"errors"
	"math"
	"testing"

	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeIngredients(t *testing.T) {
	tests := []struct {
		name string
		in   []types.IngredientAmount
		want []types.IngredientAmount
	}{
		{
			name: "sums duplicates",
			in:   []types.IngredientAmount{{ID: 1, Amount: 2}, {ID: 1, Amount: 3}, {ID: 2, Amount: 1}},
			want: []types.IngredientAmount{{ID: 1, Amount: 5}, {ID: 2, Amount: 1}},
		},
		{
			name: "keeps first occurrence order",
			in:   []types.IngredientAmount{{ID: 7, Amount: 1}, {ID: 3, Amount: 4}, {ID: 7, Amount: 9}},
			want: []types.IngredientAmount{{ID: 7, Amount: 10}, {ID: 3, Amount: 4}},
		},
		{
			name: "no duplicates",
			in:   []types.IngredientAmount{{ID: 1, Amount: 1}},
			want: []types.IngredientAmount{{ID: 1, Amount: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MergeIngredients(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeIngredientsRejects(t *testing.T) {
	_, err := MergeIngredients(nil)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "ingredients")

	_, err = MergeIngredients([]types.IngredientAmount{{ID: 1, Amount: 2}, {ID: 2, Amount: 0}})
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields["ingredients"], 1)

	_, err = MergeIngredients([]types.IngredientAmount{{ID: 2, Amount: -1}})
	assert.Error(t, err)

	tests := []struct {
		name string
		in   []types.IngredientAmount
	}{
		{"single amount over cap", []types.IngredientAmount{{ID: 1, Amount: types.MaxIngredientAmount + 1}}},
		{"merged sum over cap", []types.IngredientAmount{{ID: 1, Amount: types.MaxIngredientAmount}, {ID: 1, Amount: 1}}},
		{"huge amounts do not wrap", []types.IngredientAmount{{ID: 1, Amount: math.MaxInt}, {ID: 1, Amount: 2}}},
		{"three repeats over cap", []types.IngredientAmount{{ID: 4, Amount: 20000}, {ID: 4, Amount: 20000}, {ID: 4, Amount: 20000}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, err := MergeIngredients(tt.in)
			assert.Nil(t, merged)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, "ingredients")
		})
	}

	merged, err := MergeIngredients([]types.IngredientAmount{{ID: 1, Amount: types.MaxIngredientAmount - 1}, {ID: 1, Amount: 1}})
	require.NoError(t, err)
	assert.Equal(t, types.MaxIngredientAmount, merged[0].Amount)
}

func TestMergeTags(t *testing.T) {
	got, err := MergeTags([]uint{3, 1, 3, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 1, 2}, got)

	_, err = MergeTags([]uint{})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "tags")
}

func TestConflictErrorMatchesSentinel(t *testing.T) {
	err := error(&ConflictError{Field: "recipe", Message: "dup"})
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
}
