package validation

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Slug  string `json:"slug" binding:"required,slug"`
	Items []item `json:"items" binding:"required,min=1,dive"`
}

type item struct {
	Amount int `json:"amount" binding:"min=1"`
}

func TestSlugRule(t *testing.T) {
	Register()
	Register()

	err := binding.Validator.ValidateStruct(&sample{Slug: "break fast", Items: []item{{Amount: 1}}})
	require.Error(t, err)
	fields := FieldErrors(err)
	assert.Contains(t, fields, "slug")

	assert.NoError(t, binding.Validator.ValidateStruct(&sample{Slug: "break-fast_2", Items: []item{{Amount: 1}}}))
}

func TestFieldErrorsUsesTopLevelJSONName(t *testing.T) {
	Register()

	err := binding.Validator.ValidateStruct(&sample{Slug: "ok", Items: []item{{Amount: 0}}})
	require.Error(t, err)
	fields := FieldErrors(err)
	assert.Equal(t, []string{"Ensure this value is greater than or equal to 1."}, fields["items"])
}

func TestFieldErrorsNonValidation(t *testing.T) {
	fields := FieldErrors(errors.New("unexpected EOF"))
	assert.Equal(t, []string{"unexpected EOF"}, fields["non_field_errors"])
}

func TestIsSlug(t *testing.T) {
	assert.True(t, IsSlug("breakfast"))
	assert.False(t, IsSlug(""))
	assert.False(t, IsSlug("zavtrak!"))
}
