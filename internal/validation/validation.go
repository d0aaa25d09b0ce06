// Package validation registers the custom binding rules and turns validator
// errors into per-field messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	slugPattern  = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	registerOnce sync.Once
)

// Register installs the slug rule and JSON field naming on gin's validator.
// It is safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
	})
}

// IsSlug reports whether s is a valid tag slug.
func IsSlug(s string) bool {
	return slugPattern.MatchString(s)
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// FieldErrors converts a binding error into a field → messages map. Errors that
// are not validation failures end up under "non_field_errors".
func FieldErrors(err error) map[string][]string {
	out := map[string][]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["non_field_errors"] = []string{err.Error()}
		return out
	}
	for _, fe := range verrs {
		field := topLevelField(fe.Namespace())
		out[field] = append(out[field], message(fe))
	}
	return out
}

// topLevelField strips the struct name and keeps the first JSON path element,
// so "RecipeRequest.ingredients[0].amount" reports under "ingredients".
func topLevelField(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	if i := strings.IndexAny(ns, ".["); i >= 0 {
		ns = ns[:i]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "hexcolor":
		return "Enter a valid hex color."
	case "email":
		return "Enter a valid email address."
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
