package errors

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a struct validator that reports fields by their json
// names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FromValidation converts the first failure of a struct validation into an
// [ErrCodeInvalidConfig] error. Other errors are wrapped unchanged.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return Wrap(ErrCodeInvalidConfig, err, "invalid configuration")
	}
	fe := verrs[0]
	var rule string
	switch fe.Tag() {
	case "gt":
		rule = "> " + fe.Param()
	case "gte":
		rule = ">= " + fe.Param()
	case "len":
		rule = "of length " + fe.Param()
	default:
		rule = fmt.Sprintf("satisfy %s=%s", fe.Tag(), fe.Param())
	}
	return New(ErrCodeInvalidConfig, "%s must be %s, got %v", fe.Field(), rule, fe.Value())
}

// ValidateBoundingBox validates a clip window given as minx, miny, maxx, maxy.
//
// The rules are:
//   - All four values must be finite
//   - maxx must be strictly greater than minx
//   - maxy must be strictly greater than miny
//
// A box with zero width or height is degenerate and rejected.
func ValidateBoundingBox(minX, minY, maxX, maxY float64) error {
	for _, v := range []float64{minX, minY, maxX, maxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidConfig, "bounding_box values must be finite")
		}
	}
	if maxX <= minX {
		return New(ErrCodeInvalidConfig, "bounding_box has no width (minx=%g, maxx=%g)", minX, maxX)
	}
	if maxY <= minY {
		return New(ErrCodeInvalidConfig, "bounding_box has no height (miny=%g, maxy=%g)", minY, maxY)
	}
	return nil
}

// ValidatePositive checks that an optional setting is strictly positive.
// A nil value means the setting is absent and always passes.
func ValidatePositive(name string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || *v <= 0 {
		return New(ErrCodeInvalidConfig, "%s must be > 0, got %g", name, *v)
	}
	return nil
}

// ValidateNonNegative checks that an optional setting is zero or positive.
// A nil value means the setting is absent and always passes.
func ValidateNonNegative(name string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || *v < 0 {
		return New(ErrCodeInvalidConfig, "%s must be >= 0, got %g", name, *v)
	}
	return nil
}

// ValidatePath validates an input or output file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.TrimSpace(path) != path {
		return New(ErrCodeInvalidPath, "path has leading or trailing whitespace")
	}

	return nil
}
