package errors

import (
	"math"
	"strings"
	"unicode"
)

// MaxIDLength bounds node and link ids.
const MaxIDLength = 128

// ValidateID validates a node or link id taken from a request payload.
// kind names the id in messages ("node", "link").
//
// The validation rules:
//   - No empty ids
//   - No control characters or whitespace
//   - No '#', which separates node and pad in pad references
//   - Maximum length of [MaxIDLength] bytes
func ValidateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidDiagram, "%s id cannot be empty", kind)
	}
	if len(id) > MaxIDLength {
		return New(ErrCodeInvalidDiagram, "%s id too long (max %d characters)", kind, MaxIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidDiagram, "%s id %q contains whitespace or control characters", kind, id)
		}
	}
	if strings.Contains(id, "#") {
		return New(ErrCodeInvalidDiagram, "%s id %q cannot contain '#'", kind, id)
	}
	return nil
}

// ValidateCoordinate rejects NaN and infinite coordinates.
func ValidateCoordinate(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidDiagram, "%s is not a finite number", what)
	}
	return nil
}

// ValidateGridSize checks the layout grid. Zero selects the default.
func ValidateGridSize(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return New(ErrCodeInvalidOptions, "grid size must be a non-negative number, got %v", v)
	}
	return nil
}

// ValidatePositive checks an integer option that must not be negative.
// Zero selects the default.
func ValidatePositive(name string, n, max int) error {
	if n < 0 {
		return New(ErrCodeInvalidOptions, "%s cannot be negative, got %d", name, n)
	}
	if max > 0 && n > max {
		return New(ErrCodeInvalidOptions, "%s too large (max %d), got %d", name, max, n)
	}
	return nil
}
