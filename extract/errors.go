package extract

import (
	"errors"
	"fmt"

	"skinbuilder/layout"
)

// RegionNotFoundError indicates the container for a region is missing from the document.
type RegionNotFoundError struct {
	Kind     layout.Kind
	Selector string
}

func (e *RegionNotFoundError) Error() string {
	return fmt.Sprintf("%s not found (selector %q)", e.Kind, e.Selector)
}

// PatternMismatchError indicates no anchor in a region carried the expected id pattern.
type PatternMismatchError struct {
	Pattern string
	Anchors int // Anchors inspected
}

func (e *PatternMismatchError) Error() string {
	return fmt.Sprintf("no link matching %s (checked %d anchors)", e.Pattern, e.Anchors)
}

// FormatMismatchError indicates a literal marker the markup always carried is gone.
type FormatMismatchError struct {
	Field  string
	Marker string
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s", e.Field, e.Marker)
}

// IsRegionNotFound checks if an error is a RegionNotFoundError.
func IsRegionNotFound(err error) bool {
	var target *RegionNotFoundError
	return errors.As(err, &target)
}

// IsPatternMismatch checks if an error is a PatternMismatchError.
func IsPatternMismatch(err error) bool {
	var target *PatternMismatchError
	return errors.As(err, &target)
}

// IsFormatMismatch checks if an error is a FormatMismatchError.
func IsFormatMismatch(err error) bool {
	var target *FormatMismatchError
	return errors.As(err, &target)
}

// Reason classifies an extraction error for metrics and responses.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case IsRegionNotFound(err):
		return "region_not_found"
	case IsPatternMismatch(err):
		return "pattern_mismatch"
	case IsFormatMismatch(err):
		return "format_mismatch"
	default:
		return "other"
	}
}
