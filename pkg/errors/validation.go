package errors

import (
	"strings"
	"unicode"
)

// MaxRecordIDLength bounds record identifiers accepted from datasets.
const MaxRecordIDLength = 256

// ValidateRecordID validates a record identifier for safety.
//
// Identifiers are opaque to the layout engine, but they end up as SVG element
// ids and cache key material, so the rules are conservative:
//   - No empty identifiers
//   - No control characters
//   - No quotes or angle brackets
//   - Maximum length of 256 characters
func ValidateRecordID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "record id cannot be empty")
	}

	if len(id) > MaxRecordIDLength {
		return New(ErrCodeInvalidInput, "record id too long (max %d characters)", MaxRecordIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "record id contains invalid control characters")
		}
	}

	if strings.ContainsAny(id, `"'<>`) {
		return New(ErrCodeInvalidInput, "record id contains invalid characters: %q", id)
	}

	return nil
}

// ValidateFormat checks that format is one of the allowed output formats.
func ValidateFormat(format string, allowed []string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return New(ErrCodeInvalidFormat, "invalid format: %s (must be one of %s)", format, strings.Join(allowed, ", "))
}
