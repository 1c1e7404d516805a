package dto

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// fieldErrors collects per-field validation failures into one error.
type fieldErrors map[string]any

func (f fieldErrors) length(field, value string, min, max int) {
	if n := utf8.RuneCountInString(value); n < min || n > max {
		f[field] = fmt.Sprintf("must be between %d and %d characters", min, max)
	}
}

func (f fieldErrors) trimmedLength(field, value string, min, max int) {
	f.length(field, strings.TrimSpace(value), min, max)
}

func (f fieldErrors) tags(field string, tags []string) {
	if len(tags) > 10 {
		f[field] = "at most 10 tags"
		return
	}
	for _, tag := range tags {
		if n := utf8.RuneCountInString(strings.TrimSpace(tag)); n < 1 || n > 50 {
			f[field] = "each tag must be between 1 and 50 characters"
			return
		}
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewValidationError("invalid request", map[string]any(f))
}
