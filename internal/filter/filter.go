// Package filter defines the structured filter set used to narrow listings
// of stored strings. Every predicate is optional: a nil field means the
// property is unconstrained.
package filter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/analyzer"
	apperrors "github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/errors"
)

type Filter struct {
	IsPalindrome      *bool   `json:"is_palindrome,omitempty"`
	MinLength         *int    `json:"min_length,omitempty"`
	MaxLength         *int    `json:"max_length,omitempty"`
	WordCount         *int    `json:"word_count,omitempty"`
	ContainsCharacter *string `json:"contains_character,omitempty"`
}

// IsEmpty reports whether no predicate is set.
func (f Filter) IsEmpty() bool {
	return f.IsPalindrome == nil &&
		f.MinLength == nil &&
		f.MaxLength == nil &&
		f.WordCount == nil &&
		f.ContainsCharacter == nil
}

// Validate rejects filter sets whose length bounds cannot both hold.
func (f Filter) Validate() error {
	if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
		return fmt.Errorf("%w: min_length %d > max_length %d",
			apperrors.ErrConflictingFilters, *f.MinLength, *f.MaxLength)
	}
	return nil
}

// Matches reports whether a stored value with the given properties satisfies
// every present predicate.
func (f Filter) Matches(value string, props analyzer.Properties) bool {
	if f.IsPalindrome != nil && props.IsPalindrome != *f.IsPalindrome {
		return false
	}
	if f.MinLength != nil && props.Length < *f.MinLength {
		return false
	}
	if f.MaxLength != nil && props.Length > *f.MaxLength {
		return false
	}
	if f.WordCount != nil && props.WordCount != *f.WordCount {
		return false
	}
	if f.ContainsCharacter != nil && !strings.Contains(value, *f.ContainsCharacter) {
		return false
	}
	return true
}

// String renders the present predicates in a stable order, for logs and
// cache keys.
func (f Filter) String() string {
	parts := make([]string, 0, 5)
	if f.IsPalindrome != nil {
		parts = append(parts, fmt.Sprintf("is_palindrome=%t", *f.IsPalindrome))
	}
	if f.MinLength != nil {
		parts = append(parts, fmt.Sprintf("min_length=%d", *f.MinLength))
	}
	if f.MaxLength != nil {
		parts = append(parts, fmt.Sprintf("max_length=%d", *f.MaxLength))
	}
	if f.WordCount != nil {
		parts = append(parts, fmt.Sprintf("word_count=%d", *f.WordCount))
	}
	if f.ContainsCharacter != nil {
		parts = append(parts, fmt.Sprintf("contains_character=%q", *f.ContainsCharacter))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// IsSingleCharacter reports whether s is exactly one character, the unit
// contains_character is defined over.
func IsSingleCharacter(s string) bool {
	return utf8.RuneCountInString(s) == 1
}

func Bool(v bool) *bool       { return &v }
func Int(v int) *int          { return &v }
func String(v string) *string { return &v }
