// Package validator checks request bodies and query parameters before they
// reach the service, and reports per-field failures.
package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/filter"
	apperrors "github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/errors"
)

// ValidationError holds per-field validation failure messages. Kind is
// ErrInvalidInput or ErrInvalidType and decides the response status.
type ValidationError struct {
	Kind   error
	Title  string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Message())
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// Message joins the field messages in field order.
func (e *ValidationError) Message() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, e.Fields[f])
	}
	return strings.Join(msgs, "; ")
}

func invalid(kind error, title, field, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Title: title, Fields: map[string]string{field: msg}}
}

// DecodeCreateRequest extracts the "value" member of a create request body.
// The body must be a JSON object (400), must contain "value" (400), and
// "value" must be a JSON string (422).
func DecodeCreateRequest(body []byte) (string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return "", invalid(apperrors.ErrInvalidInput, "Invalid request body",
			"body", "Request body must be a valid JSON object")
	}
	raw, ok := obj["value"]
	if !ok {
		return "", invalid(apperrors.ErrInvalidInput, "Missing required field",
			"value", `The "value" field is required`)
	}
	var value string
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) || json.Unmarshal(raw, &value) != nil {
		return "", invalid(apperrors.ErrInvalidType, "Invalid data type",
			"value", `The "value" field must be a string`)
	}
	return value, nil
}

// ParseFilterParams builds a filter set from list query parameters. Absent
// parameters leave the predicate unset; unknown parameters are ignored.
func ParseFilterParams(q url.Values) (filter.Filter, error) {
	var f filter.Filter
	errs := make(map[string]string)

	if q.Has("is_palindrome") {
		switch q.Get("is_palindrome") {
		case "true":
			f.IsPalindrome = filter.Bool(true)
		case "false":
			f.IsPalindrome = filter.Bool(false)
		default:
			errs["is_palindrome"] = `is_palindrome must be "true" or "false"`
		}
	}
	for _, p := range []struct {
		name string
		dst  **int
	}{
		{"min_length", &f.MinLength},
		{"max_length", &f.MaxLength},
		{"word_count", &f.WordCount},
	} {
		if !q.Has(p.name) {
			continue
		}
		n, err := strconv.Atoi(q.Get(p.name))
		if err != nil || n < 0 {
			errs[p.name] = p.name + " must be a non-negative integer"
			continue
		}
		*p.dst = filter.Int(n)
	}
	if q.Has("contains_character") {
		c := q.Get("contains_character")
		if !filter.IsSingleCharacter(c) {
			errs["contains_character"] = "contains_character must be a single character"
		} else {
			f.ContainsCharacter = filter.String(c)
		}
	}

	if len(errs) > 0 {
		return filter.Filter{}, &ValidationError{
			Kind:   apperrors.ErrInvalidInput,
			Title:  "Invalid parameter",
			Fields: errs,
		}
	}
	return f, nil
}

// NaturalLanguageQuery returns the "query" parameter, which must be present
// and not blank.
func NaturalLanguageQuery(q url.Values) (string, error) {
	query := q.Get("query")
	if query == "" {
		return "", invalid(apperrors.ErrInvalidInput, "Missing query parameter",
			"query", `The "query" parameter is required`)
	}
	if strings.TrimSpace(query) == "" {
		return "", invalid(apperrors.ErrInvalidInput, "Invalid query parameter",
			"query", `The "query" parameter must be a non-empty string`)
	}
	return query, nil
}
