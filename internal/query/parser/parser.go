// Package parser translates constrained natural-language phrases such as
// "single word palindromes longer than 3 characters" into a filter set. It
// recognizes a fixed list of phrase patterns; text outside those patterns is
// ignored, and a query that matches nothing yields an empty filter.
package parser

import (
	"context"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/filter"
)

// Interpretation is the outcome of parsing one query.
type Interpretation struct {
	Original   string        `json:"original"`
	Normalized string        `json:"normalized"`
	Filters    filter.Filter `json:"parsed_filters"`
	Matched    []string      `json:"matched_rules"`
}

// Parse returns the filter set described by query.
func Parse(query string) filter.Filter {
	return Explain(query).Filters
}

// Explain parses query and also reports which rules fired, in evaluation
// order.
func Explain(query string) Interpretation {
	normalized := Normalize(query)
	interp := Interpretation{
		Original:   query,
		Normalized: normalized,
		Matched:    make([]string, 0),
	}
	if normalized == "" {
		return interp
	}
	for _, r := range rules {
		if r.apply(normalized, &interp.Filters) {
			interp.Matched = append(interp.Matched, r.name)
		}
	}
	return interp
}

// Validate checks a parsed filter set for contradictory predicates.
func Validate(f filter.Filter) error {
	return f.Validate()
}

// Normalize lower-cases and trims query. Two queries with the same
// normalized form always parse identically.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Parser adapts Parse to the translator contract used by the query service.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

func (p *Parser) Translate(_ context.Context, query string) (filter.Filter, error) {
	return Parse(query), nil
}
