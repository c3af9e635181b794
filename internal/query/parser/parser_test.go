package parser

import (
	"context"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/analyzer"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/filter"
	apperrors "github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		query string
		want  filter.Filter
	}{
		{"strings longer than 5 characters", filter.Filter{MinLength: filter.Int(6)}},
		{"palindromes with 2 words", filter.Filter{IsPalindrome: filter.Bool(true), WordCount: filter.Int(2)}},
		{"between 3 and 7 characters containing the letter a", filter.Filter{
			MinLength:         filter.Int(3),
			MaxLength:         filter.Int(7),
			ContainsCharacter: filter.String("a"),
		}},
		{"all single word palindromic strings", filter.Filter{IsPalindrome: filter.Bool(true), WordCount: filter.Int(1)}},
		{"strings longer than 10 characters", filter.Filter{MinLength: filter.Int(11)}},
		{"palindromic strings that contain the first vowel", filter.Filter{
			IsPalindrome:      filter.Bool(true),
			ContainsCharacter: filter.String("a"),
		}},
		{"strings containing the letter z", filter.Filter{ContainsCharacter: filter.String("z")}},
		{"strings with letter q", filter.Filter{ContainsCharacter: filter.String("q")}},
		{"words that contain x", filter.Filter{ContainsCharacter: filter.String("x")}},
		{"strings with the second vowel", filter.Filter{ContainsCharacter: filter.String("e")}},
		{"shorter than 4", filter.Filter{MaxLength: filter.Int(3)}},
		{"at least 3 characters", filter.Filter{MinLength: filter.Int(3)}},
		{"at most 1 character", filter.Filter{MaxLength: filter.Int(1)}},
		{"two word strings", filter.Filter{WordCount: filter.Int(2)}},
		{"double word strings", filter.Filter{WordCount: filter.Int(2)}},
		{"three word phrases", filter.Filter{WordCount: filter.Int(3)}},
		{"strings of 4 words", filter.Filter{WordCount: filter.Int(4)}},
		{"strings of 1 word", filter.Filter{WordCount: filter.Int(1)}},
		{"  PALINDROME  ", filter.Filter{IsPalindrome: filter.Bool(true)}},
		{"Strings LONGER THAN 2", filter.Filter{MinLength: filter.Int(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.query))
		})
	}
}

func TestParseUnrecognized(t *testing.T) {
	for _, q := range []string{"xyzzy nonsense", "", "   ", "show me everything", "longer than many", "containing the letter 7"} {
		t.Run(q, func(t *testing.T) {
			f := Parse(q)
			assert.True(t, f.IsEmpty(), "got %s", f)
		})
	}
}

func TestParseNumericWordCountOverridesKeyword(t *testing.T) {
	f := Parse("single word strings, actually 3 words")
	require.NotNil(t, f.WordCount)
	assert.Equal(t, 3, *f.WordCount)

	f = Parse("one word or two word strings")
	require.NotNil(t, f.WordCount)
	assert.Equal(t, 2, *f.WordCount, "later keyword rule overwrites earlier one")
}

func TestParseLengthRulesOverwrite(t *testing.T) {
	// at_least is declared after longer_than, so it wins for min_length.
	f := Parse("longer than 10 and at least 4 characters")
	require.NotNil(t, f.MinLength)
	assert.Equal(t, 4, *f.MinLength)

	// between is declared last among length rules and replaces both bounds.
	f = Parse("shorter than 20 between 2 and 5 characters")
	assert.Equal(t, filter.Filter{MinLength: filter.Int(2), MaxLength: filter.Int(5)}, f)
}

func TestParseContainsFirstRuleWins(t *testing.T) {
	// containing_letter is declared before with_letter.
	f := Parse("with the letter b containing the letter c")
	require.NotNil(t, f.ContainsCharacter)
	assert.Equal(t, "c", *f.ContainsCharacter)

	// An explicit letter beats the vowel phrases.
	f = Parse("strings with the letter k and the first vowel")
	require.NotNil(t, f.ContainsCharacter)
	assert.Equal(t, "k", *f.ContainsCharacter)

	f = Parse("first vowel or second vowel")
	require.NotNil(t, f.ContainsCharacter)
	assert.Equal(t, "a", *f.ContainsCharacter)
}

func TestParseContainsNeedsWordBoundary(t *testing.T) {
	f := Parse("contains xy")
	assert.Nil(t, f.ContainsCharacter)
}

func TestParseShorterThanZero(t *testing.T) {
	f := Parse("shorter than 0")
	require.NotNil(t, f.MaxLength)
	assert.Equal(t, -1, *f.MaxLength)
}

func TestParseLongerThanMaxIntSaturates(t *testing.T) {
	f := Parse("longer than " + strconv.Itoa(math.MaxInt) + " characters")
	require.NotNil(t, f.MinLength)
	assert.Equal(t, math.MaxInt, *f.MinLength)
	require.NoError(t, Validate(f))
	assert.False(t, f.Matches("racecar", analyzer.Analyze("racecar")))
}

func TestParseNumberOutOfRangeIsIgnored(t *testing.T) {
	f := Parse("longer than 99999999999999999999999 characters")
	assert.Nil(t, f.MinLength)
	assert.True(t, f.IsEmpty())
}

func TestExplain(t *testing.T) {
	interp := Explain("  Palindromes longer than 3 containing the letter r ")
	assert.Equal(t, "  Palindromes longer than 3 containing the letter r ", interp.Original)
	assert.Equal(t, "palindromes longer than 3 containing the letter r", interp.Normalized)
	assert.Equal(t, []string{"palindrome", "longer_than", "containing_letter"}, interp.Matched)

	assert.Empty(t, Explain("nothing here").Matched)
}

func TestValidate(t *testing.T) {
	err := Validate(filter.Filter{MinLength: filter.Int(10), MaxLength: filter.Int(5)})
	assert.ErrorIs(t, err, apperrors.ErrConflictingFilters)

	err = Validate(Parse("longer than 10 and shorter than 5"))
	assert.ErrorIs(t, err, apperrors.ErrConflictingFilters)

	assert.NoError(t, Validate(Parse("between 3 and 7 characters")))
	assert.NoError(t, Validate(filter.Filter{}))
}

func TestParserTranslate(t *testing.T) {
	f, err := New().Translate(context.Background(), "palindromes")
	require.NoError(t, err)
	assert.Equal(t, filter.Filter{IsPalindrome: filter.Bool(true)}, f)
}

func BenchmarkParse(b *testing.B) {
	queries := []string{
		"all single word palindromic strings",
		"between 3 and 7 characters containing the letter a",
		"xyzzy nonsense",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Parse(queries[i%len(queries)])
	}
}
