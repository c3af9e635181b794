package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/analyzer"
	apperrors "github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/errors"
)

func TestIsEmpty(t *testing.T) {
	assert.True(t, Filter{}.IsEmpty())
	assert.False(t, Filter{WordCount: Int(0)}.IsEmpty())
	assert.False(t, Filter{IsPalindrome: Bool(false)}.IsEmpty())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		f       Filter
		wantErr bool
	}{
		{"empty", Filter{}, false},
		{"only min", Filter{MinLength: Int(10)}, false},
		{"only max", Filter{MaxLength: Int(-1)}, false},
		{"equal bounds", Filter{MinLength: Int(3), MaxLength: Int(3)}, false},
		{"ordered bounds", Filter{MinLength: Int(3), MaxLength: Int(7)}, false},
		{"inverted bounds", Filter{MinLength: Int(10), MaxLength: Int(5)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrConflictingFilters)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMatches(t *testing.T) {
	value := "race car"
	props := analyzer.Analyze(value)

	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{"no predicates", Filter{}, true},
		{"palindrome true", Filter{IsPalindrome: Bool(true)}, true},
		{"palindrome false", Filter{IsPalindrome: Bool(false)}, false},
		{"min inclusive", Filter{MinLength: Int(8)}, true},
		{"min too high", Filter{MinLength: Int(9)}, false},
		{"max inclusive", Filter{MaxLength: Int(8)}, true},
		{"max too low", Filter{MaxLength: Int(7)}, false},
		{"word count", Filter{WordCount: Int(2)}, true},
		{"word count mismatch", Filter{WordCount: Int(1)}, false},
		{"contains", Filter{ContainsCharacter: String("c")}, true},
		{"contains is case sensitive", Filter{ContainsCharacter: String("C")}, false},
		{"contains space", Filter{ContainsCharacter: String(" ")}, true},
		{"all predicates", Filter{
			IsPalindrome:      Bool(true),
			MinLength:         Int(1),
			MaxLength:         Int(10),
			WordCount:         Int(2),
			ContainsCharacter: String("r"),
		}, true},
		{"one failing predicate", Filter{
			IsPalindrome: Bool(true),
			WordCount:    Int(3),
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Matches(value, props))
		})
	}
}

func TestJSONOmitsAbsentKeys(t *testing.T) {
	data, err := json.Marshal(Filter{MinLength: Int(6)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"min_length":6}`, string(data))

	data, err = json.Marshal(Filter{WordCount: Int(0), IsPalindrome: Bool(false)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_palindrome":false,"word_count":0}`, string(data))
}

func TestString(t *testing.T) {
	f := Filter{IsPalindrome: Bool(true), MaxLength: Int(4), ContainsCharacter: String("a")}
	assert.Equal(t, `{is_palindrome=true max_length=4 contains_character="a"}`, f.String())
	assert.Equal(t, "{}", Filter{}.String())
}

func TestIsSingleCharacter(t *testing.T) {
	assert.True(t, IsSingleCharacter("a"))
	assert.True(t, IsSingleCharacter("é"))
	assert.False(t, IsSingleCharacter(""))
	assert.False(t, IsSingleCharacter("ab"))
}
