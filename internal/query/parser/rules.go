package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/filter"
)

// rule inspects a normalized query and, when it recognizes its phrase,
// writes into f and returns true.
type rule struct {
	name  string
	apply func(query string, f *filter.Filter) bool
}

var (
	numericWordsPattern = regexp.MustCompile(`(\d+)\s+words?`)
	longerThanPattern   = regexp.MustCompile(`longer than (\d+)`)
	shorterThanPattern  = regexp.MustCompile(`shorter than (\d+)`)
	atLeastPattern      = regexp.MustCompile(`at least (\d+) characters?`)
	atMostPattern       = regexp.MustCompile(`at most (\d+) characters?`)
	betweenPattern      = regexp.MustCompile(`between (\d+) and (\d+)`)
	containingPattern   = regexp.MustCompile(`containing (?:the )?letter ([a-z])`)
	containsPattern     = regexp.MustCompile(`contains? ([a-z])\b`)
	withLetterPattern   = regexp.MustCompile(`with (?:the )?letter ([a-z])`)
)

// rules is evaluated top to bottom and every rule may fire.
//
// Word count and length rules overwrite an earlier value for the same key,
// so the last matching rule wins. Containment rules only fill
// contains_character while it is unset, so the first matching rule wins.
var rules = []rule{
	keywordRule("palindrome", []string{"palindrome", "palindromic"}, func(f *filter.Filter) {
		f.IsPalindrome = filter.Bool(true)
	}),

	keywordRule("single_word", []string{"single word", "one word"}, setWordCount(1)),
	keywordRule("two_words", []string{"two word", "double word"}, setWordCount(2)),
	keywordRule("three_words", []string{"three word"}, setWordCount(3)),
	numberRule("n_words", numericWordsPattern, func(f *filter.Filter, n []int) {
		f.WordCount = filter.Int(n[0])
	}),

	numberRule("longer_than", longerThanPattern, func(f *filter.Filter, n []int) {
		// Nothing is longer than the largest int; saturate instead of wrapping.
		f.MinLength = filter.Int(n[0] + min(1, math.MaxInt-n[0]))
	}),
	numberRule("shorter_than", shorterThanPattern, func(f *filter.Filter, n []int) {
		f.MaxLength = filter.Int(n[0] - 1)
	}),
	numberRule("at_least", atLeastPattern, func(f *filter.Filter, n []int) {
		f.MinLength = filter.Int(n[0])
	}),
	numberRule("at_most", atMostPattern, func(f *filter.Filter, n []int) {
		f.MaxLength = filter.Int(n[0])
	}),
	numberRule("between", betweenPattern, func(f *filter.Filter, n []int) {
		f.MinLength = filter.Int(n[0])
		f.MaxLength = filter.Int(n[1])
	}),

	letterRule("containing_letter", containingPattern),
	letterRule("contains", containsPattern),
	letterRule("with_letter", withLetterPattern),
	fixedLetterRule("first_vowel", "first vowel", "a"),
	fixedLetterRule("second_vowel", "second vowel", "e"),
}

func keywordRule(name string, keywords []string, set func(f *filter.Filter)) rule {
	return rule{
		name: name,
		apply: func(query string, f *filter.Filter) bool {
			for _, kw := range keywords {
				if strings.Contains(query, kw) {
					set(f)
					return true
				}
			}
			return false
		},
	}
}

// numberRule fires when pattern matches and every capture group parses as a
// non-negative integer.
func numberRule(name string, pattern *regexp.Regexp, set func(f *filter.Filter, n []int)) rule {
	return rule{
		name: name,
		apply: func(query string, f *filter.Filter) bool {
			m := pattern.FindStringSubmatch(query)
			if m == nil {
				return false
			}
			nums := make([]int, 0, len(m)-1)
			for _, group := range m[1:] {
				n, err := strconv.Atoi(group)
				if err != nil {
					return false
				}
				nums = append(nums, n)
			}
			set(f, nums)
			return true
		},
	}
}

func letterRule(name string, pattern *regexp.Regexp) rule {
	return rule{
		name: name,
		apply: func(query string, f *filter.Filter) bool {
			if f.ContainsCharacter != nil {
				return false
			}
			m := pattern.FindStringSubmatch(query)
			if m == nil {
				return false
			}
			f.ContainsCharacter = filter.String(m[1])
			return true
		},
	}
}

func fixedLetterRule(name, phrase, letter string) rule {
	return rule{
		name: name,
		apply: func(query string, f *filter.Filter) bool {
			if f.ContainsCharacter != nil || !strings.Contains(query, phrase) {
				return false
			}
			f.ContainsCharacter = filter.String(letter)
			return true
		},
	}
}

func setWordCount(n int) func(f *filter.Filter) {
	return func(f *filter.Filter) {
		f.WordCount = filter.Int(n)
	}
}
