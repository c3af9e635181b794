// Package analyzer computes the structural properties of a string. Every
// property is measured over Unicode code points (runes), so length, unique
// count, palindrome test and frequency map always agree with each other.
package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Properties is the immutable structural snapshot of a string.
type Properties struct {
	Length             int            `json:"length"`
	IsPalindrome       bool           `json:"is_palindrome"`
	UniqueCharacters   int            `json:"unique_characters"`
	WordCount          int            `json:"word_count"`
	SHA256Hash         string         `json:"sha256_hash"`
	CharacterFrequency map[string]int `json:"character_frequency_map"`
}

// Analyze returns the properties of value. It accepts any string, including
// the empty string, and always yields the same result for the same input.
func Analyze(value string) Properties {
	freq := Frequency(value)
	return Properties{
		Length:             utf8.RuneCountInString(value),
		IsPalindrome:       IsPalindrome(value),
		UniqueCharacters:   len(freq),
		WordCount:          WordCount(value),
		SHA256Hash:         Digest(value),
		CharacterFrequency: freq,
	}
}

// Digest is the identity function for stored strings: the hex-encoded
// SHA-256 of the UTF-8 bytes.
func Digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// IsPalindrome reports whether value reads the same in both directions once
// case is folded and whitespace removed. Punctuation is kept.
func IsPalindrome(value string) bool {
	runes := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsSpace(r) {
			continue
		}
		runes = append(runes, unicode.ToLower(r))
	}
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		if runes[i] != runes[j] {
			return false
		}
	}
	return true
}

// WordCount counts maximal runs of non-whitespace characters.
func WordCount(value string) int {
	return len(strings.Fields(value))
}

// Frequency maps every character of value to its number of occurrences.
func Frequency(value string) map[string]int {
	freq := make(map[string]int)
	for _, r := range value {
		freq[string(r)]++
	}
	return freq
}
