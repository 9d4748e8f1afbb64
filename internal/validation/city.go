package validation

import (
	"errors"
	"strings"
	"unicode"
)

// CityMaxLen bounds the city query parameter, in runes.
const CityMaxLen = 100

var (
	ErrCityEmpty        = errors.New("city is required")
	ErrCityTooLong      = errors.New("city too long")
	ErrCityInvalidChars = errors.New("city contains invalid characters")
	ErrCityNoLetters    = errors.New("city must contain a letter")
)

// NormalizeCity turns a free-text city query into the form sent upstream:
// surrounding whitespace trimmed and inner runs of whitespace collapsed to a
// single space. Case is preserved.
//
// Accepted runes are Unicode letters and digits plus space, comma (for
// "Paris, FR" style country qualifiers), hyphen, period and apostrophe.
func NormalizeCity(input string) (string, error) {
	city := strings.Join(strings.Fields(input), " ")
	if city == "" {
		return "", ErrCityEmpty
	}
	if n := len([]rune(city)); n > CityMaxLen {
		return "", ErrCityTooLong
	}

	hasLetter := false
	for _, r := range city {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r), strings.ContainsRune(" ,-.'", r):
		default:
			return "", ErrCityInvalidChars
		}
	}
	if !hasLetter {
		return "", ErrCityNoLetters
	}
	return city, nil
}
