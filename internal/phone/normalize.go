// Package phone canonicalizes human-entered phone numbers into the digit
// format expected by the SMS gateway.
package phone

import "strings"

// CountryCode replaces the leading trunk zero of domestic numbers.
const CountryCode = "255"

const domesticLength = 10

var separators = strings.NewReplacer(
	" ", "",
	"\t", "",
	"\n", "",
	"\r", "",
	"\v", "",
	"\f", "",
	"-", "",
	"(", "",
	")", "",
)

// Normalize strips separators and a leading "+", then rewrites 10-character
// numbers starting with "0" to the international "255" form. The result is
// not validated: a non-empty value only means it is worth sending to.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	number := separators.Replace(strings.TrimSpace(raw))
	number = strings.TrimPrefix(number, "+")

	if strings.HasPrefix(number, "0") && len(number) == domesticLength {
		number = CountryCode + number[1:]
	}

	return number
}
