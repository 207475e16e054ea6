package document

import (
	"strings"

	"github.com/sampa-labs/brgen-cli/internal/rng"
)

// Phone rendering styles mirror how Brazilian numbers appear in the wild:
// the area slot is the first ## and every remaining # is a random digit.
var (
	cellphoneFormats = []string{
		"## 9#### ####",
		"## 9 #### ####",
		"(0##) 9#### ####",
		"(##) 9#### ####",
		"(##) 9 #### ####",
	}

	commercialFormats = []string{
		"0300 ### ####",
		"0800 ### ####",
		"0900 ### ####",
		"0300-###-####",
		"0500-###-####",
		"0800-###-####",
		"0900-###-####",
	}

	serviceNumbers = []string{
		"100", "128", "151", "152", "153", "156",
		"180", "181", "185", "188", "190", "191",
		"192", "193", "194", "197", "198", "199",
	}
)

// Cellphone returns a mobile number with ddd filled into the area slot of a
// randomly chosen rendering style. ddd may carry stray punctuation; it must
// reduce to exactly two digits, otherwise the empty string is returned and
// the caller emits no phone for the record.
func (g *Generator) Cellphone(ddd string) string {
	area := digitsOnly(ddd)
	if len(area) != 2 {
		return ""
	}
	format := rng.Pick(g.src, cellphoneFormats)
	return g.fill(strings.Replace(format, "##", area, 1))
}

// CommercialPhone returns a non-geographic commercial number (0300, 0500,
// 0800 or 0900 prefix).
func (g *Generator) CommercialPhone() string {
	return g.fill(rng.Pick(g.src, commercialFormats))
}

// ServicePhone returns one of the short public-service numbers (police,
// ambulance, fire department and similar three-digit codes).
func (g *Generator) ServicePhone() string {
	return rng.Pick(g.src, serviceNumbers)
}

// fill replaces every # in format with a random decimal digit.
func (g *Generator) fill(format string) string {
	var b strings.Builder
	b.Grow(len(format))
	for i := 0; i < len(format); i++ {
		if format[i] == '#' {
			b.WriteByte(byte('0' + rng.IntN(g.src, 10)))
			continue
		}
		b.WriteByte(format[i])
	}
	return b.String()
}

func digitsOnly(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
