// Package document generates Brazilian identity documents with valid check
// digits: CPF, CNPJ, PIS, CEI and RG. All generators draw from an injected
// rng.Source and return display-formatted strings; each has a paired
// validity check so tests (and callers ingesting external data) can verify
// the check-digit arithmetic without regenerating.
package document

import (
	"fmt"
	"strings"

	"github.com/sampa-labs/brgen-cli/internal/rng"
)

// Generator produces formatted identity documents from a random source.
type Generator struct {
	src rng.Source
}

// New returns a Generator drawing from src. A nil src falls back to the
// shared process source.
func New(src rng.Source) *Generator {
	if src == nil {
		src = rng.Default()
	}
	return &Generator{src: src}
}

// cnpjBranch is the matrix/headquarters suffix appended to every generated
// CNPJ root.
const cnpjBranch = "0001"

var (
	cnpjWeightsFirst  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeightsSecond = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	pisWeights        = []int{3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	ceiWeights        = []int{7, 4, 1, 8, 5, 2, 1, 6, 3, 7, 4}
)

// CPF returns a formatted CPF: nine random digits followed by the two
// standard mod-11 check digits, as ###.###.###-##.
func (g *Generator) CPF() string {
	digits := rng.Digits(g.src, 9)
	digits = append(digits, cpfCheckDigit(digits))
	digits = append(digits, cpfCheckDigit(digits))
	s := digitString(digits)
	return fmt.Sprintf("%s.%s.%s-%s", s[0:3], s[3:6], s[6:9], s[9:11])
}

// cpfCheckDigit computes the next CPF verification digit over digits, which
// holds either the nine base digits or the base plus the first check digit.
// Positions are weighted len+1 down to 2; remainders below 2 collapse to 0.
func cpfCheckDigit(digits []int) int {
	sum := 0
	for i, d := range digits {
		sum += d * (len(digits) + 1 - i)
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

// CNPJ returns a formatted CNPJ for a headquarters registration: an eight
// digit random root, the 0001 branch, and two mod-11 check digits, as
// ##.###.###/0001-##.
func (g *Generator) CNPJ() string {
	digits := rng.Digits(g.src, 8)
	for _, c := range cnpjBranch {
		digits = append(digits, int(c-'0'))
	}
	digits = append(digits, mod11CheckDigit(digits, cnpjWeightsFirst))
	digits = append(digits, mod11CheckDigit(digits, cnpjWeightsSecond))
	s := digitString(digits)
	return fmt.Sprintf("%s.%s.%s/%s-%s", s[0:2], s[2:5], s[5:8], s[8:12], s[12:14])
}

// PIS returns a formatted PIS/PASEP number: ten random digits plus one
// mod-11 check digit, as ###.#####.##-#.
func (g *Generator) PIS() string {
	digits := rng.Digits(g.src, 10)
	digits = append(digits, mod11CheckDigit(digits, pisWeights))
	s := digitString(digits)
	return fmt.Sprintf("%s.%s.%s-%s", s[0:3], s[3:8], s[8:10], s[10:11])
}

// mod11CheckDigit computes a verification digit by the weighted mod-11 rule
// shared by CNPJ and PIS: remainders below 2 collapse to 0, everything else
// is the complement to 11.
func mod11CheckDigit(digits, weights []int) int {
	sum := 0
	for i, d := range digits {
		sum += d * weights[i]
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

// CEI returns a formatted CEI (Cadastro Específico do INSS): eleven random
// digits plus a mod-10 complement check digit, as ##.###.#####/##.
func (g *Generator) CEI() string {
	digits := rng.Digits(g.src, 11)
	digits = append(digits, ceiCheckDigit(digits))
	s := digitString(digits)
	return fmt.Sprintf("%s.%s.%s/%s", s[0:2], s[2:5], s[5:10], s[10:12])
}

// ceiCheckDigit computes the CEI verification digit: the units digit of the
// weighted sum, complemented to 10 (0 stays 0).
func ceiCheckDigit(digits []int) int {
	sum := 0
	for i, d := range digits {
		sum += d * ceiWeights[i]
	}
	return (10 - sum%10) % 10
}

// RG returns a formatted RG: eight random digits plus a mod-11 check digit
// where a remainder of 10 renders as X, as ##.###.###-D. When includeIssuer
// is set and stateAbbr is non-empty, the issuing-body suffix " SSP/UF" is
// appended so the document agrees with the record's sampled state.
func (g *Generator) RG(stateAbbr string, includeIssuer bool) string {
	digits := rng.Digits(g.src, 8)
	s := digitString(digits)
	out := fmt.Sprintf("%s.%s.%s-%s", s[0:2], s[2:5], s[5:8], rgCheckString(digits))
	if includeIssuer && stateAbbr != "" {
		out += " SSP/" + strings.ToUpper(stateAbbr)
	}
	return out
}

// rgCheckString computes the RG verification character: positions weighted
// 2 through 9, summed mod 11, complemented to 11; 10 renders as X and 11
// collapses to 0.
func rgCheckString(digits []int) string {
	sum := 0
	for i, d := range digits {
		sum += d * (i + 2)
	}
	check := 11 - sum%11
	switch check {
	case 10:
		return "X"
	case 11:
		return "0"
	default:
		return fmt.Sprintf("%d", check)
	}
}

func digitString(digits []int) string {
	var b strings.Builder
	b.Grow(len(digits))
	for _, d := range digits {
		b.WriteByte(byte('0' + d))
	}
	return b.String()
}

// stripFormat keeps only decimal digits and an X/x verification character,
// normalizing a formatted document back to its raw form.
func stripFormat(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'X' || r == 'x':
			b.WriteByte('X')
		}
	}
	return b.String()
}

func parseDigits(s string) ([]int, bool) {
	out := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, false
		}
		out[i] = int(s[i] - '0')
	}
	return out, true
}

// ValidCPF reports whether s is a CPF with correct check digits. Formatting
// punctuation is ignored.
func ValidCPF(s string) bool {
	digits, ok := parseDigits(stripFormat(s))
	if !ok || len(digits) != 11 {
		return false
	}
	return cpfCheckDigit(digits[:9]) == digits[9] && cpfCheckDigit(digits[:10]) == digits[10]
}

// ValidCNPJ reports whether s is a CNPJ with correct check digits.
func ValidCNPJ(s string) bool {
	digits, ok := parseDigits(stripFormat(s))
	if !ok || len(digits) != 14 {
		return false
	}
	return mod11CheckDigit(digits[:12], cnpjWeightsFirst) == digits[12] &&
		mod11CheckDigit(digits[:13], cnpjWeightsSecond) == digits[13]
}

// ValidPIS reports whether s is a PIS/PASEP number with a correct check
// digit.
func ValidPIS(s string) bool {
	digits, ok := parseDigits(stripFormat(s))
	if !ok || len(digits) != 11 {
		return false
	}
	return mod11CheckDigit(digits[:10], pisWeights) == digits[10]
}

// ValidCEI reports whether s is a CEI with a correct check digit.
func ValidCEI(s string) bool {
	digits, ok := parseDigits(stripFormat(s))
	if !ok || len(digits) != 12 {
		return false
	}
	return ceiCheckDigit(digits[:11]) == digits[11]
}

// ValidRG reports whether s is an RG with a correct verification character.
// Any issuer suffix is ignored.
func ValidRG(s string) bool {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	raw := stripFormat(s)
	if len(raw) != 9 {
		return false
	}
	digits, ok := parseDigits(raw[:8])
	if !ok {
		return false
	}
	return rgCheckString(digits) == raw[8:]
}
