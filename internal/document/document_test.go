package document

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sampa-labs/brgen-cli/internal/rng"
)

func testGen(seed uint64) *Generator {
	return New(rng.NewMT19937(seed))
}

func TestCPFCheckDigits(t *testing.T) {
	// Canonical worked example: base 111444777 carries check digits 35.
	base := []int{1, 1, 1, 4, 4, 4, 7, 7, 7}
	first := cpfCheckDigit(base)
	assert.Equal(t, 3, first)
	assert.Equal(t, 5, cpfCheckDigit(append(base, first)))

	assert.True(t, ValidCPF("111.444.777-35"))
	assert.True(t, ValidCPF("11144477735"))
	assert.False(t, ValidCPF("111.444.777-36"))
	assert.False(t, ValidCPF("111.444.777"))
	assert.False(t, ValidCPF(""))
}

func TestCPFGenerated(t *testing.T) {
	g := testGen(42)
	pattern := regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`)
	for i := 0; i < 200; i++ {
		cpf := g.CPF()
		require.Regexp(t, pattern, cpf)
		assert.True(t, ValidCPF(cpf), "cpf %s", cpf)
	}
}

func TestCNPJCheckDigits(t *testing.T) {
	// Worked example: root 11222333 at branch 0001 carries check digits 81.
	assert.True(t, ValidCNPJ("11.222.333/0001-81"))
	assert.True(t, ValidCNPJ("11222333000181"))
	assert.False(t, ValidCNPJ("11.222.333/0001-82"))
	assert.False(t, ValidCNPJ("11.222.333/0001"))
}

func TestCNPJGenerated(t *testing.T) {
	g := testGen(7)
	pattern := regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/0001-\d{2}$`)
	for i := 0; i < 200; i++ {
		cnpj := g.CNPJ()
		require.Regexp(t, pattern, cnpj)
		assert.True(t, ValidCNPJ(cnpj), "cnpj %s", cnpj)
	}
}

func TestPISCheckDigit(t *testing.T) {
	// 1201234567 weighted by 3,2,9,8,7,6,5,4,3,2 sums to 119, so the
	// check digit is 11 - (119 % 11) = 2.
	assert.True(t, ValidPIS("120.12345.67-2"))
	assert.False(t, ValidPIS("120.12345.67-3"))
	assert.False(t, ValidPIS("120.12345.67"))
}

func TestPISGenerated(t *testing.T) {
	g := testGen(11)
	pattern := regexp.MustCompile(`^\d{3}\.\d{5}\.\d{2}-\d$`)
	for i := 0; i < 200; i++ {
		pis := g.PIS()
		require.Regexp(t, pattern, pis)
		assert.True(t, ValidPIS(pis), "pis %s", pis)
	}
}

func TestCEICheckDigit(t *testing.T) {
	// 11583002473 weighted by 7,4,1,8,5,2,1,6,3,7,4 sums to 180; the units
	// digit is 0, so the check digit stays 0.
	assert.True(t, ValidCEI("11.583.00247/30"))
	assert.False(t, ValidCEI("11.583.00247/31"))
	assert.False(t, ValidCEI("11.583.00247/3"))
}

func TestCEIGenerated(t *testing.T) {
	g := testGen(3)
	pattern := regexp.MustCompile(`^\d{2}\.\d{3}\.\d{5}/\d{2}$`)
	for i := 0; i < 200; i++ {
		cei := g.CEI()
		require.Regexp(t, pattern, cei)
		assert.True(t, ValidCEI(cei), "cei %s", cei)
	}
}

func TestRGCheckCharacter(t *testing.T) {
	// 24678965 weighted by 2..9 sums to 279; 11 - (279 % 11) = 7.
	assert.True(t, ValidRG("24.678.965-7"))
	// 60000000 sums to 12, remainder 1, check 10 rendered as X.
	assert.True(t, ValidRG("60.000.000-X"))
	// All zeros: remainder 0, check 11 collapses to 0.
	assert.True(t, ValidRG("00.000.000-0"))
	assert.False(t, ValidRG("24.678.965-8"))
	assert.False(t, ValidRG("24.678.965"))
}

func TestRGIssuer(t *testing.T) {
	g := testGen(5)

	plain := g.RG("SP", false)
	assert.Regexp(t, regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}-[\dX]$`), plain)
	assert.True(t, ValidRG(plain))

	issued := g.RG("sp", true)
	assert.Regexp(t, regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}-[\dX] SSP/SP$`), issued)
	assert.True(t, ValidRG(issued), "issuer suffix must not break validation")

	// Unknown state: issuer suffix is dropped rather than rendered empty.
	bare := g.RG("", true)
	assert.NotContains(t, bare, "SSP")
}

func TestGeneratorDeterministic(t *testing.T) {
	a, b := testGen(99), testGen(99)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.CPF(), b.CPF())
		assert.Equal(t, a.CNPJ(), b.CNPJ())
		assert.Equal(t, a.PIS(), b.PIS())
		assert.Equal(t, a.CEI(), b.CEI())
		assert.Equal(t, a.RG("RJ", true), b.RG("RJ", true))
	}
}

func TestNewNilSourceFallsBack(t *testing.T) {
	g := New(nil)
	assert.True(t, ValidCPF(g.CPF()))
}
