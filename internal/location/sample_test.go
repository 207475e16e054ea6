package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleStateProportions(t *testing.T) {
	s := testSampler(t, 1)

	const draws = 10000
	counts := map[string]int{}
	for range draws {
		name, abbr := s.SampleState()
		counts[name]++
		switch name {
		case "São Paulo":
			require.Equal(t, "SP", abbr)
		case "Rio de Janeiro":
			require.Equal(t, "RJ", abbr)
		default:
			t.Fatalf("unexpected state %q", name)
		}
	}

	assert.InDelta(t, 0.6, float64(counts["São Paulo"])/draws, 0.02)
	assert.InDelta(t, 0.4, float64(counts["Rio de Janeiro"])/draws, 0.02)
}

func TestSampleCityProportions(t *testing.T) {
	s := testSampler(t, 2)

	const draws = 10000
	counts := map[string]int{}
	for range draws {
		name, abbr, err := s.SampleCity("SP")
		require.NoError(t, err)
		require.Equal(t, "SP", abbr)
		counts[name]++
	}

	assert.InDelta(t, 0.7, float64(counts["A"])/draws, 0.02)
	assert.InDelta(t, 0.3, float64(counts["B"])/draws, 0.02)
}

func TestSampleCityEmptyAbbrDrawsState(t *testing.T) {
	s := testSampler(t, 3)

	name, abbr, err := s.SampleCity("")
	require.NoError(t, err)
	assert.Contains(t, []string{"SP", "RJ"}, abbr)
	assert.NotEmpty(t, name)
}

func TestSampleCityUnknownState(t *testing.T) {
	s := testSampler(t, 4)

	_, _, err := s.SampleCity("ZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSampleStateAndCityAgreement(t *testing.T) {
	s := testSampler(t, 5)

	for range 200 {
		state, abbr, city, err := s.SampleStateAndCity()
		require.NoError(t, err)
		switch abbr {
		case "SP":
			assert.Equal(t, "São Paulo", state)
			assert.Contains(t, []string{"A", "B"}, city)
		case "RJ":
			assert.Equal(t, "Rio de Janeiro", state)
			assert.Equal(t, "Niterói", city)
		default:
			t.Fatalf("unexpected abbreviation %q", abbr)
		}
	}
}

func TestFormatLocationWithoutCEP(t *testing.T) {
	s := testSampler(t, 6)

	out, err := s.FormatLocation("A", "São Paulo", "SP", false, false)
	require.NoError(t, err)
	assert.Equal(t, "A, São Paulo (SP)", out)
}

func TestFormatLocationWithCEP(t *testing.T) {
	s := testSampler(t, 7)

	out, err := s.FormatLocation("A", "São Paulo", "SP", true, false)
	require.NoError(t, err)
	assert.Equal(t, "A - 01001-000, São Paulo (SP)", out)

	out, err = s.FormatLocation("A", "São Paulo", "SP", true, true)
	require.NoError(t, err)
	assert.Equal(t, "A - 01001000, São Paulo (SP)", out)
}

func TestRandomLocationOnlyCEP(t *testing.T) {
	s := testSampler(t, 8)

	out, err := s.RandomLocation(LocationOptions{OnlyCEP: true, CEPWithoutDash: true})
	require.NoError(t, err)
	assert.Regexp(t, `^\d+$`, out)
	assert.NotContains(t, out, "-")
}

func TestRandomLocationStateAbbrOnly(t *testing.T) {
	s := testSampler(t, 9)

	out, err := s.RandomLocation(LocationOptions{StateAbbrOnly: true})
	require.NoError(t, err)
	assert.Contains(t, []string{"SP", "RJ"}, out)
}

func TestRandomLocationStateFullOnly(t *testing.T) {
	s := testSampler(t, 10)

	out, err := s.RandomLocation(LocationOptions{StateFullOnly: true})
	require.NoError(t, err)
	assert.Contains(t, []string{"São Paulo", "Rio de Janeiro"}, out)
}

func TestRandomLocationCityOnly(t *testing.T) {
	s := testSampler(t, 11)

	out, err := s.RandomLocation(LocationOptions{CityOnly: true})
	require.NoError(t, err)
	assert.Contains(t, []string{"A", "B", "Niterói"}, out)
}

func TestRandomLocationFullComposite(t *testing.T) {
	s := testSampler(t, 12)

	out, err := s.RandomLocation(LocationOptions{})
	require.NoError(t, err)
	assert.Regexp(t, `^.+ - .+, .+ \([A-Z]{2}\)$`, out)
}

// OnlyCEP outranks every other mode flag; the facade never mixes outputs.
func TestRandomLocationPrecedence(t *testing.T) {
	s := testSampler(t, 13)

	out, err := s.RandomLocation(LocationOptions{
		OnlyCEP:        true,
		StateAbbrOnly:  true,
		StateFullOnly:  true,
		CityOnly:       true,
		CEPWithoutDash: true,
	})
	require.NoError(t, err)
	assert.Regexp(t, `^\d+$`, out)

	out, err = s.RandomLocation(LocationOptions{
		StateAbbrOnly: true,
		StateFullOnly: true,
		CityOnly:      true,
	})
	require.NoError(t, err)
	assert.Contains(t, []string{"SP", "RJ"}, out)
}
