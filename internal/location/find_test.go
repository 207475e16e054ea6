package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindCityCompoundKey(t *testing.T) {
	s := testSampler(t, 30)

	rec, ok := s.FindCity("A", "SP")
	require.True(t, ok)
	assert.Equal(t, "A", rec.CityName)
	assert.Equal(t, "SP", rec.CityUF)
}

// Keys that do not follow the "Name_UF" convention are still reachable
// through the exact name+state scan.
func TestFindCityScanFallback(t *testing.T) {
	d := testDataset()
	d.SetCity("capital-sp", &CityRecord{
		CityName:                  "São Paulo",
		CityUF:                    "SP",
		PopulationPercentageState: 0.5,
	})
	s, err := New(d, nil)
	require.NoError(t, err)

	rec, ok := s.FindCity("São Paulo", "SP")
	require.True(t, ok)
	assert.Equal(t, "São Paulo", rec.CityName)
}

func TestFindCityCaseInsensitive(t *testing.T) {
	s := testSampler(t, 31)

	rec, ok := s.FindCity("niterói", "RJ")
	require.True(t, ok)
	assert.Equal(t, "Niterói", rec.CityName)
}

func TestFindCityEmptyAbbrUsesIndex(t *testing.T) {
	s := testSampler(t, 32)

	rec, ok := s.FindCity("Niterói", "")
	require.True(t, ok)
	assert.Equal(t, "RJ", rec.CityUF)

	_, ok = s.FindCity("Atlantis", "")
	assert.False(t, ok)
}

func TestFindCityWrongState(t *testing.T) {
	s := testSampler(t, 33)

	_, ok := s.FindCity("A", "RJ")
	assert.False(t, ok)
}

func TestFindCityTotalMiss(t *testing.T) {
	s := testSampler(t, 34)

	rec, ok := s.FindCity("Unknown", "ZZ")
	assert.False(t, ok)
	assert.Nil(t, rec)
}
