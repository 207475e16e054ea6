package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sampa-labs/brgen-cli/internal/rng"
)

// testDataset builds the two-state reference scenario: SP at 60% with
// cities A (70%, explicit cep) and B (30%, cep range), RJ at 40% with one
// city.
func testDataset() *Dataset {
	d := NewDataset()
	d.SetState("São Paulo", &StateRecord{StateAbbr: "SP", PopulationPercentage: 0.6})
	d.SetState("Rio de Janeiro", &StateRecord{StateAbbr: "RJ", PopulationPercentage: 0.4})
	d.SetCity("A_SP", &CityRecord{
		CityUF:                    "SP",
		PopulationPercentageState: 0.7,
		Ceps:                      []string{"01001000"},
		DDD:                       "11",
	})
	d.SetCity("B_SP", &CityRecord{
		CityUF:                    "SP",
		PopulationPercentageState: 0.3,
		CEPRangeBegins:            "02000000",
		CEPRangeEnds:              "02000010",
	})
	d.SetCity("Niterói_RJ", &CityRecord{
		CityUF:                    "RJ",
		PopulationPercentageState: 1.0,
		Ceps:                      []string{"24020000"},
		DDD:                       "21",
	})
	return d
}

func testSampler(t *testing.T, seed uint64) *Sampler {
	t.Helper()
	s, err := New(testDataset(), rng.NewMT19937(seed))
	require.NoError(t, err)
	return s
}

func TestNewValidatesCollections(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrMissingStates)

	empty := NewDataset()
	_, err = New(empty, nil)
	assert.ErrorIs(t, err, ErrMissingStates)

	statesOnly := NewDataset()
	statesOnly.SetState("São Paulo", &StateRecord{StateAbbr: "SP", PopulationPercentage: 1})
	_, err = New(statesOnly, nil)
	assert.ErrorIs(t, err, ErrMissingCities)
}

func TestNewRejectsZeroStateWeight(t *testing.T) {
	d := NewDataset()
	d.SetState("São Paulo", &StateRecord{StateAbbr: "SP", PopulationPercentage: 0})
	d.SetCity("A_SP", &CityRecord{CityUF: "SP", PopulationPercentageState: 1})

	_, err := New(d, nil)
	assert.ErrorIs(t, err, ErrZeroStateWeight)
}

func TestStateWeightsNormalized(t *testing.T) {
	d := NewDataset()
	// Raw weights sum to 2.0 and must be divided down.
	d.SetState("São Paulo", &StateRecord{StateAbbr: "SP", PopulationPercentage: 1.2})
	d.SetState("Rio de Janeiro", &StateRecord{StateAbbr: "RJ", PopulationPercentage: 0.8})
	d.SetCity("A_SP", &CityRecord{CityUF: "SP", PopulationPercentageState: 1})

	s, err := New(d, rng.NewMT19937(1))
	require.NoError(t, err)

	sum := 0.0
	for _, w := range s.StateWeights() {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 0.6, s.StateWeights()[0], 1e-9) // 1.2 / 2.0
	assert.InDelta(t, 0.4, s.StateWeights()[1], 1e-9) // 0.8 / 2.0
}

func TestCityWeightsNormalizedPerState(t *testing.T) {
	s := testSampler(t, 1)

	for _, abbr := range []string{"SP", "RJ"} {
		sum := 0.0
		for _, w := range s.CityWeights(abbr) {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "state %s", abbr)
	}
}

func TestZeroWeightStateKeepsRawWeights(t *testing.T) {
	d := testDataset()
	d.SetCity("Macapá_AP", &CityRecord{CityUF: "AP", PopulationPercentageState: 0})
	d.SetCity("Santana_AP", &CityRecord{CityUF: "AP", PopulationPercentageState: 0})
	d.SetState("Amapá", &StateRecord{StateAbbr: "AP", PopulationPercentage: 0.01})

	s, err := New(d, rng.NewMT19937(1))
	require.NoError(t, err)

	// Raw zeros survive; no divide-by-zero, no hard failure.
	assert.Equal(t, []float64{0, 0}, s.CityWeights("AP"))

	city, abbr, err := s.SampleCity("AP")
	require.NoError(t, err)
	assert.Equal(t, "AP", abbr)
	assert.Equal(t, "Santana", city, "degenerate table yields the final entry")
}

func TestDisplayNameDerivation(t *testing.T) {
	d := NewDataset()
	d.SetState("São Paulo", &StateRecord{StateAbbr: "SP", PopulationPercentage: 1})
	d.SetCity("Santos_SP", &CityRecord{CityUF: "SP", PopulationPercentageState: 0.25})
	d.SetCity("São José_SP", &CityRecord{CityUF: "SP", PopulationPercentageState: 0.25})
	// Trailing segment does not match the city's own state: key is the name.
	d.SetCity("Guarulhos_RJ", &CityRecord{CityUF: "SP", PopulationPercentageState: 0.25})
	// No underscore at all: key is the name.
	d.SetCity("Sorocaba", &CityRecord{CityUF: "SP", PopulationPercentageState: 0.25})
	// Explicit name always wins over derivation.
	d.SetCity("CPS_SP", &CityRecord{CityName: "Campinas", CityUF: "SP", PopulationPercentageState: 0})

	s, err := New(d, rng.NewMT19937(1))
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"Santos", "São José", "Guarulhos_RJ", "Sorocaba", "Campinas"},
		s.CityNames("SP"))

	// Derived names persist onto the records themselves.
	assert.Equal(t, "Santos", d.Cities["Santos_SP"].CityName)
	assert.Equal(t, "Guarulhos_RJ", d.Cities["Guarulhos_RJ"].CityName)
}

func TestDisplayNameDerivationMultiUnderscore(t *testing.T) {
	// The derived name is the prefix before the first underscore when the
	// trailing segment matches the state.
	assert.Equal(t, "Mogi", deriveCityName("Mogi_das_Cruzes_SP", "SP"))
	assert.Equal(t, "Mogi_das_Cruzes_SP", deriveCityName("Mogi_das_Cruzes_SP", "RJ"))
}

func TestFlatIndexLastWriterWins(t *testing.T) {
	d := testDataset()
	d.SetState("Roraima", &StateRecord{StateAbbr: "RR", PopulationPercentage: 0.01})
	d.SetState("Paraíba", &StateRecord{StateAbbr: "PB", PopulationPercentage: 0.01})
	d.SetCity("Boa Vista_RR", &CityRecord{CityUF: "RR", PopulationPercentageState: 1, DDD: "95"})
	d.SetCity("Boa Vista_PB", &CityRecord{CityUF: "PB", PopulationPercentageState: 1, DDD: "83"})

	s, err := New(d, rng.NewMT19937(1))
	require.NoError(t, err)

	rec, ok := s.FindCity("Boa Vista", "")
	require.True(t, ok)
	assert.Equal(t, "PB", rec.CityUF, "later entry overwrites the flat index")
}

func TestUpsertCitiesReplacesByStateAndName(t *testing.T) {
	s := testSampler(t, 1)
	before := len(s.Dataset().Cities)

	// Same (state, name) pair under a different key replaces in place.
	err := s.UpsertCities(map[string]*CityRecord{
		"a-sp-v2": {
			CityName:                  "A",
			CityUF:                    "SP",
			PopulationPercentageState: 0.9,
			Ceps:                      []string{"01001001"},
		},
	})
	require.NoError(t, err)

	assert.Len(t, s.Dataset().Cities, before, "replacement keeps the count")
	assert.Contains(t, s.Dataset().Cities, "A_SP", "original key preserved")
	assert.NotContains(t, s.Dataset().Cities, "a-sp-v2")
	assert.Equal(t, []string{"01001001"}, s.Dataset().Cities["A_SP"].Ceps)

	// Weights were rebuilt with the replacement's 0.9 raw weight.
	// 0.9 / (0.9 + 0.3) = 0.75
	assert.InDelta(t, 0.75, s.CityWeights("SP")[0], 1e-9)
}

func TestUpsertCitiesInsertsNewKey(t *testing.T) {
	s := testSampler(t, 1)
	before := len(s.Dataset().Cities)

	err := s.UpsertCities(map[string]*CityRecord{
		"Campinas_SP": {
			CityName:                  "Campinas",
			CityUF:                    "SP",
			PopulationPercentageState: 0.2,
		},
	})
	require.NoError(t, err)

	assert.Len(t, s.Dataset().Cities, before+1)
	assert.Contains(t, s.Dataset().Cities, "Campinas_SP")
	assert.Contains(t, s.CityNames("SP"), "Campinas")
}

func TestUpsertCitiesSkipsIncompleteRecords(t *testing.T) {
	s := testSampler(t, 1)
	before := len(s.Dataset().Cities)

	err := s.UpsertCities(map[string]any{
		"no-state": map[string]any{"city_name": "Lost City"},
		"no-name":  map[string]any{"city_uf": "SP"},
	})
	require.NoError(t, err, "incomplete records skip, the batch survives")
	assert.Len(t, s.Dataset().Cities, before)
}

func TestUpsertCitiesFromRawJSONPreservesOrder(t *testing.T) {
	s := testSampler(t, 1)

	payload := []byte(`{
		"Zumbi_RJ": {"city_uf": "RJ", "population_percentage_state": 0.2},
		"Abadia_RJ": {"city_uf": "RJ", "population_percentage_state": 0.3}
	}`)
	require.NoError(t, s.UpsertCities(payload))

	keys := s.Dataset().CityKeys()
	require.Len(t, keys, 5)
	assert.Equal(t, "Zumbi_RJ", keys[3], "document order wins over lexical order")
	assert.Equal(t, "Abadia_RJ", keys[4])
}

func TestUpsertCitiesRejectsNonMapping(t *testing.T) {
	s := testSampler(t, 1)

	for _, input := range []any{"banana", 42, []string{"x"}, nil, []byte(`[1,2]`)} {
		err := s.UpsertCities(input)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %#v", input)
		assert.True(t, IsInvalidInput(err))
	}
}

func TestUpsertStatesMergesByKey(t *testing.T) {
	s := testSampler(t, 1)

	err := s.UpsertStates(map[string]*StateRecord{
		"Minas Gerais":   {StateAbbr: "MG", PopulationPercentage: 0.5},
		"Rio de Janeiro": {StateAbbr: "RJ", PopulationPercentage: 0.2},
	})
	require.NoError(t, err)

	assert.Len(t, s.Dataset().States, 3)
	assert.Equal(t, 0.2, s.Dataset().States["Rio de Janeiro"].PopulationPercentage)

	// Rebuilt and renormalized: 0.6 + 0.2 + 0.5 = 1.3 raw.
	sum := 0.0
	for _, w := range s.StateWeights() {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestUpsertStatesRejectsNonMapping(t *testing.T) {
	s := testSampler(t, 1)

	err := s.UpsertStates("not a mapping")
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = s.UpsertStates(3.14)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpsertStatesZeroTotalFailsRebuild(t *testing.T) {
	s := testSampler(t, 1)

	err := s.UpsertStates(map[string]*StateRecord{
		"São Paulo":      {StateAbbr: "SP", PopulationPercentage: 0},
		"Rio de Janeiro": {StateAbbr: "RJ", PopulationPercentage: 0},
	})
	assert.ErrorIs(t, err, ErrZeroStateWeight)
}

func TestUpsertCitiesFromDecodedJSON(t *testing.T) {
	s := testSampler(t, 1)

	// Decoded JSON carries float ddd values; conversion normalizes them.
	err := s.UpsertCities(map[string]any{
		"Vitória_ES": map[string]any{
			"city_name":                   "Vitória",
			"city_uf":                     "ES",
			"population_percentage_state": 1.0,
			"ddd":                         float64(27),
		},
	})
	require.NoError(t, err)

	rec, ok := s.FindCity("Vitória", "ES")
	require.True(t, ok)
	assert.Equal(t, "27", rec.DDD)
}
