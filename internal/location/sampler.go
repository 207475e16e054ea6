package location

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sampa-labs/brgen-cli/internal/rng"
)

// Sampler draws population-weighted states and cities from a Dataset and
// resolves postal codes for them. Mutation (upserts) requires external
// mutual exclusion; sampling is read-only against tables rebuilt wholesale
// on every mutation.
type Sampler struct {
	data *Dataset
	src  rng.Source

	stateNames   []string
	stateWeights []float64
	stateCum     []float64

	cityNamesByState   map[string][]string
	cityWeightsByState map[string][]float64
	cityCumByState     map[string][]float64

	// cityByName is the flat display-name index. Later dataset entries
	// overwrite earlier ones sharing a name; FindCity's compound-key
	// strategy is the collision-free path.
	cityByName map[string]*CityRecord
}

// New builds a sampler over data, which must carry at least one state and
// one city. A nil src falls back to the shared time-seeded source.
func New(data *Dataset, src rng.Source) (*Sampler, error) {
	if data == nil || len(data.States) == 0 {
		return nil, eris.Wrap(ErrMissingStates, "sampler: construct")
	}
	if len(data.Cities) == 0 {
		return nil, eris.Wrap(ErrMissingCities, "sampler: construct")
	}
	if src == nil {
		src = rng.Default()
	}

	s := &Sampler{data: data, src: src}
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads a locations JSON file and builds a sampler over it.
func Load(path string, src rng.Source) (*Sampler, error) {
	data, err := LoadDataset(path)
	if err != nil {
		return nil, err
	}
	return New(data, src)
}

// rebuild recomputes every derived table from the dataset. Called at
// construction and after every upsert; never patches incrementally.
func (s *Sampler) rebuild() error {
	names := make([]string, 0, len(s.data.States))
	weights := make([]float64, 0, len(s.data.States))
	total := 0.0
	for _, name := range s.data.stateOrder {
		rec := s.data.States[name]
		names = append(names, name)
		weights = append(weights, rec.PopulationPercentage)
		total += rec.PopulationPercentage
	}
	if total <= 0 {
		return eris.Wrap(ErrZeroStateWeight, "sampler: rebuild")
	}
	for i := range weights {
		weights[i] /= total
	}
	s.stateNames = names
	s.stateWeights = weights
	s.stateCum = cumulative(weights)

	cityNames := make(map[string][]string)
	cityWeights := make(map[string][]float64)
	index := make(map[string]*CityRecord, len(s.data.Cities))

	for _, key := range s.data.cityOrder {
		rec := s.data.Cities[key]
		state := rec.CityUF

		name := rec.CityName
		if name == "" {
			name = deriveCityName(key, state)
			rec.CityName = name
		}

		cityNames[state] = append(cityNames[state], name)
		cityWeights[state] = append(cityWeights[state], rec.PopulationPercentageState)
		index[name] = rec
	}

	s.cityNamesByState = cityNames
	s.cityWeightsByState = make(map[string][]float64, len(cityWeights))
	s.cityCumByState = make(map[string][]float64, len(cityWeights))
	for state, ws := range cityWeights {
		sum := 0.0
		for _, w := range ws {
			sum += w
		}
		normalized := make([]float64, len(ws))
		copy(normalized, ws)
		// A zero-sum state keeps its raw weights rather than dividing by
		// zero; drawing from it degenerates to the final entry.
		if sum > 0 {
			for i := range normalized {
				normalized[i] /= sum
			}
		}
		s.cityWeightsByState[state] = normalized
		s.cityCumByState[state] = cumulative(normalized)
	}

	s.cityByName = index
	return nil
}

// deriveCityName extracts a display name from a "Name_UF" source key when
// the trailing segment matches the city's own state; otherwise the raw key
// serves as the name.
func deriveCityName(key, stateAbbr string) string {
	first := strings.Index(key, "_")
	if first < 0 {
		return key
	}
	last := strings.LastIndex(key, "_")
	if key[last+1:] != stateAbbr {
		return key
	}
	return key[:first]
}

func cumulative(weights []float64) []float64 {
	cum := make([]float64, len(weights))
	running := 0.0
	for i, w := range weights {
		running += w
		cum[i] = running
	}
	return cum
}

// weightedIndex draws an index from a cumulative weight table. The clamp
// covers float drift at the top boundary and the zero-sum degenerate table.
func weightedIndex(src rng.Source, cum []float64) int {
	f := rng.Float64(src)
	i := sort.SearchFloat64s(cum, f)
	if i >= len(cum) {
		i = len(cum) - 1
	}
	return i
}

// States returns the state display names in table order.
func (s *Sampler) States() []string {
	out := make([]string, len(s.stateNames))
	copy(out, s.stateNames)
	return out
}

// StateWeights returns normalized state weights matching States() order.
func (s *Sampler) StateWeights() []float64 {
	out := make([]float64, len(s.stateWeights))
	copy(out, s.stateWeights)
	return out
}

// CityNames returns the city display names registered for a state, in
// first-seen order.
func (s *Sampler) CityNames(stateAbbr string) []string {
	src := s.cityNamesByState[stateAbbr]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// CityWeights returns the weights matching CityNames(stateAbbr) order,
// normalized unless the state's raw sum was zero.
func (s *Sampler) CityWeights(stateAbbr string) []float64 {
	src := s.cityWeightsByState[stateAbbr]
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

// Dataset exposes the backing data for inspection commands.
func (s *Sampler) Dataset() *Dataset {
	return s.data
}

// UpsertCities merges candidate city records into the dataset. Candidates
// matching an existing (state, name) pair replace that record under its
// original key; the rest insert under their given key. Candidates missing a
// name or state are skipped with a warning. input must be a key-to-record
// mapping: a typed map, a decoded-JSON map, or raw JSON bytes.
func (s *Sampler) UpsertCities(input any) error {
	entries, err := toCityEntries(input)
	if err != nil {
		return err
	}

	// Existing cities indexed by state then name, built once against the
	// pre-upsert data; all candidates match against the same snapshot.
	existing := make(map[string]map[string]string)
	for key, rec := range s.data.Cities {
		if rec.CityName == "" || rec.CityUF == "" {
			continue
		}
		byName, ok := existing[rec.CityUF]
		if !ok {
			byName = make(map[string]string)
			existing[rec.CityUF] = byName
		}
		byName[rec.CityName] = key
	}

	for _, e := range entries {
		if e.rec.CityName == "" || e.rec.CityUF == "" {
			zap.L().Warn("skipping city upsert with missing name or state",
				zap.String("key", e.key))
			continue
		}
		if key, ok := existing[e.rec.CityUF][e.rec.CityName]; ok {
			s.data.SetCity(key, e.rec)
		} else {
			s.data.SetCity(e.key, e.rec)
		}
	}

	return s.rebuild()
}

// UpsertStates merges state records by display name (overwrite-by-key).
// input must be a key-to-record mapping, as for UpsertCities.
func (s *Sampler) UpsertStates(input any) error {
	entries, err := toStateEntries(input)
	if err != nil {
		return err
	}

	for _, e := range entries {
		s.data.SetState(e.key, e.rec)
	}

	return s.rebuild()
}

type cityEntry struct {
	key string
	rec *CityRecord
}

type stateEntry struct {
	key string
	rec *StateRecord
}

// toCityEntries normalizes the accepted upsert input shapes into ordered
// (key, record) pairs. Raw JSON keeps document order; Go maps iterate in
// sorted key order so repeated runs behave identically.
func toCityEntries(input any) ([]cityEntry, error) {
	switch v := input.(type) {
	case map[string]*CityRecord:
		entries := make([]cityEntry, 0, len(v))
		for _, key := range sortedKeys(v) {
			entries = append(entries, cityEntry{key: key, rec: v[key]})
		}
		return entries, nil

	case map[string]CityRecord:
		entries := make([]cityEntry, 0, len(v))
		for _, key := range sortedKeys(v) {
			rec := v[key]
			entries = append(entries, cityEntry{key: key, rec: &rec})
		}
		return entries, nil

	case map[string]any:
		entries := make([]cityEntry, 0, len(v))
		for _, key := range sortedKeys(v) {
			rec, err := convertRecord[CityRecord](v[key])
			if err != nil {
				zap.L().Warn("skipping malformed city upsert record",
					zap.String("key", key), zap.Error(err))
				continue
			}
			entries = append(entries, cityEntry{key: key, rec: rec})
		}
		return entries, nil

	case []byte:
		return cityEntriesFromJSON(v)
	case json.RawMessage:
		return cityEntriesFromJSON(v)
	}

	return nil, eris.Wrap(ErrInvalidInput, "sampler: upsert cities")
}

func toStateEntries(input any) ([]stateEntry, error) {
	switch v := input.(type) {
	case map[string]*StateRecord:
		entries := make([]stateEntry, 0, len(v))
		for _, key := range sortedKeys(v) {
			entries = append(entries, stateEntry{key: key, rec: v[key]})
		}
		return entries, nil

	case map[string]StateRecord:
		entries := make([]stateEntry, 0, len(v))
		for _, key := range sortedKeys(v) {
			rec := v[key]
			entries = append(entries, stateEntry{key: key, rec: &rec})
		}
		return entries, nil

	case map[string]any:
		entries := make([]stateEntry, 0, len(v))
		for _, key := range sortedKeys(v) {
			rec, err := convertRecord[StateRecord](v[key])
			if err != nil {
				zap.L().Warn("skipping malformed state upsert record",
					zap.String("key", key), zap.Error(err))
				continue
			}
			entries = append(entries, stateEntry{key: key, rec: rec})
		}
		return entries, nil

	case []byte:
		return stateEntriesFromJSON(v)
	case json.RawMessage:
		return stateEntriesFromJSON(v)
	}

	return nil, eris.Wrap(ErrInvalidInput, "sampler: upsert states")
}

func cityEntriesFromJSON(data []byte) ([]cityEntry, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(ErrInvalidInput, "sampler: upsert cities")
	}
	keys, err := objectKeyOrder(data)
	if err != nil {
		return nil, eris.Wrap(ErrInvalidInput, "sampler: upsert cities")
	}

	entries := make([]cityEntry, 0, len(raw))
	for _, key := range keys {
		var rec CityRecord
		if err := json.Unmarshal(raw[key], &rec); err != nil {
			zap.L().Warn("skipping malformed city upsert record",
				zap.String("key", key), zap.Error(err))
			continue
		}
		entries = append(entries, cityEntry{key: key, rec: &rec})
	}
	return entries, nil
}

func stateEntriesFromJSON(data []byte) ([]stateEntry, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(ErrInvalidInput, "sampler: upsert states")
	}
	keys, err := objectKeyOrder(data)
	if err != nil {
		return nil, eris.Wrap(ErrInvalidInput, "sampler: upsert states")
	}

	entries := make([]stateEntry, 0, len(raw))
	for _, key := range keys {
		var rec StateRecord
		if err := json.Unmarshal(raw[key], &rec); err != nil {
			zap.L().Warn("skipping malformed state upsert record",
				zap.String("key", key), zap.Error(err))
			continue
		}
		entries = append(entries, stateEntry{key: key, rec: &rec})
	}
	return entries, nil
}

// objectKeyOrder returns a JSON object's keys in document order.
func objectKeyOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, eris.New("not a JSON object")
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// convertRecord maps a decoded-JSON value onto a record struct via a JSON
// round trip, reusing the struct's field tags and tolerant decoding.
func convertRecord[T any](value any) (*T, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, eris.New("record is not a mapping")
	}
	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
