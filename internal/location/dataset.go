// Package location implements the population-weighted geographic sampler:
// two-level state/city weighted selection, postal-code resolution and
// formatting, and incremental reference-data upserts with full weight-table
// rebuilds.
package location

import (
	"bytes"
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
)

// StateRecord is one entry of the states collection.
type StateRecord struct {
	StateAbbr            string  `json:"state_abbr"`
	StatePopulation      int64   `json:"state_population,omitempty"`
	PopulationPercentage float64 `json:"population_percentage"`
}

// CityRecord is one entry of the cities collection. A city carries either an
// explicit ceps list or a cep_range_begins/cep_range_ends pair.
type CityRecord struct {
	CityName                  string   `json:"city_name,omitempty"`
	CityUF                    string   `json:"city_uf"`
	CityPopulation            int64    `json:"city_population,omitempty"`
	PopulationPercentageState float64  `json:"population_percentage_state"`
	PopulationPercentageTotal float64  `json:"population_percentage_total,omitempty"`
	DDD                       string   `json:"ddd,omitempty"`
	Ceps                      []string `json:"ceps,omitempty"`
	CEPRangeBegins            string   `json:"cep_range_begins,omitempty"`
	CEPRangeEnds              string   `json:"cep_range_ends,omitempty"`
}

// UnmarshalJSON tolerates numeric ddd values, which appear in older source
// files alongside the string form.
func (c *CityRecord) UnmarshalJSON(data []byte) error {
	type alias CityRecord
	aux := struct {
		DDD any `json:"ddd"`
		*alias
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch v := aux.DDD.(type) {
	case string:
		c.DDD = v
	case float64:
		c.DDD = strconv.Itoa(int(v))
	}
	return nil
}

// Dataset is the hierarchical source table: states keyed by display name,
// cities keyed by an opaque source key (conventionally "Name_UF"). Key
// insertion order is preserved; first-seen grouping and the flat index's
// last-writer-wins behavior depend on it.
type Dataset struct {
	States map[string]*StateRecord
	Cities map[string]*CityRecord

	stateOrder []string
	cityOrder  []string
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		States: make(map[string]*StateRecord),
		Cities: make(map[string]*CityRecord),
	}
}

// SetState inserts or replaces a state record, keeping first-insertion
// order for new names.
func (d *Dataset) SetState(name string, rec *StateRecord) {
	if _, ok := d.States[name]; !ok {
		d.stateOrder = append(d.stateOrder, name)
	}
	d.States[name] = rec
}

// SetCity inserts or replaces a city record, keeping first-insertion order
// for new keys.
func (d *Dataset) SetCity(key string, rec *CityRecord) {
	if _, ok := d.Cities[key]; !ok {
		d.cityOrder = append(d.cityOrder, key)
	}
	d.Cities[key] = rec
}

// StateKeys returns the state names in insertion order.
func (d *Dataset) StateKeys() []string {
	out := make([]string, len(d.stateOrder))
	copy(out, d.stateOrder)
	return out
}

// CityKeys returns the city source keys in insertion order.
func (d *Dataset) CityKeys() []string {
	out := make([]string, len(d.cityOrder))
	copy(out, d.cityOrder)
	return out
}

// UnmarshalJSON decodes the two top-level collections with a token walk so
// source key order survives the round trip.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	d.States = make(map[string]*StateRecord)
	d.Cities = make(map[string]*CityRecord)
	d.stateOrder = nil
	d.cityOrder = nil

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "dataset: read opening token")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return eris.New("dataset: document is not a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "dataset: read section name")
		}
		section, _ := keyTok.(string)

		switch section {
		case "states":
			if err := decodeOrderedSection(dec, func(key string) error {
				var rec StateRecord
				if err := dec.Decode(&rec); err != nil {
					return eris.Wrapf(err, "dataset: decode state %q", key)
				}
				d.SetState(key, &rec)
				return nil
			}); err != nil {
				return err
			}
		case "cities":
			if err := decodeOrderedSection(dec, func(key string) error {
				var rec CityRecord
				if err := dec.Decode(&rec); err != nil {
					return eris.Wrapf(err, "dataset: decode city %q", key)
				}
				d.SetCity(key, &rec)
				return nil
			}); err != nil {
				return err
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return eris.Wrapf(err, "dataset: skip section %q", section)
			}
		}
	}

	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "dataset: read closing token")
	}
	return nil
}

// decodeOrderedSection walks one JSON object, invoking decodeValue for each
// key with the decoder positioned at the value.
func decodeOrderedSection(dec *json.Decoder, decodeValue func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "dataset: read section opening")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return eris.New("dataset: section is not a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "dataset: read record key")
		}
		key, _ := keyTok.(string)
		if err := decodeValue(key); err != nil {
			return err
		}
	}

	_, err = dec.Token()
	return eris.Wrap(err, "dataset: read section closing")
}

// MarshalJSON emits both collections in insertion order so built datasets
// diff cleanly between runs.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"states":{`)
	for i, name := range d.stateOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKeyed(&buf, name, d.States[name]); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`},"cities":{`)
	for i, key := range d.cityOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKeyed(&buf, key, d.Cities[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

func writeKeyed(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return eris.Wrapf(err, "dataset: marshal key %q", key)
	}
	v, err := json.Marshal(value)
	if err != nil {
		return eris.Wrapf(err, "dataset: marshal record %q", key)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// ParseDataset decodes a locations JSON document.
func ParseDataset(data []byte) (*Dataset, error) {
	var d Dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, eris.Wrap(err, "dataset: parse")
	}
	return &d, nil
}

// LoadDataset reads and decodes a locations JSON file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	return ParseDataset(data)
}
