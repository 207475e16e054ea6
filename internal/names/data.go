package names

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sampa-labs/brgen-cli/internal/data"
)

// Data carries the source name pools in their file form.
type Data struct {
	Periods  map[TimePeriod]map[string]float64
	Surnames map[string]float64
	Middles  []string
}

// Embedded returns the name pools shipped in the binary.
func Embedded() (*Data, error) {
	return parseData(data.Names(), data.Surnames(), data.MiddleNames())
}

// LoadData reads name pools from files. Any empty path falls back to the
// corresponding embedded seed.
func LoadData(namesPath, surnamesPath, middlesPath string) (*Data, error) {
	namesRaw, err := readOrEmbedded(namesPath, data.Names())
	if err != nil {
		return nil, err
	}
	surnamesRaw, err := readOrEmbedded(surnamesPath, data.Surnames())
	if err != nil {
		return nil, err
	}
	middlesRaw, err := readOrEmbedded(middlesPath, data.MiddleNames())
	if err != nil {
		return nil, err
	}
	return parseData(namesRaw, surnamesRaw, middlesRaw)
}

func readOrEmbedded(path string, embedded []byte) ([]byte, error) {
	if path == "" {
		return embedded, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "names: read %s", path)
	}
	return raw, nil
}

func parseData(namesRaw, surnamesRaw, middlesRaw []byte) (*Data, error) {
	var periods map[string]map[string]float64
	if err := json.Unmarshal(namesRaw, &periods); err != nil {
		return nil, eris.Wrap(err, "names: parse first-name pools")
	}

	d := &Data{Periods: make(map[TimePeriod]map[string]float64, len(periods))}
	for key, pool := range periods {
		period, err := ParseTimePeriod(key)
		if err != nil {
			zap.L().Warn("names: skipping unknown period key", zap.String("key", key))
			continue
		}
		d.Periods[period] = pool
	}

	var surnames struct {
		Surnames map[string]float64 `json:"surnames"`
	}
	if err := json.Unmarshal(surnamesRaw, &surnames); err != nil {
		return nil, eris.Wrap(err, "names: parse surname pool")
	}
	d.Surnames = surnames.Surnames

	var middles struct {
		MiddleNames []string `json:"middle_names"`
	}
	if err := json.Unmarshal(middlesRaw, &middles); err != nil {
		return nil, eris.Wrap(err, "names: parse middle-name pool")
	}
	d.Middles = middles.MiddleNames

	return d, nil
}
