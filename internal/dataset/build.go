package dataset

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sampa-labs/brgen-cli/internal/location"
)

// Overlay carries the postal fields the estimates workbook lacks, keyed the
// same "Name_UF" way as the built cities.
type Overlay struct {
	DDD            string   `json:"ddd,omitempty"`
	CEPRangeBegins string   `json:"cep_range_begins,omitempty"`
	CEPRangeEnds   string   `json:"cep_range_ends,omitempty"`
	Ceps           []string `json:"ceps,omitempty"`
}

// LoadOverlay reads a key→overlay JSON file.
func LoadOverlay(path string) (map[string]Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read overlay %s", path)
	}
	var overlay map[string]Overlay
	if err := json.Unmarshal(data, &overlay); err != nil {
		return nil, eris.Wrap(err, "dataset: parse overlay")
	}
	return overlay, nil
}

// ufNames maps state abbreviations to display names; the states collection
// is keyed by display name.
var ufNames = map[string]string{
	"AC": "Acre",
	"AL": "Alagoas",
	"AP": "Amapá",
	"AM": "Amazonas",
	"BA": "Bahia",
	"CE": "Ceará",
	"DF": "Distrito Federal",
	"ES": "Espírito Santo",
	"GO": "Goiás",
	"MA": "Maranhão",
	"MT": "Mato Grosso",
	"MS": "Mato Grosso do Sul",
	"MG": "Minas Gerais",
	"PA": "Pará",
	"PB": "Paraíba",
	"PR": "Paraná",
	"PE": "Pernambuco",
	"PI": "Piauí",
	"RJ": "Rio de Janeiro",
	"RN": "Rio Grande do Norte",
	"RS": "Rio Grande do Sul",
	"RO": "Rondônia",
	"RR": "Roraima",
	"SC": "Santa Catarina",
	"SP": "São Paulo",
	"SE": "Sergipe",
	"TO": "Tocantins",
}

// Build assembles a locations dataset from population rows. State populations
// are the sum of their cities; population_percentage is state over total,
// population_percentage_state is city over state, population_percentage_total
// is city over total. Rows with an unknown UF are skipped with a warning.
func Build(rows []PopulationRow, overlay map[string]Overlay) (*location.Dataset, error) {
	d := location.NewDataset()

	for _, row := range rows {
		stateName, ok := ufNames[row.UF]
		if !ok {
			zap.L().Warn("dataset: unknown UF, skipping row",
				zap.String("uf", row.UF), zap.String("municipality", row.Municipality))
			continue
		}
		if _, exists := d.States[stateName]; !exists {
			d.SetState(stateName, &location.StateRecord{StateAbbr: row.UF})
		}
		d.SetCity(row.Municipality+"_"+row.UF, &location.CityRecord{
			CityName:       row.Municipality,
			CityUF:         row.UF,
			CityPopulation: row.Population,
		})
	}

	if len(d.Cities) == 0 {
		return nil, eris.New("dataset: no usable municipalities")
	}

	// Totals come from the final table so a duplicated key counts once.
	var total int64
	statePop := make(map[string]int64)
	for _, key := range d.CityKeys() {
		rec := d.Cities[key]
		total += rec.CityPopulation
		statePop[rec.CityUF] += rec.CityPopulation
	}
	if total <= 0 {
		return nil, eris.New("dataset: total population is zero")
	}

	for _, name := range d.StateKeys() {
		st := d.States[name]
		st.StatePopulation = statePop[st.StateAbbr]
		if st.StatePopulation > 0 {
			st.PopulationPercentage = float64(st.StatePopulation) / float64(total)
		}
	}

	for _, key := range d.CityKeys() {
		rec := d.Cities[key]
		if rec.CityPopulation <= 0 {
			continue
		}
		rec.PopulationPercentageTotal = float64(rec.CityPopulation) / float64(total)
		if sp := statePop[rec.CityUF]; sp > 0 {
			rec.PopulationPercentageState = float64(rec.CityPopulation) / float64(sp)
		}
	}

	applyOverlay(d, overlay)
	return d, nil
}

func applyOverlay(d *location.Dataset, overlay map[string]Overlay) {
	if len(overlay) == 0 {
		return
	}
	matched := 0
	for key, o := range overlay {
		rec, ok := d.Cities[key]
		if !ok {
			continue
		}
		if o.DDD != "" {
			rec.DDD = o.DDD
		}
		if o.CEPRangeBegins != "" {
			rec.CEPRangeBegins = o.CEPRangeBegins
		}
		if o.CEPRangeEnds != "" {
			rec.CEPRangeEnds = o.CEPRangeEnds
		}
		if len(o.Ceps) > 0 {
			rec.Ceps = o.Ceps
		}
		matched++
	}
	zap.L().Info("dataset: overlay applied",
		zap.Int("matched", matched), zap.Int("entries", len(overlay)))
}
