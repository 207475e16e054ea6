package location

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// SampleState draws one state from the normalized weight distribution and
// returns its display name and abbreviation.
func (s *Sampler) SampleState() (name, stateAbbr string) {
	i := weightedIndex(s.src, s.stateCum)
	name = s.stateNames[i]
	return name, s.data.States[name].StateAbbr
}

// SampleCity draws one city, weighted by population within its state. An
// empty stateAbbr draws the state first. Errors when the state has no
// registered cities.
func (s *Sampler) SampleCity(stateAbbr string) (cityName, abbr string, err error) {
	if stateAbbr == "" {
		_, stateAbbr = s.SampleState()
	}
	names := s.cityNamesByState[stateAbbr]
	if len(names) == 0 {
		return "", "", eris.Wrapf(ErrNotFound, "sampler: no cities for state %s", stateAbbr)
	}
	i := weightedIndex(s.src, s.cityCumByState[stateAbbr])
	return names[i], stateAbbr, nil
}

// SampleStateAndCity draws a state, then a city within it.
func (s *Sampler) SampleStateAndCity() (stateName, stateAbbr, cityName string, err error) {
	stateName, stateAbbr = s.SampleState()
	cityName, _, err = s.SampleCity(stateAbbr)
	if err != nil {
		return "", "", "", err
	}
	return stateName, stateAbbr, cityName, nil
}

// FormatLocation renders "City, State (UF)", or "City - CEP, State (UF)"
// when includeCEP is set; the CEP is resolved for the city and formatted
// per cepNoDash.
func (s *Sampler) FormatLocation(city, state, stateAbbr string, includeCEP, cepNoDash bool) (string, error) {
	if !includeCEP {
		return fmt.Sprintf("%s, %s (%s)", city, state, stateAbbr), nil
	}
	cep, err := s.ResolveCEP(city)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s - %s, %s (%s)", city, FormatCEP(cep, !cepNoDash), state, stateAbbr), nil
}

// LocationOptions selects the output mode of RandomLocation. The modes are
// mutually exclusive and checked in fixed precedence: OnlyCEP, then
// StateAbbrOnly, then StateFullOnly, then CityOnly, then the full
// composite.
type LocationOptions struct {
	CityOnly       bool
	StateAbbrOnly  bool
	StateFullOnly  bool
	OnlyCEP        bool
	CEPWithoutDash bool
}

// RandomLocation draws a location and formats it per opts. Exactly one
// output branch executes per call.
func (s *Sampler) RandomLocation(opts LocationOptions) (string, error) {
	switch {
	case opts.OnlyCEP:
		city, _, err := s.SampleCity("")
		if err != nil {
			return "", err
		}
		cep, err := s.ResolveCEP(city)
		if err != nil {
			return "", err
		}
		return FormatCEP(cep, !opts.CEPWithoutDash), nil

	case opts.StateAbbrOnly:
		_, abbr := s.SampleState()
		return abbr, nil

	case opts.StateFullOnly:
		name, _ := s.SampleState()
		return name, nil

	case opts.CityOnly:
		city, _, err := s.SampleCity("")
		if err != nil {
			return "", err
		}
		return city, nil
	}

	stateName, stateAbbr, cityName, err := s.SampleStateAndCity()
	if err != nil {
		return "", err
	}
	return s.FormatLocation(cityName, stateName, stateAbbr, true, opts.CEPWithoutDash)
}
