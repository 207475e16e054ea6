package location

import "strings"

// FindCity locates a city by display name and state abbreviation through a
// prioritized fallback chain: the exact "Name_UF" compound key, an exact
// name+state scan, the flat index verified against the state, and finally a
// case-insensitive scan. An empty stateAbbr degrades to a bare flat-index
// lookup. Best-effort: a total miss returns (nil, false), never an error.
func (s *Sampler) FindCity(cityName, stateAbbr string) (*CityRecord, bool) {
	if stateAbbr == "" {
		rec, ok := s.cityByName[cityName]
		return rec, ok
	}

	if rec, ok := s.data.Cities[cityName+"_"+stateAbbr]; ok {
		return rec, true
	}

	for _, key := range s.data.cityOrder {
		rec := s.data.Cities[key]
		if rec.CityName == cityName && rec.CityUF == stateAbbr {
			return rec, true
		}
	}

	if rec, ok := s.cityByName[cityName]; ok && rec.CityUF == stateAbbr {
		return rec, true
	}

	for _, key := range s.data.cityOrder {
		rec := s.data.Cities[key]
		if strings.EqualFold(rec.CityName, cityName) && rec.CityUF == stateAbbr {
			return rec, true
		}
	}

	return nil, false
}
