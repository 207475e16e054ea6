package location

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sampa-labs/brgen-cli/internal/rng"
)

// ResolveCEP returns a postal code for a city: a uniform pick from its
// explicit ceps list when present, otherwise a uniform integer from its
// inclusive numeric range, rendered as a plain decimal string without
// re-padding. Cities absent from the index or carrying neither source
// yield a not-found error.
func (s *Sampler) ResolveCEP(cityName string) (string, error) {
	rec, ok := s.cityByName[cityName]
	if !ok {
		return "", eris.Wrapf(ErrNotFound, "sampler: city %q", cityName)
	}

	if len(rec.Ceps) > 0 {
		return rng.Pick(s.src, rec.Ceps), nil
	}

	if rec.CEPRangeBegins != "" && rec.CEPRangeEnds != "" {
		begin, err := strconv.ParseInt(strings.ReplaceAll(rec.CEPRangeBegins, "-", ""), 10, 64)
		if err != nil {
			return "", eris.Wrapf(err, "sampler: parse cep range begin for %q", cityName)
		}
		end, err := strconv.ParseInt(strings.ReplaceAll(rec.CEPRangeEnds, "-", ""), 10, 64)
		if err != nil {
			return "", eris.Wrapf(err, "sampler: parse cep range end for %q", cityName)
		}
		if begin > end {
			return "", eris.Errorf("sampler: inverted cep range for %q", cityName)
		}
		return strconv.FormatInt(rng.Int64Range(s.src, begin, end), 10), nil
	}

	return "", eris.Wrapf(ErrNotFound, "sampler: no postal data for city %q", cityName)
}

// FormatCEP strips any dashes from cep and, when withDash is set, reinserts
// one after the fifth character (DDDDD-DDD). Short inputs are not padded;
// malformed source data passes through malformed.
func FormatCEP(cep string, withDash bool) string {
	cep = strings.ReplaceAll(cep, "-", "")
	if !withDash {
		return cep
	}
	if len(cep) <= 5 {
		return cep + "-"
	}
	return cep[:5] + "-" + cep[5:]
}
