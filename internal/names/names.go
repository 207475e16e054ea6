// Package names samples Brazilian personal names: census-period weighted
// first names, uniform middle names, and frequency-weighted surnames with a
// top-40 cut. Source pools are ALL-CAPS; display output is title-cased with
// Brazilian Portuguese rules unless the raw form is requested.
package names

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sampa-labs/brgen-cli/internal/rng"
)

// TimePeriod selects the census window first names are drawn from.
type TimePeriod string

const (
	Until1930 TimePeriod = "until_1930"
	Until1940 TimePeriod = "until_1940"
	Until1950 TimePeriod = "until_1950"
	Until1960 TimePeriod = "until_1960"
	Until1970 TimePeriod = "until_1970"
	Until1980 TimePeriod = "until_1980"
	Until1990 TimePeriod = "until_1990"
	Until2000 TimePeriod = "until_2000"
	Until2010 TimePeriod = "until_2010"
)

// DefaultPeriod is the most recent census window.
const DefaultPeriod = Until2010

var allPeriods = []TimePeriod{
	Until1930, Until1940, Until1950, Until1960, Until1970,
	Until1980, Until1990, Until2000, Until2010,
}

var (
	ErrMissingNames    = eris.New("names: empty first-name pool")
	ErrMissingSurnames = eris.New("names: empty surname pool")
	ErrUnknownPeriod   = eris.New("names: unknown time period")
)

// ParseTimePeriod normalizes s into a known TimePeriod. Both the full
// "until_1990" form and the bare year "1990" are accepted.
func ParseTimePeriod(s string) (TimePeriod, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return DefaultPeriod, nil
	}
	if !strings.HasPrefix(norm, "until_") {
		norm = "until_" + norm
	}
	for _, p := range allPeriods {
		if TimePeriod(norm) == p {
			return p, nil
		}
	}
	return "", eris.Wrapf(ErrUnknownPeriod, "names: parse %q", s)
}

// Components holds the parts of one sampled name. Zero-valued fields were
// not drawn.
type Components struct {
	FirstName  string `json:"name"`
	MiddleName string `json:"middle_name"`
	Surname    string `json:"surname"`
}

// Full joins the non-empty components with single spaces.
func (c Components) Full() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.FirstName, c.MiddleName, c.Surname} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Options control one full-name draw.
type Options struct {
	Period       TimePeriod // empty means DefaultPeriod
	Raw          bool       // keep the ALL-CAPS source form
	TopForty     bool       // draw surnames from the 40 most frequent only
	OneSurname   bool       // a single surname instead of the default two
	AlwaysMiddle bool       // force the middle name instead of the coin flip
	NoMiddle     bool       // suppress the middle name entirely
}

// topFortyCut is how many surnames the restricted pool keeps.
const topFortyCut = 40

// middleProbability is the chance a middle name appears on an unforced
// draw.
const middleProbability = 0.5

// Sampler draws names from weighted pools. Draws mutate the random source;
// share across goroutines only with a locked source.
type Sampler struct {
	src      rng.Source
	periods  map[TimePeriod]*pool
	surnames *pool
	topForty *pool
	middles  []string
	caser    cases.Caser
}

// New builds a sampler over d, which must carry at least one period pool
// and a surname pool. A nil src falls back to the shared time-seeded
// source.
func New(d *Data, src rng.Source) (*Sampler, error) {
	if d == nil || len(d.Periods) == 0 {
		return nil, eris.Wrap(ErrMissingNames, "names: construct")
	}
	if len(d.Surnames) == 0 {
		return nil, eris.Wrap(ErrMissingSurnames, "names: construct")
	}
	if src == nil {
		src = rng.Default()
	}

	s := &Sampler{
		src:     src,
		periods: make(map[TimePeriod]*pool, len(d.Periods)),
		middles: append([]string(nil), d.Middles...),
		caser:   cases.Title(language.BrazilianPortuguese),
	}
	for period, weights := range d.Periods {
		if len(weights) == 0 {
			continue
		}
		s.periods[period] = newPool(weights, 0)
	}
	if len(s.periods) == 0 {
		return nil, eris.Wrap(ErrMissingNames, "names: construct")
	}
	s.surnames = newPool(d.Surnames, 0)
	s.topForty = newPool(d.Surnames, topFortyCut)
	return s, nil
}

// Name draws a full name: a period-weighted first name, a coin-flip middle
// name (unless forced on or off), and surnames.
func (s *Sampler) Name(opts Options) (Components, error) {
	first, err := s.FirstName(opts.Period, opts.Raw)
	if err != nil {
		return Components{}, err
	}

	c := Components{FirstName: first}
	if !opts.NoMiddle && len(s.middles) > 0 {
		if opts.AlwaysMiddle || rng.Float64(s.src) < middleProbability {
			c.MiddleName = s.MiddleName(opts.Raw)
		}
	}
	c.Surname = s.Surname(opts.TopForty, opts.OneSurname, opts.Raw)
	return c, nil
}

// FirstName draws one first name from the period's pool. An empty period
// means DefaultPeriod.
func (s *Sampler) FirstName(period TimePeriod, raw bool) (string, error) {
	if period == "" {
		period = DefaultPeriod
	}
	p, ok := s.periods[period]
	if !ok {
		return "", eris.Wrapf(ErrUnknownPeriod, "names: first name for %q", period)
	}
	return s.display(p.draw(s.src), raw), nil
}

// MiddleName draws one middle name, or returns the empty string when the
// pool is empty.
func (s *Sampler) MiddleName(raw bool) string {
	if len(s.middles) == 0 {
		return ""
	}
	return s.display(rng.Pick(s.src, s.middles), raw)
}

// Surname draws surnames: two distinct-slot draws joined by a space, or a
// single one. topForty restricts the pool to the most frequent names.
func (s *Sampler) Surname(topForty, one, raw bool) string {
	p := s.surnames
	if topForty {
		p = s.topForty
	}
	first := p.draw(s.src)
	if one {
		return s.display(first, raw)
	}
	second := p.draw(s.src)
	return s.display(first, raw) + " " + s.display(second, raw)
}

// Periods returns the time periods the sampler carries, in chronological
// order.
func (s *Sampler) Periods() []TimePeriod {
	out := make([]TimePeriod, 0, len(s.periods))
	for _, p := range allPeriods {
		if _, ok := s.periods[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// connectives stay lowercase inside a title-cased Brazilian name.
var connectives = map[string]bool{
	"da": true, "das": true, "de": true, "do": true, "dos": true, "e": true,
}

// display renders a source-form name for output: unchanged when raw,
// otherwise title-cased with name connectives lowered.
func (s *Sampler) display(source string, raw bool) string {
	if raw {
		return source
	}
	words := strings.Fields(s.caser.String(strings.ToLower(source)))
	for i := 1; i < len(words); i++ {
		if lower := strings.ToLower(words[i]); connectives[lower] {
			words[i] = lower
		}
	}
	return strings.Join(words, " ")
}

// pool is a cumulative weight table over a fixed name list. Entries are
// ordered by descending weight (name ascending on ties) so construction is
// deterministic regardless of map iteration; keep>0 truncates to the
// heaviest entries.
type pool struct {
	names []string
	cum   []float64
}

func newPool(weights map[string]float64, keep int) *pool {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		wi, wj := weights[names[i]], weights[names[j]]
		if wi != wj {
			return wi > wj
		}
		return names[i] < names[j]
	})
	if keep > 0 && len(names) > keep {
		names = names[:keep]
	}

	total := 0.0
	for _, name := range names {
		total += weights[name]
	}

	cum := make([]float64, len(names))
	running := 0.0
	for i, name := range names {
		w := weights[name]
		if total > 0 {
			w /= total
		}
		running += w
		cum[i] = running
	}
	return &pool{names: names, cum: cum}
}

// draw picks one entry by cumulative weight. A degenerate table (all-zero
// weights) yields the final entry.
func (p *pool) draw(src rng.Source) string {
	idx := sort.SearchFloat64s(p.cum, rng.Float64(src))
	if idx >= len(p.names) {
		idx = len(p.names) - 1
	}
	return p.names[idx]
}
