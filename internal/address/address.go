// Package address provides the offline pools behind a record's street,
// neighborhood and building number. Web enrichment can overwrite the first
// two; the building number is always drawn here.
package address

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sampa-labs/brgen-cli/internal/data"
	"github.com/sampa-labs/brgen-cli/internal/rng"
)

// ErrMissingPools is returned when a source file lacks one of the three
// pools.
var ErrMissingPools = eris.New("address: empty pool")

// buildingNumberMax bounds the uniform building-number draw; zero is not a
// valid door number.
const buildingNumberMax = 9999

// Pools is the source form of the offline address data.
type Pools struct {
	StreetTypes   []string `json:"street_types"`
	StreetNames   []string `json:"street_names"`
	Neighborhoods []string `json:"neighborhoods"`
}

// Embedded returns the address pools shipped in the binary.
func Embedded() (*Pools, error) {
	return parsePools(data.Addresses())
}

// LoadPools reads address pools from path, or the embedded seed when path
// is empty.
func LoadPools(path string) (*Pools, error) {
	if path == "" {
		return Embedded()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "address: read %s", path)
	}
	return parsePools(raw)
}

func parsePools(raw []byte) (*Pools, error) {
	var p Pools
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, eris.Wrap(err, "address: parse pools")
	}
	return &p, nil
}

// Provider draws address components uniformly from its pools. Draws mutate
// the random source; share across goroutines only with a locked source.
type Provider struct {
	src           rng.Source
	streetTypes   []string
	streetNames   []string
	neighborhoods []string
}

// New builds a provider over p, whose three pools must all be non-empty. A
// nil src falls back to the shared time-seeded source.
func New(p *Pools, src rng.Source) (*Provider, error) {
	if p == nil || len(p.StreetTypes) == 0 || len(p.StreetNames) == 0 || len(p.Neighborhoods) == 0 {
		return nil, eris.Wrap(ErrMissingPools, "address: construct")
	}
	if src == nil {
		src = rng.Default()
	}
	return &Provider{
		src:           src,
		streetTypes:   p.StreetTypes,
		streetNames:   p.StreetNames,
		neighborhoods: p.Neighborhoods,
	}, nil
}

// Street returns a thoroughfare: a type prefix plus a name, e.g.
// "Rua das Flores".
func (p *Provider) Street() string {
	return rng.Pick(p.src, p.streetTypes) + " " + rng.Pick(p.src, p.streetNames)
}

// Neighborhood returns a neighborhood name.
func (p *Provider) Neighborhood() string {
	return rng.Pick(p.src, p.neighborhoods)
}

// BuildingNumber returns a door number in [1, 9999].
func (p *Provider) BuildingNumber() int {
	return 1 + rng.IntN(p.src, buildingNumberMax)
}
