// Package data embeds the seed datasets shipped inside the binary: the
// population-weighted locations table and the name, surname, middle-name
// and address pools. Every sampler accepts an external file path; these are
// the zero-config defaults.
package data

import _ "embed"

//go:embed locations.json
var locations []byte

//go:embed names.json
var names []byte

//go:embed surnames.json
var surnames []byte

//go:embed middle_names.json
var middleNames []byte

//go:embed addresses.json
var addresses []byte

// Locations returns the embedded locations JSON (states and cities with
// population weights, DDDs and postal data). Callers must not mutate it.
func Locations() []byte { return locations }

// Names returns the embedded first-name pools keyed by census time period.
func Names() []byte { return names }

// Surnames returns the embedded weighted surname pool.
func Surnames() []byte { return surnames }

// MiddleNames returns the embedded middle-name pool.
func MiddleNames() []byte { return middleNames }

// Addresses returns the embedded street, neighborhood and street-type
// pools used by the offline address provider.
func Addresses() []byte { return addresses }
