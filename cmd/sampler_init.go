package main

import (
	"time"

	"github.com/sampa-labs/brgen-cli/internal/address"
	"github.com/sampa-labs/brgen-cli/internal/cep"
	"github.com/sampa-labs/brgen-cli/internal/data"
	"github.com/sampa-labs/brgen-cli/internal/document"
	"github.com/sampa-labs/brgen-cli/internal/location"
	"github.com/sampa-labs/brgen-cli/internal/names"
	"github.com/sampa-labs/brgen-cli/internal/rng"
	"github.com/sampa-labs/brgen-cli/internal/sampler"
	"github.com/sampa-labs/brgen-cli/pkg/viacep"
)

// samplerEnv holds the initialized samplers and postal-code bridge shared
// by the sample, serve and locations commands.
type samplerEnv struct {
	Locations *location.Sampler
	Generator *sampler.Generator
	Resolver  *cep.Resolver
}

// dataPaths carries per-command overrides for the seed data files. Empty
// fields fall back to config, then to the datasets embedded in the binary.
type dataPaths struct {
	Locations   string
	Names       string
	Surnames    string
	MiddleNames string
}

func (p dataPaths) withConfig() dataPaths {
	if p.Locations == "" {
		p.Locations = cfg.Data.LocationsPath
	}
	if p.Names == "" {
		p.Names = cfg.Data.NamesPath
	}
	if p.Surnames == "" {
		p.Surnames = cfg.Data.SurnamesPath
	}
	if p.MiddleNames == "" {
		p.MiddleNames = cfg.Data.MiddleNamesPath
	}
	return p
}

// initSampler builds the component samplers over one shared random source
// and wires the ViaCEP bridge into the record generator. A zero seed draws
// from the process clock; any other seed makes every draw reproducible.
func initSampler(paths dataPaths, seed uint64) (*samplerEnv, error) {
	paths = paths.withConfig()

	var src rng.Source
	if seed != 0 {
		src = rng.NewLocked(rng.NewMT19937(seed))
	} else {
		src = rng.Default()
	}

	var locData *location.Dataset
	var err error
	if paths.Locations != "" {
		locData, err = location.LoadDataset(paths.Locations)
	} else {
		locData, err = location.ParseDataset(data.Locations())
	}
	if err != nil {
		return nil, err
	}
	loc, err := location.New(locData, src)
	if err != nil {
		return nil, err
	}

	nameData, err := names.LoadData(paths.Names, paths.Surnames, paths.MiddleNames)
	if err != nil {
		return nil, err
	}
	nm, err := names.New(nameData, src)
	if err != nil {
		return nil, err
	}

	pools, err := address.Embedded()
	if err != nil {
		return nil, err
	}
	addr, err := address.New(pools, src)
	if err != nil {
		return nil, err
	}

	resolver := initResolver()

	gen, err := sampler.New(loc, nm, document.New(src), addr, sampler.WithResolver(resolver))
	if err != nil {
		return nil, err
	}

	return &samplerEnv{Locations: loc, Generator: gen, Resolver: resolver}, nil
}

// initResolver builds the ViaCEP bridge from the config tunables.
func initResolver() *cep.Resolver {
	client := viacep.NewClient(
		viacep.WithBaseURL(cfg.CEP.BaseURL),
		viacep.WithRateLimit(cfg.CEP.RateLimit),
	)
	return cep.New(client, cep.Config{
		Workers:     cfg.CEP.Workers,
		MaxAttempts: cfg.CEP.MaxAttempts,
		RetryDelay:  time.Duration(cfg.CEP.RetryDelayMS) * time.Millisecond,
	})
}
