// Package sampler assembles complete identity records from the component
// samplers: location, name, document, and offline address, with optional
// postal-code enrichment against the ViaCEP bridge.
package sampler

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sampa-labs/brgen-cli/internal/address"
	"github.com/sampa-labs/brgen-cli/internal/cep"
	"github.com/sampa-labs/brgen-cli/internal/document"
	"github.com/sampa-labs/brgen-cli/internal/location"
	"github.com/sampa-labs/brgen-cli/internal/model"
	"github.com/sampa-labs/brgen-cli/internal/names"
)

// DefaultBatchSize is how many records one batch holds when the caller does
// not choose.
const DefaultBatchSize = 50

// Options mirror the CLI flag surface. Zero-valued Quantity and BatchSize
// take defaults; the mode flags select which record sections are produced.
type Options struct {
	Quantity int

	// Location facade modes, checked in the same precedence as
	// location.RandomLocation: OnlyCEP, StateAbbrOnly, StateFullOnly,
	// CityOnly, then the full composite.
	CityOnly       bool
	StateAbbrOnly  bool
	StateFullOnly  bool
	OnlyCEP        bool
	CEPWithoutDash bool

	// Name controls.
	TimePeriod     names.TimePeriod
	ReturnOnlyName bool
	NameRaw        bool
	OnlySurname    bool
	TopForty       bool
	OneSurname     bool
	AlwaysMiddle   bool
	OnlyMiddle     bool

	// Document switches. The always flags add a document to full records;
	// an only flag without OnlyDocument narrows the record to exactly the
	// requested documents.
	OnlyDocument  bool
	AlwaysCPF     bool
	AlwaysPIS     bool
	AlwaysCNPJ    bool
	AlwaysCEI     bool
	AlwaysRG      bool
	AlwaysPhone   bool
	OnlyCPF       bool
	OnlyPIS       bool
	OnlyCNPJ      bool
	OnlyCEI       bool
	OnlyRG        bool
	OnlyPhone     bool
	IncludeIssuer bool

	// AllData turns every always flag on and every narrowing flag off.
	AllData bool

	// APILookup enriches street and neighborhood from the postal-code
	// bridge. It needs a resolver wired into the generator; without one
	// the flag is a no-op.
	APILookup bool

	BatchSize int
}

// DefaultOptions matches the CLI defaults: one record with CPF, RG and
// phone, RG carrying its issuer, names drawn from the most recent period.
func DefaultOptions() Options {
	return Options{
		Quantity:      1,
		TimePeriod:    names.DefaultPeriod,
		AlwaysCPF:     true,
		AlwaysRG:      true,
		AlwaysPhone:   true,
		IncludeIssuer: true,
		BatchSize:     DefaultBatchSize,
	}
}

// normalized applies defaults and the AllData override.
func (o Options) normalized() Options {
	if o.Quantity <= 0 {
		o.Quantity = 1
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.AllData {
		o.AlwaysCPF = true
		o.AlwaysPIS = true
		o.AlwaysCNPJ = true
		o.AlwaysCEI = true
		o.AlwaysRG = true
		o.AlwaysPhone = true
		o.AlwaysMiddle = true
		o.OnlyCPF = false
		o.OnlyPIS = false
		o.OnlyCNPJ = false
		o.OnlyCEI = false
		o.OnlyRG = false
		o.OnlyPhone = false
		o.OnlySurname = false
		o.OnlyMiddle = false
		o.OnlyCEP = false
		o.CityOnly = false
		o.StateAbbrOnly = false
		o.StateFullOnly = false
		o.ReturnOnlyName = false
		o.OnlyDocument = false
	}
	return o
}

func (o Options) anyOnlyDocument() bool {
	return o.OnlyCPF || o.OnlyPIS || o.OnlyCNPJ || o.OnlyCEI || o.OnlyRG || o.OnlyPhone
}

func (o Options) nameOptions() names.Options {
	return names.Options{
		Period:       o.TimePeriod,
		Raw:          o.NameRaw,
		TopForty:     o.TopForty,
		OneSurname:   o.OneSurname,
		AlwaysMiddle: o.AlwaysMiddle,
	}
}

// docSelection resolves which documents a record carries. OnlyDocument and
// full records honor both flag families; a bare only flag narrows to the
// only family so that, say, OnlyCPF yields just a CPF even though RG and
// phone default on.
type docSelection struct {
	cpf, pis, cnpj, cei, rg, phone bool
}

func (o Options) docSelection() docSelection {
	if o.anyOnlyDocument() && !o.OnlyDocument {
		return docSelection{
			cpf:   o.OnlyCPF,
			pis:   o.OnlyPIS,
			cnpj:  o.OnlyCNPJ,
			cei:   o.OnlyCEI,
			rg:    o.OnlyRG,
			phone: o.OnlyPhone,
		}
	}
	return docSelection{
		cpf:   o.AlwaysCPF || o.OnlyCPF,
		pis:   o.AlwaysPIS || o.OnlyPIS,
		cnpj:  o.AlwaysCNPJ || o.OnlyCNPJ,
		cei:   o.AlwaysCEI || o.OnlyCEI,
		rg:    o.AlwaysRG || o.OnlyRG,
		phone: o.AlwaysPhone || o.OnlyPhone,
	}
}

// BatchFunc receives each completed batch in generation order. Returning an
// error aborts the run.
type BatchFunc func(batch []model.SampleRecord) error

// Generator draws complete records. One location sample feeds a record's
// city, state, CEP, RG issuer and phone DDD, so those fields always agree.
type Generator struct {
	locations *location.Sampler
	names     *names.Sampler
	docs      *document.Generator
	addr      *address.Provider
	resolver  *cep.Resolver
}

// Option adjusts a Generator at construction.
type Option func(*Generator)

// WithResolver wires the postal-code bridge used when Options.APILookup is
// set.
func WithResolver(r *cep.Resolver) Option {
	return func(g *Generator) { g.resolver = r }
}

// New builds a generator over the four component samplers.
func New(loc *location.Sampler, nm *names.Sampler, docs *document.Generator, addr *address.Provider, opts ...Option) (*Generator, error) {
	if loc == nil || nm == nil || docs == nil || addr == nil {
		return nil, eris.New("sampler: location, name, document and address components are all required")
	}
	g := &Generator{locations: loc, names: nm, docs: docs, addr: addr}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate produces opts.Quantity records in memory.
func (g *Generator) Generate(ctx context.Context, opts Options) ([]model.SampleRecord, error) {
	opts = opts.normalized()
	out := make([]model.SampleRecord, 0, opts.Quantity)
	if _, err := g.GenerateBatches(ctx, opts, func(batch []model.SampleRecord) error {
		out = append(out, batch...)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateBatches produces opts.Quantity records in batches of
// opts.BatchSize, invoking fn after each batch completes (and after
// enrichment, when enabled). It returns the number of records produced,
// which on error counts only fully delivered batches.
func (g *Generator) GenerateBatches(ctx context.Context, opts Options, fn BatchFunc) (int, error) {
	opts = opts.normalized()

	total := 0
	for total < opts.Quantity {
		if err := ctx.Err(); err != nil {
			return total, eris.Wrap(err, "sampler: generate")
		}

		n := opts.Quantity - total
		if n > opts.BatchSize {
			n = opts.BatchSize
		}
		batch := make([]model.SampleRecord, 0, n)
		for i := 0; i < n; i++ {
			rec, err := g.record(opts)
			if err != nil {
				return total, err
			}
			batch = append(batch, rec)
		}

		if opts.APILookup && g.resolver != nil {
			g.enrich(ctx, batch)
		}

		if fn != nil {
			if err := fn(batch); err != nil {
				return total, eris.Wrap(err, "sampler: deliver batch")
			}
		}
		total += len(batch)
		zap.L().Debug("sampler: batch complete",
			zap.Int("batch", len(batch)),
			zap.Int("total", total),
			zap.Int("quantity", opts.Quantity))
	}
	return total, nil
}

// record draws one record per the mode flags. Narrowing modes are checked
// in fixed order: documents, surname, middle name, full name, then the full
// record.
func (g *Generator) record(opts Options) (model.SampleRecord, error) {
	var rec model.SampleRecord

	switch {
	case opts.OnlyDocument || opts.anyOnlyDocument():
		// Documents still need a sampled state for the RG issuer and a
		// city DDD for the phone, even though neither is emitted.
		_, stateAbbr, city, err := g.locations.SampleStateAndCity()
		if err != nil {
			return rec, err
		}
		g.fillDocuments(&rec, opts, stateAbbr, g.cityDDD(city))
		return rec, nil

	case opts.OnlySurname:
		rec.Surnames = g.names.Surname(opts.TopForty, opts.OneSurname, opts.NameRaw)
		return rec, nil

	case opts.OnlyMiddle:
		rec.MiddleName = g.names.MiddleName(opts.NameRaw)
		return rec, nil

	case opts.ReturnOnlyName:
		comps, err := g.names.Name(opts.nameOptions())
		if err != nil {
			return rec, err
		}
		rec.Name = comps.FirstName
		rec.MiddleName = comps.MiddleName
		rec.Surnames = comps.Surname
		return rec, nil
	}

	stateName, stateAbbr, city, err := g.locations.SampleStateAndCity()
	if err != nil {
		return rec, err
	}

	switch {
	case opts.OnlyCEP:
		code, err := g.formattedCEP(city, opts.CEPWithoutDash)
		if err != nil {
			return rec, err
		}
		rec.CEP = code
	case opts.StateAbbrOnly:
		rec.StateAbbr = stateAbbr
	case opts.StateFullOnly:
		rec.State = stateName
	case opts.CityOnly:
		rec.City = city
	default:
		code, err := g.formattedCEP(city, opts.CEPWithoutDash)
		if err != nil {
			return rec, err
		}
		rec.City = city
		rec.State = stateName
		rec.StateAbbr = stateAbbr
		rec.CEP = code
	}

	comps, err := g.names.Name(opts.nameOptions())
	if err != nil {
		return rec, err
	}
	rec.Name = comps.FirstName
	rec.MiddleName = comps.MiddleName
	rec.Surnames = comps.Surname

	g.fillDocuments(&rec, opts, stateAbbr, g.cityDDD(city))

	// The building number is always drawn offline. Street and neighborhood
	// are too, unless the record has a CEP the bridge can enrich; those are
	// left for enrich to fill or backfill.
	rec.BuildingNumber = strconv.Itoa(g.addr.BuildingNumber())
	if !(opts.APILookup && g.resolver != nil && rec.CEP != "") {
		rec.Street = g.addr.Street()
		rec.Neighborhood = g.addr.Neighborhood()
	}
	return rec, nil
}

// fillDocuments writes the selected documents. Cities without a DDD yield
// an empty phone.
func (g *Generator) fillDocuments(rec *model.SampleRecord, opts Options, stateAbbr, ddd string) {
	sel := opts.docSelection()
	if sel.cpf {
		rec.CPF = g.docs.CPF()
	}
	if sel.pis {
		rec.PIS = g.docs.PIS()
	}
	if sel.cnpj {
		rec.CNPJ = g.docs.CNPJ()
	}
	if sel.cei {
		rec.CEI = g.docs.CEI()
	}
	if sel.rg {
		rec.RG = g.docs.RG(stateAbbr, opts.IncludeIssuer)
	}
	if sel.phone {
		rec.Phone = g.docs.Cellphone(ddd)
	}
}

// enrich resolves every record CEP in the batch against the bridge and
// fills empty street and neighborhood fields from the responses. Misses and
// failures fall back to the offline pools; the record's CEP is never
// replaced by the API's rendering of it.
func (g *Generator) enrich(ctx context.Context, batch []model.SampleRecord) {
	idx := make([]int, 0, len(batch))
	codes := make([]string, 0, len(batch))
	for i := range batch {
		if batch[i].CEP != "" {
			idx = append(idx, i)
			codes = append(codes, batch[i].CEP)
		}
	}
	if len(codes) == 0 {
		return
	}

	results := g.resolver.Resolve(ctx, codes)

	hits := 0
	for j, res := range results {
		rec := &batch[idx[j]]
		if res.OK() {
			hits++
			if rec.Street == "" {
				rec.Street = res.Address.Street
			}
			if rec.Neighborhood == "" {
				rec.Neighborhood = res.Address.Neighborhood
			}
		}
		if rec.Street == "" {
			rec.Street = g.addr.Street()
		}
		if rec.Neighborhood == "" {
			rec.Neighborhood = g.addr.Neighborhood()
		}
	}
	zap.L().Debug("sampler: cep enrichment",
		zap.Int("requested", len(codes)),
		zap.Int("hits", hits))
}

// formattedCEP resolves a postal code for city and renders it with a dash
// unless noDash is set.
func (g *Generator) formattedCEP(city string, noDash bool) (string, error) {
	raw, err := g.locations.ResolveCEP(city)
	if err != nil {
		return "", err
	}
	return location.FormatCEP(raw, !noDash), nil
}

// cityDDD looks up the sampled city's area code; cities absent from the
// index or without one return "".
func (g *Generator) cityDDD(city string) string {
	rec, ok := g.locations.FindCity(city, "")
	if !ok {
		return ""
	}
	return rec.DDD
}
