package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sampa-labs/brgen-cli/internal/model"
	"github.com/sampa-labs/brgen-cli/internal/names"
	"github.com/sampa-labs/brgen-cli/internal/output"
	"github.com/sampa-labs/brgen-cli/internal/sampler"
)

// sampleFlags mirrors the brgen sample flag surface.
type sampleFlags struct {
	Qty    int
	All    bool
	SaveTo string
	Append bool
	Batch  int
	Easy   int
	Seed   uint64

	CityOnly       bool
	StateAbbrOnly  bool
	StateFullOnly  bool
	OnlyCEP        bool
	CEPWithoutDash bool
	MakeAPICall    bool

	TimePeriod     string
	ReturnOnlyName bool
	NameRaw        bool
	OnlySurname    bool
	Top40          bool
	OneSurname     bool
	AlwaysMiddle   bool
	OnlyMiddle     bool

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
	OnlyFone      bool
	IncludeIssuer bool

	LocationsPath   string
	NamesPath       string
	SurnamesPath    string
	MiddleNamesPath string
}

// applyEasy expands easy mode: the integer becomes the quantity, API
// enrichment and full records switch on, and output defaults to the
// configured JSONL path.
func (f sampleFlags) applyEasy(defaultOutput string) sampleFlags {
	if f.Easy <= 0 {
		return f
	}
	f.Qty = f.Easy
	f.All = true
	f.MakeAPICall = true
	f.AlwaysPhone = true
	if f.SaveTo == "" {
		f.SaveTo = defaultOutput
	}
	return f
}

// options maps the flag surface onto generator options. batchDefault fills
// in when --batch was not given.
func (f sampleFlags) options(batchDefault int) (sampler.Options, error) {
	period, err := names.ParseTimePeriod(f.TimePeriod)
	if err != nil {
		return sampler.Options{}, err
	}
	batch := f.Batch
	if batch <= 0 {
		batch = batchDefault
	}
	return sampler.Options{
		Quantity:       f.Qty,
		CityOnly:       f.CityOnly,
		StateAbbrOnly:  f.StateAbbrOnly,
		StateFullOnly:  f.StateFullOnly,
		OnlyCEP:        f.OnlyCEP,
		CEPWithoutDash: f.CEPWithoutDash,
		TimePeriod:     period,
		ReturnOnlyName: f.ReturnOnlyName,
		NameRaw:        f.NameRaw,
		OnlySurname:    f.OnlySurname,
		TopForty:       f.Top40,
		OneSurname:     f.OneSurname,
		AlwaysMiddle:   f.AlwaysMiddle,
		OnlyMiddle:     f.OnlyMiddle,
		OnlyDocument:   f.OnlyDocument,
		AlwaysCPF:      f.AlwaysCPF,
		AlwaysPIS:      f.AlwaysPIS,
		AlwaysCNPJ:     f.AlwaysCNPJ,
		AlwaysCEI:      f.AlwaysCEI,
		AlwaysRG:       f.AlwaysRG,
		AlwaysPhone:    f.AlwaysPhone,
		OnlyCPF:        f.OnlyCPF,
		OnlyPIS:        f.OnlyPIS,
		OnlyCNPJ:       f.OnlyCNPJ,
		OnlyCEI:        f.OnlyCEI,
		OnlyRG:         f.OnlyRG,
		OnlyPhone:      f.OnlyFone,
		IncludeIssuer:  f.IncludeIssuer,
		AllData:        f.All,
		APILookup:      f.MakeAPICall,
		BatchSize:      batch,
	}, nil
}

func (f sampleFlags) paths() dataPaths {
	return dataPaths{
		Locations:   f.LocationsPath,
		Names:       f.NamesPath,
		Surnames:    f.SurnamesPath,
		MiddleNames: f.MiddleNamesPath,
	}
}

var sampleOpt sampleFlags

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate synthetic identity records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("sample"); err != nil {
			return err
		}

		flags := sampleOpt.applyEasy(cfg.Sample.OutputPath)
		opts, err := flags.options(cfg.Sample.BatchSize)
		if err != nil {
			return err
		}

		env, err := initSampler(flags.paths(), flags.Seed)
		if err != nil {
			return err
		}

		var writer *output.Writer
		var collected []model.SampleRecord
		if flags.SaveTo != "" {
			writer, err = output.NewWriter(flags.SaveTo, flags.Append)
			if err != nil {
				return err
			}
			defer writer.Close() //nolint:errcheck
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		run, err := st.CreateRun(ctx, model.RunParams{
			Quantity:   opts.Quantity,
			Seed:       flags.Seed,
			AllData:    opts.AllData,
			OnlyCEP:    opts.OnlyCEP,
			CityOnly:   opts.CityOnly,
			APILookup:  opts.APILookup,
			OutputPath: flags.SaveTo,
			TimePeriod: string(opts.TimePeriod),
		})
		if err != nil {
			return eris.Wrap(err, "create run")
		}

		n, err := env.Generator.GenerateBatches(ctx, opts, func(batch []model.SampleRecord) error {
			if writer != nil {
				return writer.WriteBatch(batch)
			}
			collected = append(collected, batch...)
			return nil
		})

		// Terminal status writes survive a cancelled root context.
		bg := context.Background()
		if err != nil {
			if fErr := st.FailRun(bg, run.ID, err); fErr != nil {
				zap.L().Warn("failed to mark run failed", zap.Error(fErr))
			}
			return eris.Wrap(err, "generate records")
		}
		if err := st.CompleteRun(bg, run.ID, n); err != nil {
			return eris.Wrap(err, "complete run")
		}

		zap.L().Info("generation complete",
			zap.String("run_id", run.ID),
			zap.Int("records", n),
			zap.String("output", flags.SaveTo),
		)

		if writer != nil {
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(collected)
	},
}

func init() {
	f := sampleCmd.Flags()

	f.IntVarP(&sampleOpt.Qty, "qty", "q", 1, "number of records to generate")
	f.BoolVarP(&sampleOpt.All, "all", "a", false, "include every document and name section")
	f.StringVarP(&sampleOpt.SaveTo, "save-to-jsonl", "s", "", "write records to a JSONL file instead of stdout")
	f.BoolVar(&sampleOpt.Append, "append", false, "append to the JSONL file instead of overwriting")
	f.IntVarP(&sampleOpt.Batch, "batch", "b", 0, "records per generation batch (default from config)")
	f.IntVarP(&sampleOpt.Easy, "easy", "e", 0, "easy mode: generate N full records with API enrichment, saved to the default output path")
	f.Uint64Var(&sampleOpt.Seed, "seed", 0, "random seed (0 seeds from the clock)")

	f.BoolVar(&sampleOpt.CityOnly, "city-only", false, "emit only city names")
	f.BoolVar(&sampleOpt.StateAbbrOnly, "state-abbr-only", false, "emit only state abbreviations")
	f.BoolVar(&sampleOpt.StateFullOnly, "state-full-only", false, "emit only full state names")
	f.BoolVar(&sampleOpt.OnlyCEP, "only-cep", false, "emit only postal codes")
	f.BoolVar(&sampleOpt.CEPWithoutDash, "cep-without-dash", false, "format postal codes without the dash")
	f.BoolVar(&sampleOpt.MakeAPICall, "make-api-call", false, "enrich street and neighborhood from the ViaCEP API")

	f.StringVarP(&sampleOpt.TimePeriod, "time-period", "t", string(names.DefaultPeriod), "census window for first names (until_1930 ... until_2010)")
	f.BoolVar(&sampleOpt.ReturnOnlyName, "return-only-name", false, "emit only name components")
	f.BoolVarP(&sampleOpt.NameRaw, "name-raw", "r", false, "keep names in the ALL-CAPS source form")
	f.BoolVar(&sampleOpt.OnlySurname, "only-surname", false, "emit only a surname")
	f.BoolVar(&sampleOpt.Top40, "top-40", false, "draw surnames from the 40 most frequent only")
	f.BoolVar(&sampleOpt.OneSurname, "one-surname", false, "a single surname instead of two")
	f.BoolVar(&sampleOpt.AlwaysMiddle, "always-middle", false, "always include a middle name")
	f.BoolVar(&sampleOpt.OnlyMiddle, "only-middle", false, "emit only a middle name")

	f.BoolVar(&sampleOpt.OnlyDocument, "only-document", false, "emit only documents")
	f.BoolVar(&sampleOpt.AlwaysCPF, "always-cpf", true, "include a CPF")
	f.BoolVar(&sampleOpt.AlwaysPIS, "always-pis", false, "include a PIS")
	f.BoolVar(&sampleOpt.AlwaysCNPJ, "always-cnpj", false, "include a CNPJ")
	f.BoolVar(&sampleOpt.AlwaysCEI, "always-cei", false, "include a CEI")
	f.BoolVar(&sampleOpt.AlwaysRG, "always-rg", true, "include an RG")
	f.BoolVar(&sampleOpt.AlwaysPhone, "always-phone", true, "include a cellphone number")
	f.BoolVar(&sampleOpt.OnlyCPF, "only-cpf", false, "emit only a CPF")
	f.BoolVar(&sampleOpt.OnlyPIS, "only-pis", false, "emit only a PIS")
	f.BoolVar(&sampleOpt.OnlyCNPJ, "only-cnpj", false, "emit only a CNPJ")
	f.BoolVar(&sampleOpt.OnlyCEI, "only-cei", false, "emit only a CEI")
	f.BoolVar(&sampleOpt.OnlyRG, "only-rg", false, "emit only an RG")
	f.BoolVar(&sampleOpt.OnlyFone, "only-fone", false, "emit only a phone number")
	f.BoolVar(&sampleOpt.IncludeIssuer, "include-issuer", true, "suffix RG numbers with the issuing state")

	f.StringVar(&sampleOpt.LocationsPath, "locations-path", "", "alternate locations JSON (default embedded)")
	f.StringVar(&sampleOpt.NamesPath, "names-path", "", "alternate first-name pools JSON (default embedded)")
	f.StringVar(&sampleOpt.SurnamesPath, "surnames-path", "", "alternate surname pool JSON (default embedded)")
	f.StringVar(&sampleOpt.MiddleNamesPath, "middle-names-path", "", "alternate middle-name pool JSON (default embedded)")

	rootCmd.AddCommand(sampleCmd)
}
