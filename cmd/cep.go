package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sampa-labs/brgen-cli/internal/cep"
	"github.com/sampa-labs/brgen-cli/internal/model"
)

// cepResult is the JSON shape one resolved code prints as.
type cepResult struct {
	CEP          string `json:"cep"`
	Street       string `json:"street,omitempty"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	UF           string `json:"uf,omitempty"`
	DDD          string `json:"ddd,omitempty"`
	Error        string `json:"error,omitempty"`
}

var cepCmd = &cobra.Command{
	Use:   "cep <code>...",
	Short: "Resolve postal codes through the ViaCEP bridge",
	Long:  "Looks up one or more CEPs against the web API with the bounded worker pool and records each lookup in the run catalog.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		results := initResolver().Resolve(ctx, args)

		out := make([]cepResult, 0, len(results))
		failed := 0
		for _, res := range results {
			out = append(out, toCEPResult(res))

			lookup := model.CEPLookup{CEP: res.CEP, OK: res.OK()}
			if res.Err != nil {
				failed++
				lookup.Error = res.Err.Error()
			}
			if err := st.RecordCEPLookup(ctx, lookup); err != nil {
				zap.L().Warn("failed to record cep lookup", zap.Error(err))
			}
		}

		zap.L().Info("cep lookups complete",
			zap.Int("requested", len(args)),
			zap.Int("failed", failed),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(cepCmd)
}

// toCEPResult flattens one bridge result for display.
func toCEPResult(res cep.Result) cepResult {
	out := cepResult{CEP: res.CEP}
	if res.Err != nil {
		out.Error = res.Err.Error()
		return out
	}
	if res.Address != nil {
		out.Street = res.Address.Street
		out.Complement = res.Address.Complement
		out.Neighborhood = res.Address.Neighborhood
		out.City = res.Address.City
		out.UF = res.Address.UF
		out.DDD = res.Address.DDD
	}
	return out
}
