package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sampa-labs/brgen-cli/internal/dataset"
	"github.com/sampa-labs/brgen-cli/internal/location"
)

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Inspect and maintain the locations table",
	Long:  "Commands for listing sampling weights, finding cities and merging external locations files.",
}

// -- locations list --

var locationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List states, or one state's cities, with sampling weights",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("locations-path")
		uf, _ := cmd.Flags().GetString("state")

		env, err := initSampler(dataPaths{Locations: path}, 0)
		if err != nil {
			return err
		}

		if uf != "" {
			cities := env.Locations.CityNames(uf)
			if len(cities) == 0 {
				return eris.Errorf("locations list: no cities for state %s", uf)
			}
			formatWeightTable(os.Stdout, "CITY", cities, env.Locations.CityWeights(uf))
			return nil
		}

		formatWeightTable(os.Stdout, "STATE", env.Locations.States(), env.Locations.StateWeights())
		return nil
	},
}

// -- locations find --

var locationsFindCmd = &cobra.Command{
	Use:   "find <city>",
	Short: "Look up a city record by name, optionally scoped to a state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("locations-path")
		uf, _ := cmd.Flags().GetString("uf")

		env, err := initSampler(dataPaths{Locations: path}, 0)
		if err != nil {
			return err
		}

		rec, ok := env.Locations.FindCity(args[0], uf)
		if !ok {
			fmt.Fprintln(os.Stderr, "City not found.")
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

// -- locations merge --

var locationsMergeCmd = &cobra.Command{
	Use:   "merge <file>",
	Short: "Merge an external locations JSON into the table",
	Long:  "Upserts the file's states and cities into the working locations table. Cities matching an existing (state, name) pair replace that record in place. The merged table goes to --output, or to stdout.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("locations-path")
		outPath, _ := cmd.Flags().GetString("output")

		env, err := initSampler(dataPaths{Locations: path}, 0)
		if err != nil {
			return err
		}

		incoming, err := location.LoadDataset(args[0])
		if err != nil {
			return err
		}

		before := len(env.Locations.Dataset().CityKeys())

		if err := env.Locations.UpsertStates(incoming.States); err != nil {
			return eris.Wrap(err, "locations merge")
		}
		if err := env.Locations.UpsertCities(incoming.Cities); err != nil {
			return eris.Wrap(err, "locations merge")
		}

		merged := env.Locations.Dataset()
		zap.L().Info("locations merged",
			zap.String("source", args[0]),
			zap.Int("cities_before", before),
			zap.Int("cities_after", len(merged.CityKeys())),
			zap.Int("states", len(merged.StateKeys())),
		)

		if outPath != "" {
			return dataset.WriteDataset(merged, outPath)
		}

		raw, err := json.MarshalIndent(merged, "", "  ")
		if err != nil {
			return eris.Wrap(err, "locations merge: encode")
		}
		_, err = os.Stdout.Write(append(raw, '\n'))
		return err
	},
}

func init() {
	locationsListCmd.Flags().String("locations-path", "", "alternate locations JSON (default embedded)")
	locationsListCmd.Flags().String("state", "", "list the cities of one state (UF) instead of states")

	locationsFindCmd.Flags().String("locations-path", "", "alternate locations JSON (default embedded)")
	locationsFindCmd.Flags().String("uf", "", "state abbreviation to scope the lookup")

	locationsMergeCmd.Flags().String("locations-path", "", "alternate locations JSON (default embedded)")
	locationsMergeCmd.Flags().StringP("output", "o", "", "write the merged table to this path instead of stdout")

	locationsCmd.AddCommand(locationsListCmd)
	locationsCmd.AddCommand(locationsFindCmd)
	locationsCmd.AddCommand(locationsMergeCmd)
	rootCmd.AddCommand(locationsCmd)
}

// formatWeightTable writes names with their normalized sampling weights.
func formatWeightTable(out io.Writer, header string, names []string, weights []float64) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "%s\tWEIGHT\n", header)
	_, _ = fmt.Fprintf(w, "%s\t------\n", dashes(len(header)))

	for i, name := range names {
		weight := 0.0
		if i < len(weights) {
			weight = weights[i]
		}
		_, _ = fmt.Fprintf(w, "%s\t%.6f\n", name, weight)
	}
	_ = w.Flush()
}

func dashes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}
