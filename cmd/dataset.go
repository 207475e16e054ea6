package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sampa-labs/brgen-cli/internal/dataset"
	"github.com/sampa-labs/brgen-cli/internal/store"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Build the locations table from IBGE population estimates",
}

var (
	datasetManifest string
	datasetImport   bool
)

var datasetBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Download, parse and normalize the IBGE estimates into a locations JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		m, err := dataset.LoadManifest(datasetManifest)
		if err != nil {
			return err
		}

		d, result, err := dataset.Run(ctx, m)
		if err != nil {
			return err
		}

		zap.L().Info("dataset built",
			zap.Int("states", result.States),
			zap.Int("cities", result.Cities),
			zap.String("output", result.Output),
		)

		if !datasetImport {
			return nil
		}

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

		ps, ok := st.(*store.PostgresStore)
		if !ok {
			return eris.New("dataset build: --import needs the postgres store driver")
		}
		n, err := ps.ImportCities(ctx, d)
		if err != nil {
			return eris.Wrap(err, "import cities")
		}
		zap.L().Info("cities imported", zap.Int64("rows", n))
		return nil
	},
}

func init() {
	datasetBuildCmd.Flags().StringVar(&datasetManifest, "manifest", "dataset.yaml", "build manifest path")
	datasetBuildCmd.Flags().BoolVar(&datasetImport, "import", false, "bulk-import the built cities into the postgres store")
	datasetCmd.AddCommand(datasetBuildCmd)
	rootCmd.AddCommand(datasetCmd)
}
