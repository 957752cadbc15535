package cmd

import (
	"fmt"
	"os"
	"sg-explorer/logging"
	"sg-explorer/services"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Imports POIs from a JSON file and rebuilds the geo index",
		Long: `
seed upserts every POI in the file by id, so it can be re-run safely.
POIs without an id get one and POIs without tags are tagged from their text.
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if file == "" {
				file = a.cfg.Seed.File
			}
			pois, err := services.LoadPOIFile(file)
			if err != nil {
				return err
			}

			bar := newBar(len(pois), "Importing POIs")
			n, err := a.geo.ImportPOIs(cmd.Context(), pois, func() {
				if bar != nil {
					_ = bar.Add(1)
				}
			})
			if err != nil {
				return fmt.Errorf("imported %d of %d POIs: %w", n, len(pois), err)
			}

			indexed, err := a.geo.Reindex(cmd.Context())
			if err != nil {
				return err
			}
			logging.Info().Int("imported", n).Int("skipped", len(pois)-n).Int("indexed", indexed).Msg("Seed complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "POI JSON file (defaults to SEED_FILE)")
	return cmd
}

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuilds the Redis geo index from MongoDB",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.geo.Reindex(cmd.Context())
			if err != nil {
				return err
			}
			logging.Info().Int("indexed", n).Msg("Reindex complete")
			return nil
		},
	}
}

// newBar returns nil when stderr is not a terminal.
func newBar(n int, description string) *progressbar.ProgressBar {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func init() {
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newReindexCmd())
}
