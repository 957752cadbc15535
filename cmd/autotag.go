package cmd

import (
	"fmt"
	"os"
	"sg-explorer/logging"
	"sg-explorer/models"
	"sg-explorer/tagger"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

type tagUpdate struct {
	id, name string
	tags     []string
}

func newAutotagCmd() *cobra.Command {
	var dryRun, replace bool
	cmd := &cobra.Command{
		Use:   "autotag",
		Short: "Derives POI tags from names and descriptions",
		Long: `
autotag runs the keyword rules over every POI and adds the tags they
suggest. Existing tags are kept unless --replace is given.
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			t := tagger.New(tagger.DefaultRules)
			var pending []tagUpdate
			err = a.geo.ForEachPOI(cmd.Context(), func(poi *models.POI) error {
				suggested := t.Suggest(*poi)
				next := tagger.Merge(poi.Tags, suggested)
				if replace {
					next = tagger.Merge(suggested)
				}
				if !slices.Equal(next, tagger.Merge(poi.Tags)) {
					pending = append(pending, tagUpdate{id: poi.ID, name: poi.Name, tags: next})
				}
				return nil
			})
			if err != nil {
				return err
			}

			if dryRun {
				for _, u := range pending {
					fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", u.id, u.name, strings.Join(u.tags, ","))
				}
				return nil
			}

			bar := newBar(len(pending), "Tagging POIs")
			for _, u := range pending {
				if _, err := a.geo.SetTags(cmd.Context(), u.id, u.tags); err != nil {
					return fmt.Errorf("tagging %s: %w", u.id, err)
				}
				if bar != nil {
					_ = bar.Add(1)
				}
			}
			logging.Info().Int("updated", len(pending)).Msg("Autotag complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the changes instead of writing them")
	cmd.Flags().BoolVar(&replace, "replace", false, "replace existing tags with the suggested ones")
	return cmd
}

func newPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote-admin <username>",
		Short: "Grants the admin role to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			users := newUserService(a)
			if err := users.PromoteToAdmin(cmd.Context(), args[0]); err != nil {
				return err
			}
			logging.Info().Str("username", args[0]).Msg("User promoted to admin")
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newAutotagCmd())
	rootCmd.AddCommand(newPromoteCmd())
}
