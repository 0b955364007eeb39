package main

import (
	"errors"
	"fmt"

	"pollhub/internal/bootstrap"
	"pollhub/internal/seed"

	"github.com/spf13/cobra"
)

func newSeedCmd(open openFunc) *cobra.Command {
	var opts seed.Options

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load fixtures and generate fake questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.FixturesPath == "" && opts.NumFake <= 0 && !opts.ShouldClean {
				return errors.New("nothing to do: pass --fixtures, --fake or --clean")
			}
			_, db, err := open(bootstrap.Options{})
			if err != nil {
				return err
			}
			res, err := seed.Run(cmd.Context(), db, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d users, %d questions, %d votes\n", res.Users, res.Questions, res.Votes)
			if res.Users > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "fixture users without a password use %q\n", seed.DefaultPassword)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.FixturesPath, "fixtures", "", "YAML fixtures file with users and questions")
	cmd.Flags().IntVar(&opts.NumFake, "fake", 0, "Number of generated questions to add")
	cmd.Flags().BoolVar(&opts.ShouldClean, "clean", false, "Delete all users and polls first")
	cmd.Flags().IntVar(&opts.MaxDays, "max-days", 30, "Spread fake publication dates over this many days")
	return cmd
}
