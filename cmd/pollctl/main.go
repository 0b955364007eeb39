// Command pollctl runs operator tasks against the poll database: schema
// migrations, seeding and inspecting questions.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"pollhub/internal/bootstrap"
	"pollhub/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// openFunc loads configuration and connects to the database.
type openFunc func(opts bootstrap.Options) (*config.Config, *gorm.DB, error)

func main() {
	if err := newRootCmd(openRuntime).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openRuntime(opts bootstrap.Options) (*config.Config, *gorm.DB, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to read .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, _, err := bootstrap.InitRuntime(cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func newRootCmd(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pollctl",
		Short:         "Operator tasks for the poll site",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newMigrateCmd(open),
		newSeedCmd(open),
		newQuestionsCmd(open),
	)
	return cmd
}
