package cli

import (
	"encoding/json"
	"fmt"

	"github.com/ikkim/cart-recovery-backend/config"
	"github.com/ikkim/cart-recovery-backend/internal/db"
	"github.com/ikkim/cart-recovery-backend/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// Env is what the commands need from the outside world.
type Env struct {
	Config *config.Config
	DB     *gorm.DB
}

// Loader builds an Env. withDB is false for commands that only need config.
// The returned func releases whatever was opened.
type Loader func(withDB bool) (*Env, func(), error)

// DefaultLoader reads configuration from the environment and connects to
// the configured database.
func DefaultLoader(withDB bool) (*Env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger.Initialize(logger.ConfigForEnvironment(cfg.Server.Environment))

	env := &Env{Config: cfg}
	if !withDB {
		return env, func() {}, nil
	}
	if err := db.Initialize(&cfg.Database); err != nil {
		return nil, nil, err
	}
	env.DB = db.GetDB()
	return env, func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}, nil
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
	load   Loader
}

var validFormats = []string{"text", "json"}

// NewRootCommand creates the cartctl command tree.
func NewRootCommand(load Loader) *cobra.Command {
	opts := &RootOptions{load: load}

	cmd := &cobra.Command{
		Use:   "cartctl",
		Short: "Operate the abandoned cart recovery service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewCleanupCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewArchiveURLCommand(opts))
	cmd.AddCommand(NewSeedProductsCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// emit prints v as JSON or text as-is, depending on --format.
func emit(cmd *cobra.Command, opts *RootOptions, text string, v interface{}) error {
	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}
