package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/samirrijal/pinmap/internal/app"
	"github.com/samirrijal/pinmap/internal/core/ports"
	"github.com/samirrijal/pinmap/internal/pkg/config"
	"github.com/samirrijal/pinmap/internal/pkg/logging"
)

// Opener builds the map session a command operates on.
type Opener func(ctx context.Context, opts *RootOptions, p ports.Prompter, n ports.Notifier) (*app.App, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Storage string // overrides storage.driver
	Origin  string // overrides mode.origin

	open Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the pinctl root command backed by the configured
// storage and geocoder.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(OpenFromConfig)
}

// NewRootCommandWith creates the root command with a custom session opener.
func NewRootCommandWith(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "pinctl",
		Short: "pinctl - pin places, highlight their countries",
		Long: `Operate a pinmap session from the terminal.

Places are pinned by clicking the map, here with "add" or inside "shell".
Every country that contains at least one place is highlighted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			logging.SetupWriter(cmd.ErrOrStderr(), level, "text")
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Storage, "storage", "", "storage driver override (memory|bolt|valkey|postgres)")
	cmd.PersistentFlags().StringVar(&opts.Origin, "origin", "", "origin the map is served from; local origins edit, others view")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewActivateCommand(opts))
	cmd.AddCommand(NewHighlightCommand(opts))
	cmd.AddCommand(NewModeCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewShellCommand(opts))

	return cmd
}

// OpenFromConfig loads the pinctl configuration, applies the flag overrides
// and builds the session.
func OpenFromConfig(ctx context.Context, opts *RootOptions, p ports.Prompter, n ports.Notifier) (*app.App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg, app.Options{Prompter: p, Notifier: n})
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load("pinctl")
	if err != nil {
		return nil, err
	}
	if opts.Storage != "" {
		cfg.Storage.Driver = opts.Storage
	}
	if opts.Origin != "" {
		cfg.Mode.Origin = opts.Origin
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
