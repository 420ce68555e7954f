package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/samirrijal/pinmap/internal/adapters/prompt"
	"github.com/samirrijal/pinmap/internal/core/domain"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Description string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <lat> <lng>",
		Short: "Click the map to pin a place",
		Long: `Click the map at <lat> <lng>. Without --description the description is
asked on the terminal; an empty answer cancels. Put -- before the
coordinates when one of them is negative.

Example:
  pinctl add 48.8584 2.2945 --description "Eiffel Tower"
  pinctl add --description "London" -- 51.5074 -0.1278`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "place description")

	return cmd
}

type addResult struct {
	Place       domain.Place `json:"place"`
	Highlighted []string     `json:"highlighted"`
}

func runAdd(cmd *cobra.Command, opts *AddOptions, latArg, lngArg string) error {
	at, err := parseLatLng(latArg, lngArg)
	if err != nil {
		return err
	}

	a, _, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	a.Session.Restore(ctx)
	if cmd.Flags().Changed("description") {
		ctx = prompt.WithAnswers(ctx, prompt.Say(opts.Description))
	}

	place, err := a.View.Click(ctx, at)
	if errors.Is(err, domain.ErrClickIgnored) {
		return NewExitError(ExitFailure, fmt.Sprintf("map is in view mode for origin %q", a.Config.Mode.Origin))
	}
	if err != nil {
		return err
	}
	if place == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled, no place added.")
		return nil
	}

	a.Session.Settle()
	res := addResult{Place: *place, Highlighted: highlighted(a)}
	return newFormatter(cmd, opts.RootOptions).Print(res, func(w io.Writer) {
		fmt.Fprintf(w, "Added %s\n", place.ID)
		writeCountries(w, res.Highlighted)
	})
}
