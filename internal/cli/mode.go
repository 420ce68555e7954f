package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

type modeResult struct {
	Mode   domain.Mode `json:"mode"`
	Origin string      `json:"origin"`
}

// NewModeCommand creates the mode command.
func NewModeCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mode",
		Short: "Show the mode the configured origin starts in",
		Long: `Show whether the map starts in edit or view mode. Local origins (file:
URLs, localhost, 127.0.0.1, ::1) edit; anything else only views.

Example:
  pinctl mode --origin https://maps.example.org`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := openSession(cmd, root)
			if err != nil {
				return err
			}
			defer a.Close()

			res := modeResult{Mode: a.Session.Modes().Mode(), Origin: a.Config.Mode.Origin}
			return newFormatter(cmd, root).Print(res, func(w io.Writer) {
				fmt.Fprintf(w, "%s (origin %s)\n", res.Mode, res.Origin)
			})
		},
	}
}
