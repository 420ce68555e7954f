package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// NewHighlightCommand creates the highlight command.
func NewHighlightCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "highlight",
		Short: "Resolve the countries containing the stored places",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := openSession(cmd, root)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.Session.Start(cmd.Context())
			return newFormatter(cmd, root).Print(res, func(w io.Writer) {
				writeCountries(w, res.Countries)
				fmt.Fprintf(w, "Overlays: %d  Failures: %d  Took: %s\n", res.Overlays, res.Failures, res.Duration.Round(time.Millisecond))
			})
		},
	}
}
