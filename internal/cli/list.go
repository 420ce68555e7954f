package cli

import (
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// NewListCommand creates the list command.
func NewListCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored places",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := openSession(cmd, root)
			if err != nil {
				return err
			}
			defer a.Close()

			places := a.Session.Store().Load(cmd.Context())
			return newFormatter(cmd, root).Print(places, func(w io.Writer) {
				writePlaces(w, places)
			})
		},
	}
}

func writePlaces(w io.Writer, places []domain.Place) {
	if len(places) == 0 {
		io.WriteString(w, "No places.\n")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	io.WriteString(tw, "ID\tLAT\tLNG\tDESCRIPTION\n")
	for _, p := range places {
		writePlace(tw, p)
	}
	tw.Flush()
}
