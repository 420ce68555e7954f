package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samirrijal/pinmap/internal/app"
	"github.com/samirrijal/pinmap/internal/core/domain"
)

const shellHelp = `Commands:
  click <lat> <lng>   pin a place (asks for a description)
  activate <id>       edit or delete a place
  edit | view         switch mode
  list                list places
  highlight           show highlighted countries
  help                this text
  quit                leave the shell`

// NewShellCommand creates the shell command.
func NewShellCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive map session",
		Long:  "Run an interactive map session on the terminal.\n\n" + shellHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, term, err := openSession(cmd, root)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			a.Session.Start(ctx)
			writeCountries(out, highlighted(a))

			for {
				line, ok, err := term.Ask(ctx, domain.Question{Text: "pinmap>"})
				if err != nil || !ok {
					return err
				}
				fields := strings.Fields(line)
				if len(fields) == 0 {
					continue
				}
				if fields[0] == "quit" || fields[0] == "exit" {
					return nil
				}
				if err := shellCommand(cmd, a, fields); err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
				}
			}
		},
	}
}

func shellCommand(cmd *cobra.Command, a *app.App, fields []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch fields[0] {
	case "help":
		fmt.Fprintln(out, shellHelp)

	case "click":
		if len(fields) != 3 {
			return fmt.Errorf("usage: click <lat> <lng>")
		}
		at, err := parseLatLng(fields[1], fields[2])
		if err != nil {
			return err
		}
		place, err := a.View.Click(ctx, at)
		if err != nil {
			return err
		}
		if place == nil {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
		a.Session.Settle()
		fmt.Fprintf(out, "Added %s\n", place.ID)
		writeCountries(out, highlighted(a))

	case "activate":
		if len(fields) != 2 {
			return fmt.Errorf("usage: activate <id>")
		}
		m, ok := findMarker(a, fields[1])
		if !ok {
			return domain.ErrMarkerNotFound
		}
		if err := a.Session.Presenter().Activate(ctx, m.ID); err != nil {
			return err
		}
		a.Session.Settle()
		writeCountries(out, highlighted(a))

	case "edit", "view":
		a.Session.Modes().SetMode(ctx, fields[0] == "edit")

	case "list":
		writePlaces(out, a.Session.Store().List())

	case "highlight":
		writeCountries(out, highlighted(a))

	default:
		return fmt.Errorf("unknown command %q, try help", fields[0])
	}
	return nil
}

