package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samirrijal/pinmap/internal/adapters/prompt"
	"github.com/samirrijal/pinmap/internal/app"
	"github.com/samirrijal/pinmap/internal/core/domain"
)

// openSession builds the session with prompts on the command's stdin and
// acknowledgements on its stderr. Flag-supplied answers go through the
// scripted prompter and anything else falls through to the terminal.
func openSession(cmd *cobra.Command, opts *RootOptions) (*app.App, *prompt.Terminal, error) {
	term := prompt.NewTerminal(cmd.InOrStdin(), cmd.ErrOrStderr())
	a, err := opts.open(cmd.Context(),
		opts,
		prompt.Scripted{Fallback: term},
		prompt.WriterNotifier{W: cmd.ErrOrStderr()},
	)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open session", err)
	}
	return a, term, nil
}

func parseLatLng(latArg, lngArg string) (domain.LatLng, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latArg), 64)
	if err != nil || !(domain.LatLng{Lat: lat}).Valid() {
		return domain.LatLng{}, NewExitError(ExitCommandError, fmt.Sprintf("invalid latitude %q", latArg))
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngArg), 64)
	if err != nil || !(domain.LatLng{Lng: lng}).Valid() {
		return domain.LatLng{}, NewExitError(ExitCommandError, fmt.Sprintf("invalid longitude %q", lngArg))
	}
	return domain.LatLng{Lat: lat, Lng: lng}, nil
}

// highlighted returns the distinct country codes on the overlay layer.
func highlighted(a *app.App) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, o := range a.View.Overlays() {
		if !seen[o.CountryCode] {
			seen[o.CountryCode] = true
			out = append(out, o.CountryCode)
		}
	}
	return out
}

// findMarker resolves a place ID or a marker ID to the rendered marker.
func findMarker(a *app.App, id string) (domain.Marker, bool) {
	if m, ok := a.View.MarkerForPlace(id); ok {
		return m, true
	}
	return a.View.Marker(id)
}

func writePlace(w io.Writer, p domain.Place) {
	desc := p.Description
	if desc == "" {
		desc = "-"
	}
	fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%s\n", p.ID, p.Lat, p.Lng, desc)
}

func writeCountries(w io.Writer, codes []string) {
	if len(codes) == 0 {
		fmt.Fprintln(w, "Highlighted: none")
		return
	}
	fmt.Fprintf(w, "Highlighted: %s\n", strings.Join(codes, ", "))
}
