package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/samirrijal/pinmap/internal/adapters/prompt"
	"github.com/samirrijal/pinmap/internal/core/domain"
)

// ActivateOptions holds flags for the activate command.
type ActivateOptions struct {
	*RootOptions
	Action      string
	Description string
}

// NewActivateCommand creates the activate command.
func NewActivateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ActivateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "activate <place-or-marker-id>",
		Short: "Edit or delete a pinned place",
		Long: `Activate the marker of a place. You choose [1] to edit the description or
[2] to delete the marker; flags answer the prompts ahead of time.

Example:
  pinctl activate 3f0c... --action 1 --description "Big Ben"
  pinctl activate 3f0c... --action 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivate(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Action, "action", "a", "", "1 to edit the description, 2 to delete")
	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "new description for --action 1")

	return cmd
}

type activateResult struct {
	Place       *domain.Place `json:"place,omitempty"`
	Deleted     bool          `json:"deleted"`
	Highlighted []string      `json:"highlighted"`
}

func runActivate(cmd *cobra.Command, opts *ActivateOptions, id string) error {
	a, _, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	a.Session.Restore(ctx)

	m, ok := findMarker(a, id)
	if !ok {
		return NewExitError(ExitFailure, "no place or marker "+id)
	}

	var answers []prompt.Answer
	if cmd.Flags().Changed("action") {
		answers = append(answers, prompt.Say(opts.Action))
		if cmd.Flags().Changed("description") {
			answers = append(answers, prompt.Say(opts.Description))
		}
	}
	if len(answers) > 0 {
		ctx = prompt.WithAnswers(ctx, answers...)
	}

	err = a.Session.Presenter().Activate(ctx, m.ID)
	if errors.Is(err, domain.ErrMarkerNotInteractive) {
		return NewExitError(ExitFailure, fmt.Sprintf("place %s is read-only in view mode", m.PlaceID))
	}
	if err != nil {
		return err
	}

	a.Session.Settle()
	// Edits do not move markers, so nothing has resolved the highlights yet.
	if a.Session.Resolver().Generation() == 0 {
		a.Session.Refresh(ctx)
	}
	res := activateResult{Highlighted: highlighted(a)}
	if p, ok := a.Session.Store().Get(m.PlaceID); ok {
		res.Place = &p
	} else {
		res.Deleted = true
	}
	return newFormatter(cmd, opts.RootOptions).Print(res, func(w io.Writer) {
		if res.Deleted {
			fmt.Fprintf(w, "Deleted %s\n", m.PlaceID)
		} else {
			writePlace(w, *res.Place)
		}
		writeCountries(w, res.Highlighted)
	})
}
