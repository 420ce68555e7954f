package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	natsadapter "github.com/samirrijal/pinmap/internal/adapters/nats"
	"github.com/samirrijal/pinmap/internal/core/domain"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	NATSURL string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live map events from the event bus",
		Long: `Print every map change published by running pinmap servers until
interrupted. Requires nats.url (PINMAP_NATS_URL) or --nats-url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.NATSURL, "nats-url", "", "NATS server URL (overrides nats.url)")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	url := opts.NATSURL
	if url == "" {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			return WrapExitError(ExitCommandError, "load config", err)
		}
		url = cfg.NATS.URL
	}
	if url == "" {
		return NewExitError(ExitCommandError, "no NATS URL configured")
	}

	sub, err := natsadapter.NewSubscriber(url)
	if err != nil {
		return WrapExitError(ExitCommandError, "connect", err)
	}
	defer sub.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	jsonOut := opts.Format == "json"
	err = sub.SubscribeMapEvents(ctx, func(_ context.Context, ev *domain.MapEvent) error {
		if jsonOut {
			return json.NewEncoder(out).Encode(ev)
		}
		_, err := fmt.Fprintln(out, describeEvent(ev))
		return err
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "subscribe", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s on %s\n", natsadapter.SubjectAll, url)
	<-ctx.Done()
	return nil
}

func describeEvent(ev *domain.MapEvent) string {
	at := ev.At.Format("15:04:05")
	switch ev.Type {
	case domain.EventPlaceCreated, domain.EventPlaceUpdated, domain.EventPlaceDeleted:
		if ev.Place != nil {
			return fmt.Sprintf("%s %s %s (%.4f, %.4f) %q", at, ev.Type, ev.Place.ID, ev.Place.Lat, ev.Place.Lng, ev.Place.Description)
		}
	case domain.EventOverlaysRendered:
		return fmt.Sprintf("%s %s #%d [%s]", at, ev.Type, ev.Generation, strings.Join(ev.Countries, ", "))
	case domain.EventModeChanged:
		return fmt.Sprintf("%s %s %s", at, ev.Type, ev.Mode)
	}
	return fmt.Sprintf("%s %s", at, ev.Type)
}
