package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/dayplan/internal/cms"
)

func sweepCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one generation tick: reset stale posts and dispatch due ones",
		Long: `Run one generation tick without the scheduler.

Due posts are sent to generation.endpoint, which must be a running
"dayplan serve" sharing auth.service_token with this configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Auth.ServiceToken == "" {
				return fmt.Errorf("auth.service_token must be set for the server to accept dispatched posts")
			}

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			trigger, err := cms.NewTrigger(s, cfg.Generation, cfg.Auth, logger)
			if err != nil {
				return err
			}
			if newCompleter() == nil {
				trigger.DisableDispatch()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, err := trigger.Tick(ctx)
			if err != nil {
				return err
			}
			if err := trigger.Wait(ctx); err != nil {
				return fmt.Errorf("waiting for dispatches: %w", err)
			}

			fmt.Printf("reset %d, failed %d, dispatched %d\n", res.Reset, res.Failed, res.Dispatched)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Minute, "maximum time to wait for dispatched posts")
	return cmd
}
