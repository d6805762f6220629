package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/dayplan/internal/api"
	"github.com/nhle/dayplan/internal/auth"
	"github.com/nhle/dayplan/internal/cms"
	"github.com/nhle/dayplan/internal/ratelimit"
)

func serveCmd() *cobra.Command {
	var noTrigger bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the post generation trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if cfg.Auth.ServiceToken == "" {
				token, err := auth.GenerateServiceToken()
				if err != nil {
					return err
				}
				cfg.Auth.ServiceToken = token
				logger.Info("no service token configured, using one for this process only")
			}

			limiter := ratelimit.New(s, cfg.RateLimit.RequestsPerHour, logger)
			completer := newCompleter()

			srv := api.NewServer(api.Options{
				Store:     s,
				Auth:      auth.NewAuthenticator(s, limiter, cfg.Auth, logger),
				Generator: cms.NewGenerator(s, completer, cfg.Generation, logger),
				Completer: completer,
				Location:  cfg.Location(),
				Logger:    logger,
				Server:    cfg.Server,
			})

			var trigger *cms.Trigger
			if !noTrigger {
				trigger, err = cms.NewTrigger(s, cfg.Generation, cfg.Auth, logger)
				if err != nil {
					return err
				}
				if completer == nil {
					trigger.DisableDispatch()
					logger.Warn("no API key, scheduled posts will not be dispatched")
				}
				err = trigger.Every("@hourly", "prune rate windows", func(ctx context.Context) error {
					n, err := limiter.Prune(ctx)
					if n > 0 {
						logger.Debug("pruned rate windows", zap.Int("count", n))
					}
					return err
				})
				if err != nil {
					return err
				}
				trigger.Start()
			}

			serveErr := srv.ListenAndServe(ctx)

			if trigger != nil {
				stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
				defer cancel()
				if err := trigger.Stop(stopCtx); err != nil {
					serveErr = errors.Join(serveErr, err)
				}
			}
			return serveErr
		},
	}

	cmd.Flags().BoolVar(&noTrigger, "no-trigger", false, "do not run the scheduled generation trigger")
	return cmd
}
