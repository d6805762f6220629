package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/dayplan/internal/planner"
	"github.com/nhle/dayplan/internal/recur"
	"github.com/nhle/dayplan/internal/theme"
)

func agendaCmd() *cobra.Command {
	var user, date string

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Print a day's blocks and tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := cfg.Location()
			if date == "" {
				date = time.Now().In(loc).Format(time.DateOnly)
			}
			if err := planner.ValidateDate(date); err != nil {
				return err
			}

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			day, blocks, err := recur.NewMaterializer(s, loc, logger).Materialize(cmd.Context(), user, date)
			if err != nil {
				return err
			}
			fmt.Println(theme.RenderAgenda(*day, blocks))
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().StringVar(&date, "date", "", "day to show (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
