package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trackify/internal/domain/recurring"
	"trackify/internal/shared/auth"
	"trackify/internal/shared/config"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := root.context(cmd)
			defer cancel()

			b, err := root.open()
			if err != nil {
				return err
			}
			defer b.close()

			if err := b.migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

func newNextDateCmd() *cobra.Command {
	var (
		date      string
		frequency string
		count     int
	)

	cmd := &cobra.Command{
		Use:   "next-date",
		Short: "Print the occurrences that follow a date",
		Long: `Print the next --count occurrences after --date, each stepped from the
previous one exactly as the processing run would.

Examples:
  admin next-date --date 2025-01-31 --frequency monthly
  admin next-date --date 2024-02-29 --frequency yearly --count 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := recurring.ParseDate(date)
			if err != nil {
				return err
			}
			f, err := recurring.ParseFrequency(frequency)
			if err != nil {
				return err
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			dates, err := occurrencesAfter(current, f, count)
			if err != nil {
				return err
			}
			for _, d := range dates {
				fmt.Fprintln(cmd.OutOrStdout(), recurring.FormatDate(d))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Starting date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&frequency, "frequency", "monthly", "daily, weekly, monthly or yearly")
	cmd.Flags().IntVar(&count, "count", 1, "Number of occurrences to print")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func occurrencesAfter(date time.Time, f recurring.Frequency, count int) ([]time.Time, error) {
	dates := make([]time.Time, 0, count)
	for range count {
		next, err := recurring.NextOccurrence(date, f)
		if err != nil {
			return nil, err
		}
		dates = append(dates, next)
		date = next
	}
	return dates, nil
}

func newTokenCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token for a user (development only)",
		Long: `Sign a 24h access token with JWT_SECRET for the given user. Send it as
"Authorization: Bearer <token>" or in the access_token cookie.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user-id must be positive")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			token, err := auth.NewJWT(cfg.JWT.Secret).Generate(userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "User ID to embed in the token")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}
