package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"trackify/internal/domain/recurring"
)

func newDueCmd(root *rootOptions) *cobra.Command {
	var (
		userID int64
		asOf   string
	)

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List a user's templates due on or before a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseAsOfFlag(asOf)
			if err != nil {
				return err
			}

			ctx, cancel := root.context(cmd)
			defer cancel()

			b, err := root.open()
			if err != nil {
				return err
			}
			defer b.close()

			templates, err := recurring.NewEngine(b.templates, b.ledger).GetDueTemplates(ctx, userID, date)
			if err != nil {
				return err
			}
			return printTemplates(cmd.OutOrStdout(), templates)
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "User ID")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Date to check (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func newUpcomingCmd(root *rootOptions) *cobra.Command {
	var (
		userID int64
		days   int
		from   string
	)

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List a user's templates due within the next N days",
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := parseAsOfFlag(from)
			if err != nil {
				return err
			}

			ctx, cancel := root.context(cmd)
			defer cancel()

			b, err := root.open()
			if err != nil {
				return err
			}
			defer b.close()

			engine := recurring.NewEngine(b.templates, b.ledger).WithClock(func() time.Time { return today })
			templates, err := engine.GetUpcoming(ctx, userID, days)
			if err != nil {
				return err
			}
			return printTemplates(cmd.OutOrStdout(), templates)
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "User ID")
	cmd.Flags().IntVar(&days, "days", 7, "Window size in days")
	cmd.Flags().StringVar(&from, "from", "", "First day of the window (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func newEstimateCmd(root *rootOptions) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate a user's monthly recurring income and expense",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := root.context(cmd)
			defer cancel()

			b, err := root.open()
			if err != nil {
				return err
			}
			defer b.close()

			totals, err := recurring.NewEngine(b.templates, b.ledger).EstimateMonthlyTotals(ctx, userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Monthly income:  %s\n", totals.Income.StringFixed(2))
			fmt.Fprintf(out, "Monthly expense: %s\n", totals.Expense.StringFixed(2))
			fmt.Fprintf(out, "Monthly net:     %s\n", totals.Net().StringFixed(2))
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "User ID")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func newListCmd(root *rootOptions) *cobra.Command {
	var (
		userID     int64
		activeOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's recurring templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := root.context(cmd)
			defer cancel()

			b, err := root.open()
			if err != nil {
				return err
			}
			defer b.close()

			var filters recurring.Filters
			if activeOnly {
				active := true
				filters.IsActive = &active
			}

			templates, err := recurring.NewService(b.templates).List(ctx, userID, filters)
			if err != nil {
				return err
			}
			return printTemplates(cmd.OutOrStdout(), templates)
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "User ID")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only list active templates")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func printTemplates(w io.Writer, templates []*recurring.Template) error {
	if len(templates) == 0 {
		fmt.Fprintln(w, "No templates")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tAMOUNT\tFREQUENCY\tNEXT DUE\tACTIVE\tDESCRIPTION")
	for _, t := range templates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			t.ID, t.Type, t.Amount.StringFixed(2), t.Frequency,
			recurring.FormatDate(t.NextDueDate), t.IsActive, t.Label())
	}
	return tw.Flush()
}
