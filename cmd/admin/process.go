package main

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"trackify/internal/domain/recurring"
)

type processDueOptions struct {
	userIDs []int64
	all     bool
	asOf    string
}

func newProcessDueCmd(root *rootOptions) *cobra.Command {
	opts := &processDueOptions{}

	cmd := &cobra.Command{
		Use:   "process-due",
		Short: "Materialize due recurring templates into the ledger",
		Long: `Write one ledger transaction for every active template due on or before
--as-of (default today) and advance its next due date.

Unlike the HTTP endpoint, --as-of may be in the future; use it to backfill or
to rehearse a run against a copy of the data.

Examples:
  admin process-due --user-id 1
  admin process-due --user-id 1,2,3 --as-of 2025-03-01
  admin process-due --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcessDue(cmd, root, opts)
		},
	}

	cmd.Flags().Int64SliceVar(&opts.userIDs, "user-id", nil, "User ID(s) to process (comma-separated for multiple)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Process every user with a due template")
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "Process templates due on or before this date (YYYY-MM-DD, default today)")

	return cmd
}

func runProcessDue(cmd *cobra.Command, root *rootOptions, opts *processDueOptions) error {
	if len(opts.userIDs) == 0 && !opts.all {
		return fmt.Errorf("must specify --user-id or --all")
	}

	asOf, err := parseAsOfFlag(opts.asOf)
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

	userIDs := opts.userIDs
	if opts.all {
		userIDs, err = b.templates.ListUserIDsDue(ctx, asOf)
		if err != nil {
			return fmt.Errorf("failed to list users with due templates: %w", err)
		}
		log.Printf("Found %d users with templates due by %s", len(userIDs), recurring.FormatDate(asOf))
	}

	out := cmd.OutOrStdout()
	if len(userIDs) == 0 {
		fmt.Fprintln(out, "No users with due templates")
		return nil
	}

	engine := recurring.NewEngine(b.templates, b.ledger)
	startTime := time.Now()
	failedUsers := 0

	for _, userID := range userIDs {
		result, err := engine.ProcessDue(ctx, userID, asOf)
		if err != nil {
			fmt.Fprintf(out, "\n=== User %d ===\n  Error: %v\n", userID, err)
			failedUsers++
			continue
		}
		printProcessResult(out, userID, asOf, result)
		if len(result.Errors) > 0 {
			failedUsers++
		}
	}

	log.Printf("Processing completed in %v", time.Since(startTime))

	if failedUsers > 0 {
		return fmt.Errorf("%d of %d users had failures", failedUsers, len(userIDs))
	}
	return nil
}

func printProcessResult(w io.Writer, userID int64, asOf time.Time, result *recurring.ProcessResult) {
	fmt.Fprintf(w, "\n=== User %d ===\n", userID)
	fmt.Fprintf(w, "  As of:     %s\n", recurring.FormatDate(asOf))
	fmt.Fprintf(w, "  Status:    %s\n", result.Status())
	fmt.Fprintf(w, "  Processed: %d/%d\n", result.Processed, result.Due)
	for _, itemErr := range result.Errors {
		fmt.Fprintf(w, "  Failed:    %s: %v\n", itemErr.TemplateID, itemErr.Err)
	}
}
