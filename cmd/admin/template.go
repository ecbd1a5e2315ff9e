package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"trackify/internal/domain/recurring"
)

type createOptions struct {
	userID      int64
	categoryID  string
	txType      string
	amount      string
	frequency   string
	startDate   string
	endDate     string
	description string
}

func newCreateCmd(root *rootOptions) *cobra.Command {
	opts := &createOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a recurring template",
		Example: `  admin create --user-id 1 --category <id> --type expense --amount 1200 \
    --frequency monthly --start 2025-01-01 --description Rent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(opts.amount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", opts.amount, err)
			}
			start, err := recurring.ParseDate(opts.startDate)
			if err != nil {
				return err
			}
			params := recurring.CreateParams{
				CategoryID:  opts.categoryID,
				Type:        recurring.TransactionType(opts.txType),
				Amount:      amount,
				Description: opts.description,
				Frequency:   recurring.Frequency(opts.frequency),
				StartDate:   start,
			}
			if opts.endDate != "" {
				end, err := recurring.ParseDate(opts.endDate)
				if err != nil {
					return err
				}
				params.EndDate = &end
			}

			ctx, cancel := root.context(cmd)
			defer cancel()

			b, err := root.open()
			if err != nil {
				return err
			}
			defer b.close()

			template, err := recurring.NewService(b.templates).Create(ctx, opts.userID, params)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created template %s (next due %s)\n",
				template.ID, recurring.FormatDate(template.NextDueDate))
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.userID, "user-id", 0, "Owner user ID")
	cmd.Flags().StringVar(&opts.categoryID, "category", "", "Category ID")
	cmd.Flags().StringVar(&opts.txType, "type", "expense", "income or expense")
	cmd.Flags().StringVar(&opts.amount, "amount", "", "Amount per occurrence")
	cmd.Flags().StringVar(&opts.frequency, "frequency", "monthly", "daily, weekly, monthly or yearly")
	cmd.Flags().StringVar(&opts.startDate, "start", "", "First occurrence (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.endDate, "end", "", "Last allowed occurrence (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.description, "description", "", "Description for generated transactions")
	for _, name := range []string{"user-id", "category", "amount", "start"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newCategoryCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}

	var (
		id           string
		userID       int64
		name         string
		categoryType string
	)

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add or rename a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := recurring.TransactionType(categoryType)
			if !t.IsValid() {
				return fmt.Errorf("--type must be 'income' or 'expense'")
			}
			if id == "" {
				id = uuid.NewString()
			}

			ctx, cancel := root.context(cmd)
			defer cancel()

			b, err := root.open()
			if err != nil {
				return err
			}
			defer b.close()

			if err := b.addCategory(ctx, id, userID, name, categoryType); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Category %s saved as %s\n", name, id)
			return nil
		},
	}

	addCmd.Flags().StringVar(&id, "id", "", "Category ID (default: generated UUID)")
	addCmd.Flags().Int64Var(&userID, "user-id", 0, "Owner user ID")
	addCmd.Flags().StringVar(&name, "name", "", "Category name")
	addCmd.Flags().StringVar(&categoryType, "type", "expense", "income or expense")
	_ = addCmd.MarkFlagRequired("user-id")
	_ = addCmd.MarkFlagRequired("name")

	cmd.AddCommand(addCmd)
	return cmd
}
