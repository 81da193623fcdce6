package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/booksflow/booksflow/internal/cli"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage the category catalog",
	}
	cmd.AddCommand(categoriesListCmd())
	cmd.AddCommand(categoriesAddCmd())
	return cmd
}

func categoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					slog.Warn("Failed to close storage", "error", err)
				}
			}()

			categories, err := store.GetCategories(ctx)
			if err != nil {
				return err
			}
			if len(categories) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No categories defined. Add one with: booksflow categories add <name>"))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTitle(fmt.Sprintf("Categories (%d)", len(categories))))
			for _, c := range categories {
				line := "  " + c.Name
				if c.Description != "" {
					line += ": " + c.Description
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

func categoriesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			name := strings.Join(args, " ")
			description, _ := cmd.Flags().GetString("description")

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					slog.Warn("Failed to close storage", "error", err)
				}
			}()

			category, err := store.CreateCategory(ctx, name, description)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added category %q", category.Name)))
			return nil
		},
	}
	cmd.Flags().String("description", "", "one-line description shown to the classifier")
	return cmd
}
