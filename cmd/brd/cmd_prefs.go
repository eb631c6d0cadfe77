package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"brdwizard/internal/ux"
)

func newThemeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the colour theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(true, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					fmt.Fprintln(out, a.prefs.Theme())
					return nil
				}
				var next ux.Theme
				if args[0] == "toggle" {
					next = a.prefs.Theme().Toggle()
				} else {
					t, err := ux.ParseTheme(args[0])
					if err != nil {
						return err
					}
					next = t
				}
				if err := a.prefs.SetTheme(next); err != nil {
					return err
				}
				fmt.Fprintf(out, "Theme set to %s\n", next)
				return nil
			})
		},
	}
}

func newDraftCmd(o *rootOptions) *cobra.Command {
	draftCmd := &cobra.Command{
		Use:   "draft",
		Short: "Inspect or clear the cached draft",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the cached draft as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(true, func(ctx context.Context, a *app) error {
				d := a.drafts.Load()
				if len(d) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No draft")
					return nil
				}
				data, err := json.MarshalIndent(d, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the cached draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(true, func(ctx context.Context, a *app) error {
				a.drafts.Clear()
				fmt.Fprintln(cmd.OutOrStdout(), "Draft cleared")
				return nil
			})
		},
	}

	draftCmd.AddCommand(showCmd, clearCmd)
	return draftCmd
}
