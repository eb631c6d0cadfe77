package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// authCmd manages the signed-in identity
func newAuthCmd(o *rootOptions) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the signed-in identity",
		Long: `Signing in links your documents to a remote collection.

Available subcommands:
  login  - Sign in and push local-only documents to the remote
  logout - Sign out; documents stay in the local cache
  status - Show the current identity and sync mode`,
	}

	var user, name string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(true, func(ctx context.Context, a *app) error {
				id, err := a.ids.SignIn(user, name)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Signed in as %s\n", id.ID)

				rep := a.lastReport()
				switch {
				case !a.records.HasRemote():
					fmt.Fprintln(out, "No remote configured; documents stay local")
				case rep.Err != nil:
					fmt.Fprintf(out, "Sync incomplete: %v\nRun \"brd migrate\" to retry.\n", rep.Err)
				default:
					fmt.Fprintf(out, "Migrated %d document(s); %d in your collection\n", rep.Migrated, rep.Loaded)
				}
				return nil
			})
		},
	}
	loginCmd.Flags().StringVarP(&user, "user", "u", "", "User id (required)")
	loginCmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = loginCmd.MarkFlagRequired("user")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(true, func(ctx context.Context, a *app) error {
				if err := a.ids.SignOut(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(true, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if id, ok := a.ids.CurrentIdentity(); ok {
					since := time.UnixMilli(id.SignedInAt).Local().Format("2006-01-02 15:04")
					fmt.Fprintf(out, "✓ Signed in as %s (since %s)\n", id.ID, since)
				} else {
					fmt.Fprintln(out, "✗ Not signed in")
				}
				if a.records.HasRemote() {
					fmt.Fprintln(out, "✓ Remote sync active")
				} else {
					fmt.Fprintln(out, "✗ Remote sync inactive")
				}
				fmt.Fprintf(out, "Mode: %s\n", a.prefs.UserMode())
				return nil
			})
		},
	}

	authCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
	return authCmd
}
