package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"brdwizard/cmd/brd/ui"
	"brdwizard/internal/records"
	"brdwizard/internal/ux"
	"brdwizard/internal/wizard"
)

func newNewCmd(o *rootOptions) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new document in the interactive wizard",
		Long: `Opens the wizard on the first section. If a draft is cached from an
earlier session its answers are filled in; use --fresh to start empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(false, func(ctx context.Context, a *app) error {
				if fresh {
					a.drafts.Clear()
				}
				return runInteractive(ctx, cmd.OutOrStdout(), a, wizard.ModeCreate, "")
			})
		},
	}
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Discard any cached draft first")
	return cmd
}

func newEditCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <index|id>",
		Short: "Edit a saved document in the interactive wizard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(false, func(ctx context.Context, a *app) error {
				rec, err := a.records.LoadOne(ctx, records.ParseIdentifier(args[0]))
				if err != nil {
					return err
				}
				return runInteractive(ctx, cmd.OutOrStdout(), a, wizard.ModeEdit, rec.ID)
			})
		},
	}
}

func runInteractive(ctx context.Context, out io.Writer, a *app, mode wizard.Mode, recordID string) error {
	ctrl := a.newController()
	if err := ctrl.Start(ctx, mode, recordID); err != nil {
		return err
	}

	// Pick up sign-ins made from another terminal while the wizard is open.
	if err := a.ids.Start(ctx); err != nil {
		a.logger.Warn("Session watch unavailable", zap.Error(err))
	}

	res, err := ui.RunWizard(ctx, ctrl, ui.Options{
		Theme:   a.prefs.Theme(),
		OnTheme: a.prefs.SetTheme,
	})
	if err != nil {
		return err
	}

	switch {
	case res.Submitted:
		a.afterLocalSave()
		fmt.Fprintf(out, "Saved %s\n", res.RecordID)
	case res.Discarded:
		fmt.Fprintln(out, "Draft discarded")
	default:
		fmt.Fprintln(out, "Draft kept; run \"brd new\" to continue")
	}
	return nil
}

// parseAssignments turns key=value pairs into a map. Values may contain "=".
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q (want key=value)", p)
		}
		out[k] = strings.ReplaceAll(v, `\n`, "\n")
	}
	return out, nil
}

func newFillCmd(o *rootOptions) *cobra.Command {
	var (
		sets   []string
		editID string
	)
	cmd := &cobra.Command{
		Use:   "fill --set key=value ...",
		Short: "Complete the wizard without the interactive screen",
		Long: `Sets field values and walks every section in order, exactly as the
interactive wizard would. Values merge over the cached draft (or over the
edited record with --edit). If a section does not validate, the failures
are printed, the answers so far stay in the draft, and the command fails.

A literal \n inside a value becomes a line break.`,
		Example: `  brd fill --set title="Billing revamp" --set businessOwner=Kim ...
  brd fill --edit 0 --set priority=High`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			return o.withApp(true, func(ctx context.Context, a *app) error {
				return runFill(ctx, cmd.OutOrStdout(), a, values, editID)
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment key=value (repeatable)")
	cmd.Flags().StringVar(&editID, "edit", "", "Edit the record with this index or id instead of creating one")
	return cmd
}

func runFill(ctx context.Context, out io.Writer, a *app, values map[string]string, editIdent string) error {
	ctrl := a.newController()
	mode, recordID := wizard.ModeCreate, ""
	if editIdent != "" {
		rec, err := a.records.LoadOne(ctx, records.ParseIdentifier(editIdent))
		if err != nil {
			return err
		}
		mode, recordID = wizard.ModeEdit, rec.ID
	}
	if err := ctrl.Start(ctx, mode, recordID); err != nil {
		return err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := ctrl.SetValue(k, values[k]); err != nil {
			_ = ctrl.CheckpointAll()
			return err
		}
	}
	// Later sections are only reached after earlier ones validate; keep their
	// answers now so a failure below does not lose them.
	if err := ctrl.CheckpointAll(); err != nil {
		return err
	}

	for {
		res, err := ctrl.Next(ctx)
		if err != nil {
			return err
		}
		if len(res.Failures) > 0 {
			sec := ctrl.Section()
			cur, total := ctrl.Progress()
			fmt.Fprintf(out, "Section %d of %d (%s) is incomplete:\n", cur, total, sec.Title)
			for _, f := range sec.Fields {
				if r, bad := res.Failures[f.Key]; bad {
					fmt.Fprintf(out, "  %s: %s\n", f.Key, r.Reason)
				}
			}
			return errors.New("validation failed; answers kept in the draft")
		}
		if res.Submitted {
			a.afterLocalSave()
			fmt.Fprintf(out, "Saved %s\n", res.RecordID)
			return nil
		}
	}
}

// currentTheme is used by commands that render to the terminal.
func currentTheme(a *app) ux.Theme {
	return a.prefs.Theme()
}
