package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"brdwizard/cmd/brd/ui"
	"brdwizard/internal/export"
	"brdwizard/internal/records"
	"brdwizard/internal/ux"
)

func newListCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved documents, most recently updated first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(true, func(ctx context.Context, a *app) error {
				recs, err := a.records.LoadAll(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(recs) == 0 {
					fmt.Fprintln(out, "No documents yet. Run \"brd new\" to start one.")
					return nil
				}
				fmt.Fprintln(out, renderRecordTable(recs, currentTheme(a)))
				return nil
			})
		},
	}
}

func renderRecordTable(recs []records.Record, theme ux.Theme) string {
	p := ui.PaletteFor(theme)
	rows := make([][]string, 0, len(recs))
	for i, r := range recs {
		title := r.Title()
		if title == "" {
			title = "(untitled)"
		}
		rows = append(rows, []string{strconv.Itoa(i), title, formatTime(r.LastUpdated), r.ID})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(p.Border)).
		Headers("#", "TITLE", "UPDATED", "ID").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Foreground(p.Primary).Bold(true)
			}
			return s
		})
	return t.Render()
}

func formatTime(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

func newShowCmd(o *rootOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <index|id>",
		Short: "Preview a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(true, func(ctx context.Context, a *app) error {
				rec, err := a.records.LoadOne(ctx, records.ParseIdentifier(args[0]))
				if err != nil {
					return err
				}
				md := export.NewMarkdown(a.schema).Render(rec)
				if raw {
					fmt.Fprint(cmd.OutOrStdout(), md)
					return nil
				}
				rendered, err := renderMarkdown(md, currentTheme(a))
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), rendered)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown source instead of the rendered preview")
	return cmd
}

func renderMarkdown(md string, theme ux.Theme) (string, error) {
	style := "dark"
	if theme == ux.ThemeLight {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	return out, nil
}

func newDeleteCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <index|id>",
		Aliases: []string{"rm"},
		Short:   "Delete a document locally and from the remote collection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(true, func(ctx context.Context, a *app) error {
				rec, err := a.records.Delete(ctx, records.ParseIdentifier(args[0]))
				if err != nil {
					return fmt.Errorf("delete failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q (%s)\n", rec.Title(), rec.ID)
				return nil
			})
		},
	}
}

func newMigrateCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Push local-only documents to your remote collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(true, func(ctx context.Context, a *app) error {
				n, err := a.records.MigrateToRemote(ctx)
				out := cmd.OutOrStdout()
				var merr *records.MigrationError
				switch {
				case errors.Is(err, records.ErrRemoteUnavailable):
					return errors.New("migration needs a configured remote and a signed-in user (brd auth login)")
				case errors.As(err, &merr):
					fmt.Fprintf(out, "Migrated %d document(s); %d failed\n", n, len(merr.Failed))
					return err
				case err != nil:
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(out, "Migrated %d document(s)\n", n)
				return nil
			})
		},
	}
}
