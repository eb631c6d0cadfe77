package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"brdwizard/internal/artifact"
	"brdwizard/internal/export"
	"brdwizard/internal/logging"
	"brdwizard/internal/records"
	"brdwizard/internal/schema"
	"brdwizard/internal/validation"
)

type exportOptions struct {
	all    bool
	format string
	sink   string
	dir    string
}

func newExportCmd(o *rootOptions) *cobra.Command {
	eo := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export [index|id ...]",
		Short: "Export documents as markdown or paginated text",
		Long: `Renders documents and writes them to the configured sink: files in the
export directory, or objects in an S3 bucket. File names come from the
document title.`,
		Example: `  brd export 0
  brd export --all --format md
  brd export --all --sink s3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if eo.all == (len(args) > 0) {
				return errors.New("give one or more documents, or --all")
			}
			return o.withApp(true, func(ctx context.Context, a *app) error {
				return runExport(ctx, cmd.OutOrStdout(), a, eo, args)
			})
		},
	}
	cmd.Flags().BoolVar(&eo.all, "all", false, "Export every document")
	cmd.Flags().StringVarP(&eo.format, "format", "f", "", "md or txt (default from config)")
	cmd.Flags().StringVar(&eo.sink, "sink", "", "fs or s3 (default from config)")
	cmd.Flags().StringVarP(&eo.dir, "out", "o", "", "Output directory for the fs sink")
	return cmd
}

func runExport(ctx context.Context, out io.Writer, a *app, eo *exportOptions, idents []string) error {
	ex, err := a.exporter(eo.format)
	if err != nil {
		return err
	}
	sink, err := a.sink(ctx, eo.sink, eo.dir)
	if err != nil {
		return err
	}

	var recs []records.Record
	if eo.all {
		recs, err = a.records.LoadAll(ctx)
		if err != nil {
			return err
		}
	} else {
		for _, id := range idents {
			rec, err := a.records.LoadOne(ctx, records.ParseIdentifier(id))
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "Nothing to export")
		return nil
	}
	for _, rec := range recs {
		if note := incompleteNote(a.schema, rec); note != "" {
			logging.ExportWarn("%s", note)
			fmt.Fprintln(out, note)
		}
	}

	locations, err := exportAll(ctx, ex, sink, recs, a.cfg.Export.Workers)
	for i, loc := range locations {
		if loc != "" {
			fmt.Fprintf(out, "Exported %q -> %s\n", recs[i].Title(), loc)
		}
	}
	if err != nil {
		a.logger.Warn("Export incomplete", zap.Error(err))
		return fmt.Errorf("export failed: %w", err)
	}
	return nil
}

// exportAll renders and stores recs with at most workers in flight.
// locations[i] is empty when recs[i] failed. Names that collide get a
// numeric suffix so one document does not overwrite another.
func exportAll(ctx context.Context, ex export.Exporter, sink artifact.Sink, recs []records.Record, workers int) ([]string, error) {
	if workers <= 0 {
		workers = 1
	}
	timer := logging.StartTimer(logging.CategoryExport, "exportAll")
	defer timer.Stop()

	locations := make([]string, len(recs))
	var (
		mu    sync.Mutex
		names = make(map[string]int)
		errs  []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range recs {
		g.Go(func() error {
			art, err := ex.Export(rec)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", rec.ID, err))
				mu.Unlock()
				return nil
			}

			mu.Lock()
			names[art.Name]++
			if n := names[art.Name]; n > 1 {
				art.Name = dedupeName(art.Name, n)
			}
			mu.Unlock()

			loc, err := sink.Put(gctx, art)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", rec.ID, err))
				mu.Unlock()
				return nil
			}
			locations[i] = loc
			logging.AuditResult(logging.AuditExport, rec.ID, rec.OwnerID, nil)
			return nil
		})
	}
	_ = g.Wait()
	return locations, errors.Join(errs...)
}

// incompleteNote names the required answers rec is missing, or returns ""
// when it would pass every section. The document is exported either way.
func incompleteNote(sc *schema.Schema, rec records.Record) string {
	failures := validation.ValidateAll(sc, rec.Fields)
	if len(failures) == 0 {
		return ""
	}
	var keys []string
	for _, key := range sc.Keys() {
		if _, bad := failures[key]; bad {
			keys = append(keys, key)
		}
	}
	return fmt.Sprintf("Note: %q has %d incomplete field(s): %s", rec.Title(), len(keys), strings.Join(keys, ", "))
}

// dedupeName inserts "_n" before the extension.
func dedupeName(name string, n int) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return fmt.Sprintf("%s_%d%s", name[:i], n, name[i:])
		}
	}
	return fmt.Sprintf("%s_%d", name, n)
}
