package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"brdwizard/internal/artifact"
	s3sink "brdwizard/internal/artifact/s3"
	"brdwizard/internal/auth"
	"brdwizard/internal/config"
	"brdwizard/internal/draft"
	"brdwizard/internal/export"
	"brdwizard/internal/logging"
	"brdwizard/internal/records"
	"brdwizard/internal/remote/memory"
	"brdwizard/internal/remote/postgres"
	"brdwizard/internal/schema"
	"brdwizard/internal/store"
	"brdwizard/internal/ux"
	"brdwizard/internal/wizard"
)

// app wires the components one command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	schema  *schema.Schema
	kv      store.Store
	ids     *auth.FileProvider
	remote  records.Remote
	pg      *postgres.Store
	records *records.Store
	drafts  *draft.Store
	prefs   *ux.Preferences

	ctx          context.Context
	stopListener func()

	mu       sync.Mutex
	lastSync syncReport
}

// syncReport is what the sign-in reaction did.
type syncReport struct {
	Mode     ux.UserMode
	Migrated int
	Loaded   int
	Err      error
}

func openApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	sc, err := schema.Load(cfg.Schema.Path)
	if err != nil {
		return nil, err
	}

	kv, err := store.Open(cfg.Local.Driver, cfg.LocalPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	ids, err := auth.NewFileProvider(cfg.DataDir)
	if err != nil {
		kv.Close()
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		schema: sc,
		kv:     kv,
		ids:    ids,
		drafts: draft.New(kv),
		prefs:  ux.NewPreferences(kv),
		ctx:    ctx,
	}

	if cfg.Remote.Enabled {
		if err := a.openRemote(ctx); err != nil {
			// The remote is optional: work locally and let the next run retry.
			logger.Warn("Remote unavailable, continuing locally", zap.Error(err))
			logging.SyncWarn("Remote unavailable: %v", err)
		}
	}

	// records.New takes a nil interface, never a typed nil, when there is no remote.
	a.records = records.New(kv, ids, a.remote, records.WithSchema(sc))
	a.stopListener = ids.OnIdentityChanged(a.onIdentityChanged)
	return a, nil
}

func (a *app) openRemote(ctx context.Context) error {
	switch a.cfg.Remote.Driver {
	case "memory":
		a.remote = memory.New()
		return nil
	case "postgres", "":
		tctx, cancel := context.WithTimeout(ctx, a.cfg.GetRemoteTimeout())
		defer cancel()
		pg, err := postgres.Open(tctx, a.cfg.Remote.DSN)
		if err != nil {
			return err
		}
		a.pg = pg
		a.remote = pg
		return nil
	default:
		return fmt.Errorf("unknown remote driver %q", a.cfg.Remote.Driver)
	}
}

// onIdentityChanged moves the user mode and, on sign-in, pushes local
// records up and refreshes the cache from the remote.
func (a *app) onIdentityChanged(id auth.Identity, ok bool) {
	report := a.react(a.ctx, ok)
	if report.Err != nil {
		a.logger.Warn("Identity change handling incomplete", zap.String("user", id.ID), zap.Error(report.Err))
	}
	a.mu.Lock()
	a.lastSync = report
	a.mu.Unlock()
}

func (a *app) react(ctx context.Context, signedIn bool) syncReport {
	var rep syncReport
	ev := ux.EventSignOut
	if signedIn {
		ev = ux.EventSignIn
	}
	mode, err := a.prefs.Apply(ev)
	rep.Mode = mode
	if err != nil {
		rep.Err = err
		return rep
	}
	if !signedIn || !a.records.HasRemote() {
		return rep
	}

	n, err := a.records.MigrateToRemote(ctx)
	rep.Migrated = n
	if err != nil {
		// Leave the cache as it is; "brd migrate" retries the failed records.
		rep.Err = err
		return rep
	}
	recs, err := a.records.LoadAll(ctx)
	if err != nil {
		rep.Err = err
		return rep
	}
	rep.Loaded = len(recs)
	return rep
}

func (a *app) lastReport() syncReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSync
}

// afterLocalSave records the first save made without an identity.
func (a *app) afterLocalSave() {
	if _, ok := a.ids.CurrentIdentity(); ok {
		return
	}
	if _, err := a.prefs.Apply(ux.EventLocalSave); err != nil {
		a.logger.Warn("Failed to update user mode", zap.Error(err))
	}
}

func (a *app) newController() *wizard.Controller {
	return wizard.New(a.schema, a.drafts, a.records)
}

func (a *app) exporter(format string) (export.Exporter, error) {
	if format == "" {
		format = a.cfg.Export.Format
	}
	return export.New(export.Format(format), a.schema, a.cfg.Export.PageLines)
}

func (a *app) sink(ctx context.Context, kind, dir string) (artifact.Sink, error) {
	ec := a.cfg.Export
	if kind != "" {
		ec.Sink = kind
	}
	if dir == "" {
		dir = a.cfg.ExportDir()
	}
	return artifact.Open(ctx, ec, dir, s3sink.Open)
}

func (a *app) Close() error {
	if a.stopListener != nil {
		a.stopListener()
	}
	var errs []error
	if err := a.ids.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.kv.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
