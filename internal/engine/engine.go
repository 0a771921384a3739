package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/hook"
	"github.com/gistmirror/gistmirror/internal/snippet"
	"github.com/gistmirror/gistmirror/internal/store"
	"github.com/gistmirror/gistmirror/internal/target"
	"github.com/gistmirror/gistmirror/internal/transport"
)

// Lister produces the source items a run operates on. The source
// package implements it; tests substitute their own.
type Lister interface {
	// List returns filtered item metadata. File contents may be absent.
	List(ctx context.Context) ([]snippet.SourceItem, error)
	// Detail fetches one item with file contents resident.
	Detail(ctx context.Context, id string) (*snippet.SourceItem, error)
}

// Target pairs a configured destination with its adapter.
type Target struct {
	Config  config.TargetConfig
	Adapter target.Adapter
}

// Outcome is the result of one (item, target) dispatch.
type Outcome struct {
	GistID     string
	Identifier string
	Target     string
	Provider   string
	Result     string // "created", "updated", "skipped", "failed"
	URL        string
	Err        error
}

// Report summarizes one run.
type Report struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	DryRun    bool
	Items     int
	Created   int
	Updated   int
	Skipped   int
	Failed    int
	Outcomes  []Outcome
}

// Engine drives one sync run: list, then for every (item, target)
// pair find, resolve, execute. A failing pair never aborts the run;
// only context cancellation and a failed source listing do.
type Engine struct {
	lister   Lister
	targets  []Target
	hooks    hook.Runner
	hookCfg  config.HooksConfig
	store    *store.Store // nil disables history
	throttle *transport.Throttle
	logger   *slog.Logger
	dryRun   bool
}

// Options configures a run.
type Options struct {
	DryRun bool
}

// New creates an engine over the given lister and targets.
func New(
	lister Lister,
	targets []Target,
	hooks hook.Runner,
	hookCfg config.HooksConfig,
	st *store.Store,
	throttle *transport.Throttle,
	logger *slog.Logger,
	opts Options,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if hooks == nil {
		hooks = hook.NopRunner{}
	}
	return &Engine{
		lister:   lister,
		targets:  targets,
		hooks:    hooks,
		hookCfg:  hookCfg,
		store:    st,
		throttle: throttle,
		logger:   logger,
		dryRun:   opts.DryRun,
	}
}

// Run executes one sync. The returned error is non-nil when the source
// listing fails, the run is cancelled, or at least one dispatch
// failed; the report is populated in every case.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
		DryRun:    e.dryRun,
	}
	logger := e.logger.With("run_id", report.RunID)

	logger.Info("starting sync", "targets", len(e.targets), "dry_run", e.dryRun)
	e.runHook(ctx, logger, "pre_sync", e.hookCfg.PreSync)

	items, err := e.lister.List(ctx)
	if err != nil {
		logger.Error("source listing failed", "error", err)
		e.runHook(ctx, logger, "on_error", e.hookCfg.OnError)
		report.EndTime = time.Now()
		e.recordRun(logger, report, "failed", err.Error())
		return report, fmt.Errorf("listing source gists: %w", err)
	}
	report.Items = len(items)
	logger.Info("source listing complete", "items", len(items))

	run := e.createRun(logger, report)

	var cancelErr error
dispatch:
	for i := range items {
		item := &items[i]
		for _, tgt := range e.targets {
			if err := ctx.Err(); err != nil {
				logger.Warn("sync cancelled, skipping remaining pairs", "error", err)
				cancelErr = err
				break dispatch
			}
			out := e.dispatch(ctx, logger, item, tgt)
			e.record(logger, run, report, out)
		}
	}

	report.EndTime = time.Now()

	// Terminal hooks run even after cancellation, detached from the
	// cancelled context so the command itself is not killed.
	hctx := context.WithoutCancel(ctx)
	status := "success"
	errMsg := ""
	if report.Failed > 0 {
		status = "partial"
		e.runHook(hctx, logger, "on_error", e.hookCfg.OnError)
	} else {
		e.runHook(hctx, logger, "post_sync", e.hookCfg.PostSync)
	}
	if cancelErr != nil {
		status = "failed"
		errMsg = cancelErr.Error()
	}
	e.finishRun(logger, run, report, status, errMsg)

	logger.Info("sync complete",
		"status", status,
		"items", report.Items,
		"created", report.Created,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.EndTime.Sub(report.StartTime).Round(time.Millisecond),
	)

	if cancelErr != nil {
		return report, cancelErr
	}
	if report.Failed > 0 {
		return report, fmt.Errorf("%d of %d operations failed", report.Failed, len(report.Outcomes))
	}
	return report, nil
}

// dispatch handles one (item, target) pair end to end.
func (e *Engine) dispatch(ctx context.Context, logger *slog.Logger, item *snippet.SourceItem, tgt Target) Outcome {
	identifier := snippet.DeriveIdentifier(*item)
	out := Outcome{
		GistID:     item.ID,
		Identifier: identifier,
		Target:     tgt.Config.Name,
		Provider:   tgt.Adapter.Provider(),
	}
	plog := logger.With("gist_id", item.ID, "identifier", identifier, "target", tgt.Config.Name)

	if e.throttle != nil {
		if err := e.throttle.Wait(ctx, tgt.Config.Name); err != nil {
			out.Result = "failed"
			out.Err = err
			return out
		}
	}

	existing, err := tgt.Adapter.Find(ctx, identifier)
	if err != nil {
		plog.Error("lookup failed", "error", err)
		out.Result = "failed"
		out.Err = &target.AdapterError{Target: tgt.Config.Name, Op: "find", Err: err}
		return out
	}

	action := target.Resolve(existing, tgt.Config.OnConflict)
	if action == target.ActionSkip {
		plog.Debug("existing object skipped", "policy", tgt.Config.OnConflict)
		out.Result = "skipped"
		return out
	}

	if !item.FilesLoaded {
		detail, err := e.lister.Detail(ctx, item.ID)
		if err != nil {
			plog.Error("detail fetch failed", "error", err)
			out.Result = "failed"
			out.Err = fmt.Errorf("fetching gist detail: %w", err)
			return out
		}
		// Cached on the shared item so later targets reuse it.
		*item = *detail
	}

	sn := snippet.Normalize(*item, tgt.Config.NormalizeOptions())

	// The write is a second request to the same target, so it waits
	// out the interval again. Multi-call fan-out inside an adapter is
	// the adapter's own concern.
	if e.throttle != nil {
		if err := e.throttle.Wait(ctx, tgt.Config.Name); err != nil {
			out.Result = "failed"
			out.Err = err
			return out
		}
	}

	var res *target.Result
	var op string
	switch action {
	case target.ActionCreate:
		op = "create"
		res, err = tgt.Adapter.Create(ctx, sn)
	case target.ActionUpdate:
		op = "update"
		res, err = tgt.Adapter.Update(ctx, *existing, sn)
	}

	if err != nil {
		if errors.Is(err, target.ErrNotApplicable) {
			plog.Debug("operation not applicable, treated as no-op", "op", op)
			out.Result = "skipped"
			return out
		}
		plog.Error("dispatch failed", "op", op, "error", err)
		out.Result = "failed"
		out.Err = &target.AdapterError{Target: tgt.Config.Name, Op: op, Err: err}
		return out
	}

	out.Result = res.Action
	out.URL = res.URL
	plog.Info("gist synced", "result", res.Action, "url", res.URL)
	return out
}

// record folds one outcome into counters, history, and the report.
func (e *Engine) record(logger *slog.Logger, run *store.SyncRun, report *Report, out Outcome) {
	report.Outcomes = append(report.Outcomes, out)
	switch out.Result {
	case "created":
		report.Created++
	case "updated":
		report.Updated++
	case "skipped":
		report.Skipped++
	default:
		report.Failed++
	}

	if e.store == nil || run == nil {
		return
	}
	rec := &store.Outcome{
		SyncRunID:  run.ID,
		GistID:     out.GistID,
		Identifier: out.Identifier,
		Target:     out.Target,
		Provider:   out.Provider,
		Result:     out.Result,
	}
	if out.Err != nil {
		rec.Error = out.Err.Error()
	}
	if err := e.store.AddOutcome(rec); err != nil {
		logger.Warn("recording outcome failed", "error", err)
	}
}

func (e *Engine) createRun(logger *slog.Logger, report *Report) *store.SyncRun {
	if e.store == nil {
		return nil
	}
	run := &store.SyncRun{
		RunID:     report.RunID,
		StartTime: report.StartTime,
		Items:     report.Items,
		DryRun:    report.DryRun,
		Status:    "running",
	}
	if err := e.store.CreateSyncRun(run); err != nil {
		logger.Warn("creating run record failed", "error", err)
		return nil
	}
	return run
}

func (e *Engine) finishRun(logger *slog.Logger, run *store.SyncRun, report *Report, status, errMsg string) {
	if e.store == nil || run == nil {
		return
	}
	run.EndTime = report.EndTime
	run.Items = report.Items
	run.Created = report.Created
	run.Updated = report.Updated
	run.Skipped = report.Skipped
	run.Failed = report.Failed
	run.Status = status
	run.ErrorMessage = errMsg
	if err := e.store.UpdateSyncRun(run); err != nil {
		logger.Warn("updating run record failed", "error", err)
	}
}

// recordRun writes a terminal run record when the run never got past
// listing.
func (e *Engine) recordRun(logger *slog.Logger, report *Report, status, errMsg string) {
	run := e.createRun(logger, report)
	e.finishRun(logger, run, report, status, errMsg)
}

// runHook executes one lifecycle command. Hook failures are logged and
// never affect the run.
func (e *Engine) runHook(ctx context.Context, logger *slog.Logger, name, command string) {
	if command == "" {
		return
	}
	if err := e.hooks.Run(ctx, command); err != nil {
		logger.Warn("hook failed", "hook", name, "error", err)
	}
}
