package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/WorldQL/mc-provisioner/internal/config"
	"github.com/WorldQL/mc-provisioner/internal/partition"
	"github.com/WorldQL/mc-provisioner/internal/persistence/indexdb"
	"github.com/WorldQL/mc-provisioner/internal/persistence/journal"
	"github.com/WorldQL/mc-provisioner/internal/region"
)

// worldFlags are shared by combine, optimize and prune.
type worldFlags struct {
	diameter   uint32
	slice      uint32
	avoid      bool
	radius     uint32
	combined   string
	dryRun     bool
	disableDB  bool
	journalDir string
}

func (w *worldFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Uint32Var(&w.diameter, "world-diameter", 0, "world diameter in blocks")
	f.Uint32Var(&w.slice, "slice-width", 0, "slice width in blocks, a multiple of 512")
	f.BoolVar(&w.avoid, "avoid-slicing-origin", false, "give the origin square to the first server")
	f.Uint32Var(&w.radius, "origin-radius", 0, "half width of the origin square, equal to slice-width")
	f.StringVar(&w.combined, "combined-directory", "", "directory holding the combined archive")
	f.BoolVar(&w.dryRun, "dry-run", false, "log file operations without performing them")
	f.BoolVar(&w.disableDB, "disable-db", false, "do not record this run in the ledger")
	f.StringVar(&w.journalDir, "journal-dir", "", "also write every file action to a compressed JSONL journal here")
}

func (w *worldFlags) overrides(cmd *cobra.Command) config.WorldOverrides {
	fl := cmd.Flags()
	var o config.WorldOverrides
	if fl.Changed("world-diameter") {
		o.WorldDiameter = &w.diameter
	}
	if fl.Changed("slice-width") {
		o.SliceWidth = &w.slice
	}
	if fl.Changed("avoid-slicing-origin") {
		o.AvoidSlicingOrigin = &w.avoid
	}
	if fl.Changed("origin-radius") {
		o.OriginRadius = &w.radius
	}
	if fl.Changed("combined-directory") {
		o.CombinedDirectory = &w.combined
	}
	return o
}

type worldOp func(r *partition.Runner) (partition.Report, error)

func (a *app) runWorld(cmd *cobra.Command, w *worldFlags, name string, op worldOp) error {
	g, err := a.global(cmd)
	if err != nil || g.ServerCount == 0 {
		return err
	}
	params, err := a.file.ResolveWorld(w.overrides(cmd))
	if err != nil {
		return err
	}
	params.CombinedDirectory = underRoot(g.Root, params.CombinedDirectory)

	r := &partition.Runner{
		Params:    params,
		Servers:   g.Servers(),
		LevelName: g.LevelName,
		Catalog:   region.NewCatalog(nil, a.logger),
		Logger:    a.logger.With(zap.String("operation", name)),
		DryRun:    w.dryRun,
	}

	var disable *bool
	if cmd.Flags().Changed("disable-db") {
		disable = &w.disableDB
	}
	var journalDir *string
	if cmd.Flags().Changed("journal-dir") {
		journalDir = &w.journalDir
	}
	idx := a.file.ResolveIndex(g.Root, disable, journalDir)

	var recorders partition.Recorders
	var run *indexdb.Run
	if !idx.Disabled {
		ledger, err := indexdb.OpenSQLite(idx.Path)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer ledger.Close()
		run, err = ledger.BeginRun(name, int(g.ServerCount), params, w.dryRun)
		if err != nil {
			return err
		}
		recorders = append(recorders, run)
	}
	if idx.JournalDir != "" && !w.dryRun {
		j, err := journal.Create(idx.JournalDir, name, time.Now())
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer func() {
			if err := j.Close(); err != nil {
				a.logger.Warn("failed to close journal", zap.String("path", j.Path()), zap.Error(err))
			}
		}()
		recorders = append(recorders, j)
	}
	if len(recorders) > 0 {
		r.Recorder = recorders
	}

	rep, opErr := op(r)
	if run != nil {
		if err := run.Finish(rep, opErr); err != nil {
			a.logger.Warn("failed to finish ledger run", zap.Error(err))
		}
	}
	if errors.Is(opErr, partition.ErrArchiveMissing) {
		a.logger.Error("you must run `provisioner combine` first", zap.String("combined_directory", r.Params.CombinedDirectory))
		return fmt.Errorf("%w; run combine first", opErr)
	}
	if opErr != nil {
		return opErr
	}

	for _, s := range rep.Servers {
		a.logger.Info("server done", zap.String("operation", name), zap.Object("report", s))
	}
	t := rep.Totals()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: archived=%d deleted=%d kept=%d border=%d unowned=%d warnings=%d\n",
		name, t.Archived, t.Deleted, t.Kept, t.Border, t.Unowned, t.Warnings)
	return nil
}

func newCombineCmd(a *app) *cobra.Command {
	w := &worldFlags{}
	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Rebuild the combined archive from the region files each server owns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWorld(cmd, w, "combine", (*partition.Runner).Combine)
		},
	}
	w.register(cmd)
	return cmd
}

func newOptimizeCmd(a *app) *cobra.Command {
	w := &worldFlags{}
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Trim each server to its own regions plus a border copied from the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWorld(cmd, w, "optimize", (*partition.Runner).Optimize)
		},
	}
	w.register(cmd)
	return cmd
}

func newPruneCmd(a *app) *cobra.Command {
	w := &worldFlags{}
	var keepBorder bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete region files owned by other servers without touching the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWorld(cmd, w, "prune", func(r *partition.Runner) (partition.Report, error) {
				return r.Prune(partition.PruneOptions{KeepBorder: keepBorder})
			})
		},
	}
	w.register(cmd)
	cmd.Flags().BoolVar(&keepBorder, "keep-border", true, "keep foreign regions that border this server's regions")
	return cmd
}
