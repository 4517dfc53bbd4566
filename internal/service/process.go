// Package service orchestrates the import pipeline: parse activity files in
// parallel, summarize them against the correction snapshot, persist, and
// reconcile provider records. It also carries provider syncs and table
// import/export.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"tracklog/internal/corrections"
	"tracklog/internal/parser"
	"tracklog/internal/reconcile"
	"tracklog/internal/store"
	"tracklog/internal/summary"
)

// activityExts are the file extensions the import walk picks up.
var activityExts = map[string]bool{
	".fit": true,
	".tcx": true,
	".gz":  true,
	".gmn": true,
	".txt": true,
	".xml": true,
}

// FileError is one file's failure inside a batch.
type FileError struct {
	File string `json:"file"`
	Err  error  `json:"-"`
}

func (e FileError) Error() string { return fmt.Sprintf("%s: %v", e.File, e.Err) }

// ProcessResult is the outcome of one import batch.
type ProcessResult struct {
	Files     int                `json:"files"`
	Processed int                `json:"processed"`
	Unchanged int                `json:"unchanged"`
	Failures  []FileError        `json:"failures,omitempty"`
	Reconcile []reconcile.Result `json:"reconcile,omitempty"`
}

// Progress reports batch progress to the caller, phase by phase.
type Progress struct {
	Phase     string // "parse", "persist", "reconcile"
	Total     int
	Completed int
	File      string
}

// ProcessService runs the file import pipeline.
type ProcessService struct {
	fs      afero.Fs
	db      *store.DB
	rec     *reconcile.Reconciler
	log     zerolog.Logger
	workers int
}

// NewProcessService creates the import pipeline. workers bounds the parse
// pool; values below 1 mean a single worker.
func NewProcessService(fs afero.Fs, db *store.DB, log zerolog.Logger, workers int) *ProcessService {
	if workers < 1 {
		workers = 1
	}
	return &ProcessService{
		fs:      fs,
		db:      db,
		rec:     reconcile.New(db, log),
		log:     log.With().Str("component", "process").Logger(),
		workers: workers,
	}
}

// parsed is one file's outcome from the parallel stage.
type parsed struct {
	path    string
	summary *summary.Summary
	points  []parser.Point
	skipped bool
	err     error
}

// ProcessDir walks the import directory and processes every activity file
// found under it.
func (s *ProcessService) ProcessDir(ctx context.Context, dir string, progress chan<- Progress) (*ProcessResult, error) {
	var paths []string
	err := afero.Walk(s.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if activityExts[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return s.ProcessFiles(ctx, paths, progress)
}

// ProcessFiles runs the pipeline over explicit paths: parallel parse and
// summarize, then persist in filename order, then reconcile all providers.
// Per-file failures never abort the batch.
func (s *ProcessService) ProcessFiles(ctx context.Context, paths []string, progress chan<- Progress) (*ProcessResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &ProcessResult{Files: len(paths)}
	if len(paths) == 0 {
		return result, nil
	}

	paths = append([]string(nil), paths...)
	sort.Slice(paths, func(i, j int) bool {
		return filepath.Base(paths[i]) < filepath.Base(paths[j])
	})

	table, err := s.correctionSnapshot()
	if err != nil {
		return nil, err
	}

	// Parse and summarize fully in parallel; files share no state.
	report(progress, Progress{Phase: "parse", Total: len(paths)})
	results := make([]parsed, len(paths))
	p := pool.New().WithMaxGoroutines(s.workers).WithContext(ctx)
	for i, path := range paths {
		p.Go(func(ctx context.Context) error {
			results[i] = s.parseOne(path, table)
			report(progress, Progress{Phase: "parse", Total: len(paths), Completed: i + 1, File: filepath.Base(path)})
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return result, err
	}

	// Persist serially in filename order; each commit is a checkpoint, so a
	// cancelled batch keeps everything already written.
	report(progress, Progress{Phase: "persist", Total: len(results)})
	for i, r := range results {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		switch {
		case r.err != nil:
			s.log.Error().Str("file", filepath.Base(r.path)).Err(r.err).Msg("file failed")
			result.Failures = append(result.Failures, FileError{File: filepath.Base(r.path), Err: r.err})
			continue
		case r.skipped:
			result.Unchanged++
			continue
		}

		// Upsert reads back the stored row id: on re-import of a known
		// filename the track must attach to the existing row, not the
		// freshly generated one.
		row := toStoreSummary(r.summary)
		if err := s.db.UpsertSummary(row); err != nil {
			result.Failures = append(result.Failures, FileError{File: filepath.Base(r.path), Err: err})
			continue
		}
		if len(r.points) > 0 {
			if err := s.db.SaveTrack(row.ID, toGPSPoints(row.ID, r.points)); err != nil {
				result.Failures = append(result.Failures, FileError{File: filepath.Base(r.path), Err: err})
				continue
			}
		}
		result.Processed++
		report(progress, Progress{Phase: "persist", Total: len(results), Completed: i + 1, File: filepath.Base(r.path)})
	}

	report(progress, Progress{Phase: "reconcile", Total: 1})
	recResults, err := s.rec.All(ctx)
	result.Reconcile = recResults
	if err != nil {
		return result, fmt.Errorf("reconciling: %w", err)
	}
	report(progress, Progress{Phase: "reconcile", Total: 1, Completed: 1})

	return result, nil
}

// Reconcile runs all reconciliation passes without importing anything.
func (s *ProcessService) Reconcile(ctx context.Context) ([]reconcile.Result, error) {
	return s.rec.All(ctx)
}

// parseOne reads, parses, and summarizes a single file. An unchanged content
// hash short-circuits: reprocessing identical bytes cannot change the stored
// summary.
func (s *ProcessService) parseOne(path string, table *corrections.Table) parsed {
	out := parsed{path: path}

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		out.err = fmt.Errorf("reading file: %w", err)
		return out
	}

	name := filepath.Base(path)
	stored, err := s.db.GetSummaryMD5(name)
	if err != nil {
		out.err = fmt.Errorf("checking stored hash: %w", err)
		return out
	}
	if stored != "" && stored == summary.ContentHash(data) {
		out.skipped = true
		return out
	}

	act, err := parser.Parse(name, data)
	if err != nil {
		out.err = err
		return out
	}
	sum, err := summary.Build(act, data, table)
	if err != nil {
		out.err = err
		return out
	}
	out.summary = sum
	out.points = act.Points
	return out
}

// correctionSnapshot loads the correction table once per run.
func (s *ProcessService) correctionSnapshot() (*corrections.Table, error) {
	rows, err := s.db.ListCorrections()
	if err != nil {
		return nil, fmt.Errorf("loading corrections: %w", err)
	}
	corrs := make([]corrections.Correction, len(rows))
	for i, r := range rows {
		corrs[i] = corrections.Correction{
			StartTime: r.StartTime,
			LapNumber: r.LapNumber,
			Sport:     r.Sport,
			Distance:  r.Distance,
			Duration:  r.Duration,
		}
	}
	return corrections.NewTable(corrs), nil
}

func toStoreSummary(s *summary.Summary) *store.Summary {
	return &store.Summary{
		ID:            s.ID,
		Filename:      s.Filename,
		Begin:         s.Begin,
		Sport:         s.Sport,
		TotalCalories: s.TotalCalories,
		TotalDistance: s.TotalDistance,
		TotalDuration: s.TotalDuration,
		TotalHRDur:    s.TotalHRDur,
		TotalHRDis:    s.TotalHRDis,
		MD5Sum:        s.MD5Sum,
	}
}

func toGPSPoints(summaryID string, points []parser.Point) []store.GPSPoint {
	out := make([]store.GPSPoint, len(points))
	for i, p := range points {
		out[i] = store.GPSPoint{
			SummaryID:         summaryID,
			PointIndex:        i,
			Time:              p.Time,
			Latitude:          p.Latitude,
			Longitude:         p.Longitude,
			Altitude:          p.Altitude,
			Distance:          p.Distance,
			HeartRate:         p.HeartRate,
			DurationFromLast:  p.DurationFromLast,
			DurationFromBegin: p.DurationFromBegin,
			SpeedMPS:          p.SpeedMPS,
		}
	}
	return out
}

func report(progress chan<- Progress, p Progress) {
	if progress != nil {
		progress <- p
	}
}
