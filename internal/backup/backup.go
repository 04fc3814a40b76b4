// Package backup takes scheduled snapshots of the sqlite store.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/zulandar/yukki/internal/config"
	"go.uber.org/zap"
)

// DefaultKeep is the number of snapshots retained when Opts.Keep is zero.
const DefaultKeep = 7

const (
	filePrefix = "yukki-"
	fileSuffix = ".db"
	timeLayout = "20060102-150405"
)

// Source is a store that can write a consistent copy of itself.
type Source interface {
	Backup(ctx context.Context, path string) error
}

// Snapshot writes a timestamped copy of src into dir and returns its path.
func Snapshot(ctx context.Context, src Source, dir string, now time.Time) (string, error) {
	path := filepath.Join(dir, filePrefix+now.UTC().Format(timeLayout)+fileSuffix)
	if err := src.Backup(ctx, path); err != nil {
		return "", fmt.Errorf("backup: snapshot: %w", err)
	}
	return path, nil
}

// Prune removes all but the newest keep snapshots in dir.
func Prune(dir string, keep int) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("backup: prune: %w", err)
	}
	if len(files) <= keep {
		return nil, nil
	}
	// Names embed a sortable timestamp.
	sort.Strings(files)
	stale := files[:len(files)-keep]
	for _, f := range stale {
		if err := os.Remove(f); err != nil {
			return nil, fmt.Errorf("backup: prune: %w", err)
		}
	}
	return stale, nil
}

// NextDuration parses a 5-field cron expression and returns the duration
// from now until the next fire time. Returns 0 on parse error.
func NextDuration(expr string, now time.Time) time.Duration {
	sched, err := config.CronParser.Parse(expr)
	if err != nil {
		return 0
	}
	d := sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Opts holds parameters for creating a Scheduler.
type Opts struct {
	Source Source
	Cron   string
	Dir    string
	Keep   int
	Log    *zap.Logger
	Now    func() time.Time // defaults to time.Now
}

// Scheduler snapshots the store on a cron schedule.
type Scheduler struct {
	src  Source
	cron string
	dir  string
	keep int
	log  *zap.Logger
	now  func() time.Time
}

// NewScheduler creates a Scheduler.
func NewScheduler(opts Opts) (*Scheduler, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("backup: source is required")
	}
	if _, err := config.CronParser.Parse(opts.Cron); err != nil {
		return nil, fmt.Errorf("backup: cron %q: %w", opts.Cron, err)
	}
	if opts.Dir == "" {
		return nil, fmt.Errorf("backup: dir is required")
	}
	if opts.Keep <= 0 {
		opts.Keep = DefaultKeep
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		src:  opts.Source,
		cron: opts.Cron,
		dir:  opts.Dir,
		keep: opts.Keep,
		log:  opts.Log.Named("backup"),
		now:  opts.Now,
	}, nil
}

// Run blocks until ctx is cancelled, taking a snapshot at every fire time.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(NextDuration(s.cron, s.now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(NextDuration(s.cron, s.now()))
		}
	}
}

// RunOnce takes one snapshot and prunes old ones. Failures are logged.
func (s *Scheduler) RunOnce(ctx context.Context) {
	path, err := Snapshot(ctx, s.src, s.dir, s.now())
	if err != nil {
		s.log.Error("snapshot failed", zap.Error(err))
		return
	}
	s.log.Info("snapshot written", zap.String("path", path))

	removed, err := Prune(s.dir, s.keep)
	if err != nil {
		s.log.Warn("prune failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.log.Debug("pruned snapshots", zap.Strings("paths", removed))
	}
}
