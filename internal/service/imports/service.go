// Package imports runs catalog imports on behalf of the CLI and the HTTP API.
package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"catalog-importer/internal/checkpoint"
	"catalog-importer/internal/config"
	"catalog-importer/internal/importer"
	"catalog-importer/internal/lock"
	"catalog-importer/internal/media"
	"catalog-importer/internal/terms"
)

// ErrRunning is returned when an import is already in progress.
var ErrRunning = errors.New("an import is already running")

// Request describes one run.
type Request struct {
	File      string `json:"file"`
	BatchSize int    `json:"batchSize,omitempty"`
	KeyIndex  string `json:"keyIndex,omitempty"`
	// NoResume discards any saved checkpoint before starting.
	NoResume bool `json:"noResume,omitempty"`
}

// CheckpointFactory returns the checkpoint store for a source file.
type CheckpointFactory func(file string) (checkpoint.Store, error)

type Deps struct {
	Store       importer.Store
	TermStore   terms.Store
	Attacher    media.Attacher // nil disables media
	Checkpoints CheckpointFactory
	Locker      lock.Locker
}

type Service struct {
	cfg    config.Config
	deps   Deps
	logger *zap.Logger
	open   func(name string) (io.ReadCloser, error)

	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	current *importer.Reporter
	last    *importer.Stats
}

func New(cfg config.Config, deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Locker == nil {
		deps.Locker = lock.Noop{}
	}
	return &Service{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		open:   func(name string) (io.ReadCloser, error) { return os.Open(name) },
	}
}

// Run imports req.File and blocks until the run ends.
func (s *Service) Run(ctx context.Context, req Request) (importer.Stats, error) {
	rep, err := s.claim(req)
	if err != nil {
		return importer.Stats{}, err
	}
	return s.execute(ctx, req, rep)
}

// Start launches req in the background and returns its run id. ctx bounds
// the run, not the call.
func (s *Service) Start(ctx context.Context, req Request) (string, error) {
	rep, err := s.claim(req)
	if err != nil {
		return "", err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.execute(ctx, req, rep); err != nil {
			s.logger.Error("background import failed", zap.String("run_id", rep.RunID()), zap.Error(err))
		}
	}()
	return rep.RunID(), nil
}

// Wait blocks until background runs started by Start have returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Current returns the statistics of the running import, or of the last one
// when none is running.
func (s *Service) Current() (importer.Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return s.current.Snapshot(), true
	}
	if s.last != nil {
		return *s.last, true
	}
	return importer.Stats{}, false
}

func (s *Service) claim(req Request) (*importer.Reporter, error) {
	if req.File == "" {
		return nil, errors.New("file is required")
	}
	if req.BatchSize < 0 || req.BatchSize > config.MaxBatchSize {
		return nil, fmt.Errorf("batch size must be within 1..%d", config.MaxBatchSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, ErrRunning
	}
	s.running = true
	s.current = importer.NewReporter(req.File, s.logger)
	return s.current, nil
}

func (s *Service) release(stats importer.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.current = nil
	s.last = &stats
}

func (s *Service) execute(ctx context.Context, req Request, rep *importer.Reporter) (stats importer.Stats, err error) {
	defer func() { s.release(stats) }()

	if err := s.deps.Locker.Acquire(ctx); err != nil {
		rep.Fatal(err)
		return rep.Finalize(), err
	}
	defer func() {
		if rerr := s.deps.Locker.Release(context.WithoutCancel(ctx)); rerr != nil {
			s.logger.Warn("release import lock", zap.Error(rerr))
		}
	}()

	f, err := s.open(req.File)
	if err != nil {
		err = fmt.Errorf("open %s: %w", req.File, err)
		rep.Fatal(err)
		return rep.Finalize(), err
	}
	defer f.Close()

	var cp importer.Checkpointer
	if s.deps.Checkpoints != nil {
		store, err := s.deps.Checkpoints(req.File)
		if err != nil {
			rep.Fatal(err)
			return rep.Finalize(), err
		}
		mgr := checkpoint.NewManager(store, s.logger)
		if req.NoResume {
			if err := mgr.Clear(ctx); err != nil {
				rep.Fatal(err)
				return rep.Finalize(), err
			}
		}
		cp = mgr
	}

	opts := importer.OptionsFromConfig(s.cfg.Import)
	if req.BatchSize > 0 {
		opts.BatchSize = req.BatchSize
	}
	if req.KeyIndex != "" {
		opts.KeyIndex = req.KeyIndex
	}

	var mediaResolver importer.MediaResolver
	if s.deps.Attacher != nil && s.cfg.Media.Enabled {
		mediaResolver = media.NewResolver(s.deps.Attacher, s.cfg.Media.Concurrency, s.logger)
	}
	engine := importer.NewEngine(
		s.deps.Store,
		terms.NewResolver(s.deps.TermStore, s.logger),
		mediaResolver,
		cp,
		opts,
		s.logger,
	)
	s.logger.Info("import started",
		zap.String("run_id", rep.RunID()),
		zap.String("file", filepath.Base(req.File)),
		zap.Int("batch_size", opts.BatchSize),
	)
	return engine.Run(ctx, f, rep)
}
