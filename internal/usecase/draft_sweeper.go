package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
)

var errSweepSkipped = errors.New("sweep turn skipped")

type DraftSweeperConfig struct {
	Interval time.Duration
	Workers  int
	Batch    int
}

type SweepResult struct {
	Found   int `json:"found"`
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// DraftSweeper polls for overdue turns and auto-picks them. It is the
// fallback when the delayed job queue is disabled or lost a message.
type DraftSweeper struct {
	jobs   *DraftJobService
	clock  clockwork.Clock
	cfg    DraftSweeperConfig
	logger *logging.Logger
}

func NewDraftSweeper(jobs *DraftJobService, clock clockwork.Clock, cfg DraftSweeperConfig, logger *logging.Logger) *DraftSweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}

	return &DraftSweeper{
		jobs:   jobs,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *DraftSweeper) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "draft sweeper started", "interval", s.cfg.Interval, "workers", s.cfg.Workers)
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "draft sweeper stopped")
			return nil
		case <-ticker.Chan():
			result, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.WarnContext(ctx, "draft sweep failed", "error", err)
				continue
			}
			if result.Found > 0 {
				s.logger.InfoContext(ctx, "draft sweep finished",
					"found", result.Found,
					"applied", result.Applied,
					"skipped", result.Skipped,
					"failed", result.Failed,
				)
			}
		}
	}
}

func (s *DraftSweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DraftSweeper.SweepOnce")
	defer span.End()

	turns, err := s.jobs.draftSvc.ListOverdueTurns(ctx, s.cfg.Batch)
	if err != nil {
		traceFailure(ctx, err)
		return SweepResult{}, err
	}
	result := SweepResult{Found: len(turns)}
	if len(turns) == 0 {
		return result, nil
	}

	workerCount := s.cfg.Workers
	if workerCount > len(turns) {
		workerCount = len(turns)
	}
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return SweepResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		applied atomic.Int32
		skipped atomic.Int32
		failed  atomic.Int32
		workers sync.WaitGroup
	)
	for _, turn := range turns {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			switch err := s.jobs.runTurn(ctx, turn); {
			case err == nil:
				applied.Add(1)
			case errors.Is(err, errSweepSkipped):
				skipped.Add(1)
			default:
				failed.Add(1)
			}
		}); err != nil {
			workers.Done()
			return SweepResult{}, fmt.Errorf("submit turn to worker pool: %w", err)
		}
	}
	workers.Wait()

	result.Applied = int(applied.Load())
	result.Skipped = int(skipped.Load())
	result.Failed = int(failed.Load())
	return result, nil
}
