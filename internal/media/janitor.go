package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JanitorConfig controls how often recorded orphans are retried.
type JanitorConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// Janitor periodically retries removal of blobs recorded in the ledger.
type Janitor struct {
	remover Remover
	ledger  OrphanLedger
	logger  *zap.Logger
	cfg     JanitorConfig
	cron    *cron.Cron
}

// NewJanitor registers the sweep on a cron schedule of cfg.Interval.
func NewJanitor(remover Remover, ledger OrphanLedger, logger *zap.Logger, cfg JanitorConfig) (*Janitor, error) {
	if cfg.Interval < time.Second {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	j := &Janitor{
		remover: remover,
		ledger:  ledger,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := j.Sweep(ctx); err != nil {
			j.logger.Error("orphan sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule orphan sweep %q: %w", schedule, err)
	}

	return j, nil
}

// Start launches the cron scheduler.
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info("orphan janitor started", zap.Duration("interval", j.cfg.Interval))
}

// Stop waits for a running sweep or ctx, whichever comes first.
func (j *Janitor) Stop(ctx context.Context) {
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	j.logger.Info("orphan janitor stopped")
}

// Sweep retries every recorded orphan once.
func (j *Janitor) Sweep(ctx context.Context) error {
	entries, err := j.ledger.Entries(ctx)
	if err != nil {
		return err
	}

	var result error
	for url := range entries {
		if err := ctx.Err(); err != nil {
			return errors.Join(result, err)
		}
		if err := j.retry(ctx, url); err != nil {
			result = errors.Join(result, err)
		}
	}
	return result
}

func (j *Janitor) retry(ctx context.Context, url string) error {
	removeErr := j.remover.Remove(ctx, url)
	if removeErr == nil {
		j.logger.Info("orphaned attachment removed", zap.String("url", url))
		return j.ledger.Forget(ctx, url)
	}

	attempts, err := j.ledger.Attempt(ctx, url)
	if err != nil {
		return err
	}
	if attempts >= j.cfg.MaxAttempts || errors.Is(removeErr, ErrUnrecognizedURL) {
		j.logger.Warn("giving up on orphaned attachment",
			zap.String("url", url),
			zap.Int("attempts", attempts),
			zap.Error(removeErr))
		return j.ledger.Forget(ctx, url)
	}

	j.logger.Debug("orphan removal failed, will retry",
		zap.String("url", url),
		zap.Int("attempts", attempts),
		zap.Error(removeErr))
	return nil
}
