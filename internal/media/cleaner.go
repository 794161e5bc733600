package media

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Remover deletes the blob behind a public URL.
type Remover interface {
	Remove(ctx context.Context, url string) error
}

// CleanerConfig sizes the cleanup queue.
type CleanerConfig struct {
	Workers       int
	QueueSize     int
	RemoveTimeout time.Duration
}

// Cleaner removes superseded attachments in the background. Scheduling never
// blocks the caller; anything that cannot be removed ends up in the ledger.
type Cleaner struct {
	remover Remover
	ledger  OrphanLedger
	logger  *zap.Logger
	cfg     CleanerConfig

	queue  chan string
	wg     sync.WaitGroup
	spills sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewCleaner creates a Cleaner. ledger may be nil, in which case failures are only logged.
func NewCleaner(remover Remover, ledger OrphanLedger, logger *zap.Logger, cfg CleanerConfig) *Cleaner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.RemoveTimeout <= 0 {
		cfg.RemoveTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{
		remover: remover,
		ledger:  ledger,
		logger:  logger,
		cfg:     cfg,
		queue:   make(chan string, cfg.QueueSize),
	}
}

// Start launches the workers.
func (c *Cleaner) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.closed {
		return
	}
	c.started = true
	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go c.work()
	}
	c.logger.Info("attachment cleaner started", zap.Int("workers", c.cfg.Workers))
}

// Schedule queues url for removal. A full queue hands url to the ledger on a
// separate goroutine so the caller never waits on it.
func (c *Cleaner) Schedule(url string) {
	if url == "" {
		return
	}
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		c.record(url, "cleaner stopped")
		return
	}
	select {
	case c.queue <- url:
	default:
		c.spills.Add(1)
		go func() {
			defer c.spills.Done()
			c.record(url, "cleanup queue full")
		}()
	}
	c.mu.RUnlock()
}

// Stop closes the queue and waits for the workers to drain it.
func (c *Cleaner) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.queue)
	started := c.started
	c.mu.Unlock()

	if !started {
		for url := range c.queue {
			c.record(url, "cleaner never started")
		}
		c.spills.Wait()
		return nil
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		c.spills.Wait()
		close(done)
	}()
	select {
	case <-done:
		c.logger.Info("attachment cleaner stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cleaner) work() {
	defer c.wg.Done()
	for url := range c.queue {
		c.process(url)
	}
}

func (c *Cleaner) process(url string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RemoveTimeout)
	defer cancel()

	if err := c.remover.Remove(ctx, url); err != nil {
		c.logger.Warn("attachment cleanup failed", zap.String("url", url), zap.Error(err))
		c.record(url, "remove failed")
	}
}

func (c *Cleaner) record(url, reason string) {
	if c.ledger == nil {
		c.logger.Warn("orphaned attachment dropped", zap.String("url", url), zap.String("reason", reason))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.ledger.Record(ctx, url); err != nil {
		c.logger.Error("failed to record orphaned attachment",
			zap.String("url", url),
			zap.String("reason", reason),
			zap.Error(err))
		return
	}
	c.logger.Info("orphaned attachment recorded", zap.String("url", url), zap.String("reason", reason))
}
