package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrBacklogFull is returned by Submit when every buffer slot is taken.
	ErrBacklogFull = errors.New("job backlog full")
	// ErrClosed is returned by Submit before Start or after Drain.
	ErrClosed = errors.New("job pool closed")
)

// Job is a unit of background work.
type Job struct {
	ID      string
	Kind    string
	Payload any
	Attempt int
	Queued  time.Time
}

// Handler processes a job. A returned error schedules another attempt.
type Handler func(context.Context, Job) error

// PoolConfig sizes a Pool. Zero values pick small defaults.
type PoolConfig struct {
	Workers     int
	Backlog     int
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	Logger      *zap.Logger
}

// Pool feeds submitted jobs to a fixed set of workers. Jobs still buffered when Drain is
// called are processed before the workers exit.
type Pool struct {
	name    string
	handle  Handler
	cfg     PoolConfig
	logger  *zap.Logger
	backlog chan Job

	mu      sync.RWMutex
	open    bool
	workCtx context.Context
	abort   context.CancelFunc
	done    sync.WaitGroup
}

// NewPool prepares a pool; nothing runs until Start.
func NewPool(name string, handle Handler, cfg PoolConfig) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Backlog < 1 {
		cfg.Backlog = 64 * cfg.Workers
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.Backoff {
		cfg.MaxBackoff = 30 * cfg.Backoff
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pool{
		name:    name,
		handle:  handle,
		cfg:     cfg,
		logger:  cfg.Logger.Named("jobs").With(zap.String("pool", name)),
		backlog: make(chan Job, cfg.Backlog),
	}
}

// Start spawns the workers. Later calls do nothing.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open || p.workCtx != nil {
		return
	}
	p.workCtx, p.abort = context.WithCancel(ctx)
	p.open = true
	p.done.Add(p.cfg.Workers)
	for i := 0; i < p.cfg.Workers; i++ {
		go p.loop()
	}
	p.logger.Debug("pool started", zap.Int("workers", p.cfg.Workers))
}

// Submit buffers job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.open {
		return fmt.Errorf("%s: %w", p.name, ErrClosed)
	}
	if job.Queued.IsZero() {
		job.Queued = time.Now().UTC()
	}
	select {
	case p.backlog <- job:
		return nil
	default:
		return fmt.Errorf("%s: %w", p.name, ErrBacklogFull)
	}
}

// Drain stops intake and waits for buffered jobs to finish. When ctx ends first the
// workers are cancelled and the number of abandoned jobs is logged.
func (p *Pool) Drain(ctx context.Context) error {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return nil
	}
	p.open = false
	close(p.backlog)
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.done.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		p.abort()
		return nil
	case <-ctx.Done():
		p.abort()
		<-finished
		p.logger.Warn("pool drain cut short", zap.Int("abandoned", len(p.backlog)))
		return ctx.Err()
	}
}

func (p *Pool) loop() {
	defer p.done.Done()
	for job := range p.backlog {
		if p.workCtx.Err() != nil {
			return
		}
		p.run(job)
	}
}

func (p *Pool) run(job Job) {
	wait := p.cfg.Backoff
	for {
		job.Attempt++
		err := p.handle(p.workCtx, job)
		if err == nil {
			return
		}
		fields := []zap.Field{zap.String("job_id", job.ID), zap.String("kind", job.Kind), zap.Int("attempt", job.Attempt), zap.Error(err)}
		if job.Attempt >= p.cfg.MaxAttempts {
			p.logger.Error("job abandoned", fields...)
			return
		}
		p.logger.Warn("job failed", fields...)

		timer := time.NewTimer(wait)
		select {
		case <-p.workCtx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if wait *= 2; wait > p.cfg.MaxBackoff {
			wait = p.cfg.MaxBackoff
		}
	}
}
