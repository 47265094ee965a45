package backend

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	backends "github.com/jmtasker/agent-backends-go"
	"github.com/jmtasker/agent-backends-go/internal/logging"
)

const defaultMaxIdle = 2

// Pool manages reusable Docker backends so repeated sessions do not pay
// container startup cost. Released backends are parked up to a max idle
// count; beyond that they are removed.
type Pool struct {
	opts    []DockerOption
	maxIdle int
	log     zerolog.Logger

	mu     sync.Mutex
	idle   []*Docker
	closed bool
}

type poolConfig struct {
	maxIdle int
	log     *zerolog.Logger
	docker  []DockerOption
}

// PoolOption configures [NewPool].
type PoolOption func(*poolConfig)

// WithMaxIdle caps how many released backends are kept warm.
func WithMaxIdle(n int) PoolOption {
	return func(c *poolConfig) { c.maxIdle = n }
}

// WithPoolLogger sets the pool logger.
func WithPoolLogger(log zerolog.Logger) PoolOption {
	return func(c *poolConfig) { c.log = &log }
}

// WithDockerOptions forwards options to every backend the pool creates.
func WithDockerOptions(opts ...DockerOption) PoolOption {
	return func(c *poolConfig) { c.docker = append(c.docker, opts...) }
}

// NewPool creates an empty pool. Backends are created on demand.
func NewPool(opts ...PoolOption) *Pool {
	cfg := poolConfig{maxIdle: defaultMaxIdle}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pool{
		opts:    cfg.docker,
		maxIdle: cfg.maxIdle,
		log:     logging.Nop(),
	}
	if cfg.log != nil {
		p.log = *cfg.log
	}
	return p
}

// Acquire returns an idle backend or creates a fresh one.
func (p *Pool) Acquire(ctx context.Context) (*Docker, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, backends.ErrBackendClosed
	}
	if n := len(p.idle); n > 0 {
		b := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		p.log.Debug().Str("backend", b.ID()).Msg("reusing idle backend")
		return b, nil
	}
	p.mu.Unlock()

	b := NewDocker(p.opts...)
	if _, err := b.ensureStarted(ctx); err != nil {
		b.Close()
		return nil, err
	}
	p.log.Debug().Str("backend", b.ID()).Msg("created backend")
	return b, nil
}

// Release returns a backend to the pool, or removes it when the idle
// set is full or the pool is closed.
func (p *Pool) Release(b *Docker) error {
	if b == nil {
		return nil
	}
	p.mu.Lock()
	if !p.closed && len(p.idle) < p.maxIdle {
		p.idle = append(p.idle, b)
		p.mu.Unlock()
		p.log.Debug().Str("backend", b.ID()).Msg("backend parked")
		return nil
	}
	p.mu.Unlock()
	return b.Close()
}

// IdleCount reports how many backends are parked.
func (p *Pool) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Close removes all idle backends. Backends still acquired must be
// closed by their holders.
func (p *Pool) Close() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()

	var firstErr error
	for _, b := range idle {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
