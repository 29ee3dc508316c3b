package smb

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/pkg/metrics"
)

// DefaultMaxSessions is the session ceiling used when PoolConfig leaves it unset.
const DefaultMaxSessions = 5

// PoolConfig configures a Pool.
type PoolConfig struct {
	// MaxSessions caps the number of sessions owned by the pool at any time.
	MaxSessions int

	// FreshnessWindow is how long a verified session is trusted without a probe.
	FreshnessWindow time.Duration
}

// SessionSource hands out sessions. *Pool implements it.
type SessionSource interface {
	Acquire(ctx context.Context) (*Session, error)
	Release(s *Session)
}

// Pool is a bounded pool of authenticated sessions.
//
// Sessions are created on demand up to MaxSessions. Idle sessions are verified
// before they are loaned and discarded if dead. Callers that find the pool
// exhausted wait in FIFO order; a released session is handed directly to the
// longest waiter.
type Pool struct {
	dialer  Dialer
	ep      Endpoint
	cfg     PoolConfig
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	idle    []*Session
	onLoan  map[*Session]struct{}
	active  int
	waiters []chan *Session
	nextID  uint64
	closed  bool
}

// PoolStats is a point-in-time view of a Pool.
type PoolStats struct {
	Active  int // sessions owned (idle + on loan + being created)
	Idle    int
	OnLoan  int
	Waiting int
	Max     int
}

// NewPool creates an empty pool. No session is opened until the first Acquire.
func NewPool(dialer Dialer, ep Endpoint, cfg PoolConfig, m *metrics.Metrics) *Pool {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = DefaultFreshnessWindow
	}

	return &Pool{
		dialer:  dialer,
		ep:      ep,
		cfg:     cfg,
		metrics: m,
		now:     time.Now,
		onLoan:  make(map[*Session]struct{}),
	}
}

// Endpoint returns the share this pool connects to.
func (p *Pool) Endpoint() Endpoint { return p.ep }

// MaxSessions returns the session ceiling.
func (p *Pool) MaxSessions() int { return p.cfg.MaxSessions }

// SafeConcurrencyLimit returns max(1, MaxSessions-1). Keeping one session in
// reserve lets a walk and a batch of reads share the pool without starving.
func (p *Pool) SafeConcurrencyLimit() int {
	return max(1, p.cfg.MaxSessions-1)
}

// Acquire returns a live session, blocking while the pool is exhausted.
//
// It fails with *PoolClosedError after Close, with *ConnectError or *AuthError
// when a new session cannot be established, or with ctx.Err() when ctx ends
// while waiting.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	start := p.now()
	defer func() { p.metrics.ObserveAcquire(p.now().Sub(start)) }()

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, p.closedError()
		}

		// (a) reuse an idle session
		if n := len(p.idle); n > 0 {
			s := p.idle[n-1]
			p.idle = p.idle[:n-1]
			p.mu.Unlock()

			if s, ok := p.checkOut(ctx, s); ok {
				return s, nil
			}
			continue
		}

		// (b) create a new one while under the ceiling
		if p.active < p.cfg.MaxSessions {
			p.active++
			p.nextID++
			id := p.nextID
			p.publishLocked()
			p.mu.Unlock()

			s, err := openSession(ctx, id, p.dialer, p.ep, p.cfg.FreshnessWindow, p.now)
			if err != nil {
				p.metrics.SessionOpenFailed()
				p.mu.Lock()
				p.active--
				p.wakeLocked(nil)
				p.publishLocked()
				p.mu.Unlock()
				return nil, err
			}
			p.metrics.SessionCreated()

			p.mu.Lock()
			if p.closed {
				p.active--
				p.publishLocked()
				p.mu.Unlock()
				s.Close()
				return nil, p.closedError()
			}
			p.onLoan[s] = struct{}{}
			p.publishLocked()
			p.mu.Unlock()
			return s, nil
		}

		// (c) wait for a release
		ch := make(chan *Session, 1)
		p.waiters = append(p.waiters, ch)
		p.publishLocked()
		p.mu.Unlock()

		logger.Debug("smb pool exhausted, waiting", logger.KeyActive, p.cfg.MaxSessions)

		select {
		case s := <-ch:
			if s == nil {
				// a slot was freed or the pool closed; re-evaluate
				continue
			}
			if s, ok := p.checkOut(ctx, s); ok {
				return s, nil
			}
		case <-ctx.Done():
			p.abandonWait(ch)
			return nil, ctx.Err()
		}
	}
}

// checkOut verifies s and records it as on loan. A dead session is evicted and
// false is returned so the caller retries.
func (p *Pool) checkOut(ctx context.Context, s *Session) (*Session, bool) {
	if err := s.Verify(ctx); err != nil {
		logger.Info("smb session failed verification, evicting",
			logger.KeySessionID, s.ID(), logger.KeyError, err)
		p.evict(s, metrics.ReasonVerify)
		return nil, false
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.evict(s, metrics.ReasonShutdown)
		return nil, false
	}
	p.onLoan[s] = struct{}{}
	p.publishLocked()
	p.mu.Unlock()
	return s, true
}

// Release returns a borrowed session. Live sessions go to the next waiter or
// the idle set; dead sessions are closed and their slot freed.
// Releasing a session the pool does not have on loan is a no-op.
func (p *Pool) Release(s *Session) {
	if s == nil {
		return
	}

	p.mu.Lock()
	if _, ok := p.onLoan[s]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.onLoan, s)

	if p.closed || !s.Alive() {
		reason := metrics.ReasonDead
		if p.closed {
			reason = metrics.ReasonShutdown
		}
		p.mu.Unlock()
		p.evict(s, reason)
		return
	}

	if len(p.waiters) > 0 {
		p.wakeLocked(s)
	} else {
		p.idle = append(p.idle, s)
	}
	p.publishLocked()
	p.mu.Unlock()
}

// evict closes s and frees its slot for a future Acquire.
func (p *Pool) evict(s *Session, reason string) {
	s.Close()
	p.metrics.SessionEvicted(reason)

	p.mu.Lock()
	p.active--
	p.wakeLocked(nil)
	p.publishLocked()
	p.mu.Unlock()
}

// wakeLocked hands s (or a nil "slot free" signal) to the oldest waiter.
func (p *Pool) wakeLocked(s *Session) {
	if len(p.waiters) == 0 {
		if s != nil {
			p.idle = append(p.idle, s)
		}
		return
	}
	ch := p.waiters[0]
	p.waiters = p.waiters[1:]
	ch <- s
}

// abandonWait removes ch from the wait queue after a cancelled wait. A session
// already handed over is passed on.
func (p *Pool) abandonWait(ch chan *Session) {
	p.mu.Lock()
	for i, w := range p.waiters {
		if w == ch {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			p.publishLocked()
			p.mu.Unlock()
			return
		}
	}

	// Already dequeued: forward whatever was delivered.
	var s *Session
	select {
	case s = <-ch:
	default:
	}
	if s != nil && !p.closed {
		p.wakeLocked(s)
		p.publishLocked()
		p.mu.Unlock()
		return
	}
	if s == nil {
		// pass the slot signal on
		p.wakeLocked(nil)
		p.publishLocked()
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.evict(s, metrics.ReasonShutdown)
}

// Close tears the pool down. Idle and on-loan sessions are closed, blocked
// callers are woken, and later Acquire calls fail with *PoolClosedError.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	toClose := make([]*Session, 0, len(p.idle)+len(p.onLoan))
	toClose = append(toClose, p.idle...)
	for s := range p.onLoan {
		toClose = append(toClose, s)
	}
	p.idle = nil
	p.onLoan = make(map[*Session]struct{})
	p.active -= len(toClose)

	for _, ch := range p.waiters {
		ch <- nil
	}
	p.waiters = nil
	p.publishLocked()
	p.mu.Unlock()

	for _, s := range toClose {
		s.Close()
		p.metrics.SessionEvicted(metrics.ReasonShutdown)
	}

	logger.Debug("smb pool closed", logger.KeyHost, p.ep.Host, logger.KeyCount, len(toClose))
	return nil
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Active:  p.active,
		Idle:    len(p.idle),
		OnLoan:  len(p.onLoan),
		Waiting: len(p.waiters),
		Max:     p.cfg.MaxSessions,
	}
}

func (p *Pool) publishLocked() {
	p.metrics.SetPoolState(p.active, len(p.idle), len(p.waiters))
}

func (p *Pool) closedError() error {
	return &PoolClosedError{Host: p.ep.Host, Share: p.ep.Share}
}
