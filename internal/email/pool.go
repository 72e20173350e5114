package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type connState int

const (
	stateIdle connState = iota
	stateInUse
	stateBroken
)

func (s connState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateInUse:
		return "in_use"
	case stateBroken:
		return "broken"
	default:
		return "unknown"
	}
}

type pooledConn struct {
	id       uint64
	conn     Conn
	mech     Mechanism
	state    connState
	lastUsed time.Time
}

// PoolConfig configuration for the connection pool
type PoolConfig struct {
	Size           int
	AcquireTimeout time.Duration
	IdleTimeout    time.Duration // idle connections older than this are replaced
}

// PoolStats is a snapshot of pool occupancy
type PoolStats struct {
	Open  int
	Idle  int
	InUse int
}

// Pool hands out authenticated IMAP connections for exclusive use.
//
// slots holds one token per open session and bounds the pool; idle holds
// sessions ready for reuse. mu guards bookkeeping only and is never held
// while blocking on either channel.
type Pool struct {
	dialer Dialer
	auth   *Authenticator
	cfg    PoolConfig
	logger *slog.Logger

	slots chan struct{}
	idle  chan *pooledConn
	done  chan struct{}

	mu     sync.Mutex
	closed bool
	inUse  int
	nextID uint64

	now func() time.Time
}

// NewPool creates a pool; connections are opened lazily
func NewPool(dialer Dialer, auth *Authenticator, cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 5
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 10 * time.Second
	}

	return &Pool{
		dialer: dialer,
		auth:   auth,
		cfg:    cfg,
		logger: logger.With("component", "imap_pool"),
		slots:  make(chan struct{}, cfg.Size),
		idle:   make(chan *pooledConn, cfg.Size),
		done:   make(chan struct{}),
		now:    time.Now,
	}
}

// Handle is a checked-out connection. Release must be called exactly once;
// further calls are no-ops.
type Handle struct {
	pool *Pool
	pc   *pooledConn
	once sync.Once
}

// Session returns the connection for IMAP commands
func (h *Handle) Session() Session {
	return h.pc.conn
}

// MarkBroken keeps the connection from being reused after Release
func (h *Handle) MarkBroken() {
	h.pc.state = stateBroken
}

// Release returns the connection to the pool, or closes it if broken
func (h *Handle) Release() {
	h.once.Do(func() {
		h.pool.release(h.pc)
	})
}

// Acquire checks out a connection, creating one if the pool has room.
// It fails with ErrPoolTimeout once the acquire timeout elapses.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	defer cancel()

	for {
		if p.isClosed() {
			return nil, ErrPoolClosed
		}

		// Reuse before creating
		select {
		case pc := <-p.idle:
			if h := p.checkout(pc); h != nil {
				return h, nil
			}
			continue
		default:
		}

		select {
		case pc := <-p.idle:
			if h := p.checkout(pc); h != nil {
				return h, nil
			}
		case p.slots <- struct{}{}:
			pc, err := p.create(ctx)
			if err != nil {
				<-p.slots
				return nil, err
			}
			return p.handle(pc), nil
		case <-p.done:
			return nil, ErrPoolClosed
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				p.logger.Warn("acquire timed out", "timeout", p.cfg.AcquireTimeout, "in_use", p.Stats().InUse)
				return nil, ErrPoolTimeout
			}
			return nil, fmt.Errorf("acquire connection: %w", ctx.Err())
		}
	}
}

// With runs fn on a checked-out connection and always releases it.
// A connection whose operation failed or panicked is discarded.
func (p *Pool) With(ctx context.Context, fn func(Session) error) error {
	h, err := p.Acquire(ctx)
	if err != nil {
		return err
	}

	broken := true
	defer func() {
		if broken {
			h.MarkBroken()
		}
		h.Release()
	}()

	err = fn(h.Session())
	broken = breaksConnection(err)
	if broken {
		p.logger.Warn("discarding connection after failed operation", "conn_id", h.pc.id, "mechanism", h.pc.mech, "error", err)
	}
	return err
}

// Ping checks that a connection can be obtained
func (p *Pool) Ping(ctx context.Context) error {
	return p.With(ctx, func(Session) error { return nil })
}

// Stats returns current occupancy
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Open:  len(p.slots),
		Idle:  len(p.idle),
		InUse: p.inUse,
	}
}

// Close logs out idle connections; checked-out ones are closed on release
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)

	var idle []*pooledConn
	for len(p.idle) > 0 {
		idle = append(idle, <-p.idle)
	}
	p.mu.Unlock()

	p.logger.Info("closing connection pool", "idle", len(idle))
	for _, pc := range idle {
		p.discard(pc)
	}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// checkout marks pc in use, or discards it and returns nil if it went stale
func (p *Pool) checkout(pc *pooledConn) *Handle {
	if p.stale(pc) {
		p.logger.Debug("discarding stale connection", "conn_id", pc.id, "mechanism", pc.mech)
		p.discard(pc)
		return nil
	}
	return p.handle(pc)
}

func (p *Pool) handle(pc *pooledConn) *Handle {
	p.mu.Lock()
	p.inUse++
	p.mu.Unlock()

	pc.state = stateInUse
	return &Handle{pool: p, pc: pc}
}

func (p *Pool) stale(pc *pooledConn) bool {
	if loggedOut(pc.conn) {
		return true
	}
	return p.cfg.IdleTimeout > 0 && p.now().Sub(pc.lastUsed) > p.cfg.IdleTimeout
}

// create dials and authenticates a new connection; the caller holds a slot
func (p *Pool) create(ctx context.Context) (*pooledConn, error) {
	conn, err := p.dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	mech, err := p.auth.Authenticate(conn)
	if err != nil {
		closeConn(conn)
		p.logger.Error("failed to authenticate new connection", "error", err)
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.mu.Unlock()

	p.logger.Info("opened IMAP connection", "conn_id", id, "mechanism", mech)
	return &pooledConn{
		id:       id,
		conn:     conn,
		mech:     mech,
		state:    stateIdle,
		lastUsed: p.now(),
	}, nil
}

func (p *Pool) release(pc *pooledConn) {
	p.mu.Lock()
	p.inUse--
	if pc.state != stateBroken && !p.closed {
		pc.state = stateIdle
		pc.lastUsed = p.now()
		select {
		case p.idle <- pc:
			p.mu.Unlock()
			return
		default:
		}
	}
	p.mu.Unlock()

	p.discard(pc)
}

// discard closes pc and frees its slot once the session is gone
func (p *Pool) discard(pc *pooledConn) {
	pc.state = stateBroken
	closeConn(pc.conn)
	<-p.slots
}
