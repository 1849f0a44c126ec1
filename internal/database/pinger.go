package database

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Persistence mode names reported by pingers.
const (
	ModePostgres  = "postgres"
	ModeFilestore = "file-store"
)

// Pinger is the connectivity capability the health checker probes. It is
// selected once at startup based on configuration: a real pool when a
// connection string is present, the file-store stand-in otherwise.
type Pinger interface {
	// Ping issues a trivial round-trip query. A nil return means the
	// persistence layer is reachable.
	Ping(ctx context.Context) error

	// Mode names the active persistence mode for operator-facing detail.
	Mode() string
}

// PoolPinger probes a live PostgreSQL pool.
type PoolPinger struct {
	pool *pgxpool.Pool
}

// NewPoolPinger wraps a connection pool as a Pinger.
func NewPoolPinger(pool *pgxpool.Pool) *PoolPinger {
	return &PoolPinger{pool: pool}
}

// Ping runs SELECT 1 against the pool.
func (p *PoolPinger) Ping(ctx context.Context) error {
	var one int
	return p.pool.QueryRow(ctx, "SELECT 1").Scan(&one)
}

// Mode returns "postgres".
func (p *PoolPinger) Mode() string {
	return ModePostgres
}

// FilestorePinger is the stand-in capability used when no database is
// configured. File-store mode is a valid operating mode, so its ping always
// succeeds.
type FilestorePinger struct{}

// NewFilestorePinger creates the file-store stand-in.
func NewFilestorePinger() *FilestorePinger {
	return &FilestorePinger{}
}

// Ping always succeeds in file-store mode.
func (p *FilestorePinger) Ping(_ context.Context) error {
	return nil
}

// Mode returns "file-store".
func (p *FilestorePinger) Mode() string {
	return ModeFilestore
}

// ReconnectPinger is used when the boot-time connection attempt failed. It
// retries establishing the pool on each ping, so a database that comes up
// after the service does is picked up by the next health cycle.
type ReconnectPinger struct {
	cfg Config

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// NewReconnectPinger creates a pinger that connects lazily.
func NewReconnectPinger(cfg Config) *ReconnectPinger {
	return &ReconnectPinger{cfg: cfg}
}

// Ping establishes the pool if needed, then runs SELECT 1.
func (p *ReconnectPinger) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pool == nil {
		pool, err := Connect(ctx, p.cfg)
		if err != nil {
			return err
		}
		p.pool = pool
	}

	var one int
	if err := p.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		// A pool whose ping fails is discarded so the next attempt
		// reconnects from scratch.
		p.pool.Close()
		p.pool = nil
		return err
	}
	return nil
}

// Mode returns "postgres".
func (p *ReconnectPinger) Mode() string {
	return ModePostgres
}

// Close releases the pool if one was established.
func (p *ReconnectPinger) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
}
