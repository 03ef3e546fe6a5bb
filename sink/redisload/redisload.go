// Package redisload is a reference rdb.Sink that replays decoded
// snapshot events into one or more live Redis-protocol targets. It
// exists to exercise the decoder end-to-end against a real store and to
// give the teacher tool's original "dump into Redis" concern a home on
// the consumer side of this decoder, rather than inside the decoder
// itself (spec.md treats the sink as the embedder's concern).
package redisload

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"rdbsnap"
)

// Target is one destination Redis-protocol endpoint.
type Target struct {
	Name     string // shard label; defaults to Addr if empty
	Addr     string
	Password string
}

// Loader replays rdb.Sink events into one or more Target endpoints. With
// more than one target, keys are sharded by rendezvous hashing (stable
// under target add/remove, unlike modulo hashing) so the same key always
// lands on the same shard for a fixed target set. Writes are throttled
// with a token-bucket limiter, mirroring the QPS-throttled bulk loading
// the teacher tool built around a live replication stream — here
// applied to decoder output instead.
type Loader struct {
	ctx      context.Context
	clients  map[string]*redis.Client
	shardsOf *rendezvous.Rendezvous
	limiter  *rate.Limiter
	db       int

	pendingExpiry map[string]*time.Time

	rdbsnap.NopSink
}

// Option configures a Loader.
type Option func(*Loader)

// WithQPS caps total write operations per second across all targets. A
// non-positive value leaves writes unthrottled.
func WithQPS(qps int) Option {
	return func(l *Loader) {
		if qps > 0 {
			l.limiter = rate.NewLimiter(rate.Limit(qps), qps)
		}
	}
}

// WithTargetDB selects the destination logical database index (0 when
// not set). The snapshot's own database indices are ignored: every
// decoded database is loaded into this one target DB.
func WithTargetDB(db int) Option {
	return func(l *Loader) { l.db = db }
}

// New builds a Loader over the given targets.
func New(ctx context.Context, targets []Target, opts ...Option) (*Loader, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("redisload: at least one target is required")
	}

	l := &Loader{
		ctx:           ctx,
		clients:       make(map[string]*redis.Client, len(targets)),
		limiter:       rate.NewLimiter(rate.Inf, 0),
		pendingExpiry: make(map[string]*time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}

	names := make([]string, 0, len(targets))
	for _, t := range targets {
		name := t.Name
		if name == "" {
			name = t.Addr
		}
		l.clients[name] = redis.NewClient(&redis.Options{Addr: t.Addr, Password: t.Password, DB: l.db})
		names = append(names, name)
	}
	l.shardsOf = rendezvous.New(names, xxhash.Sum64String)

	return l, nil
}

// Close closes every underlying client connection.
func (l *Loader) Close() error {
	var firstErr error
	for _, c := range l.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *Loader) clientFor(key string) *redis.Client {
	return l.clients[l.shardsOf.Lookup(key)]
}

func (l *Loader) wait() {
	_ = l.limiter.Wait(l.ctx)
}

func expireDuration(expiry *time.Time) time.Duration {
	if expiry == nil {
		return 0
	}
	d := time.Until(*expiry)
	if d < 0 {
		return time.Millisecond // already expired: set then let Redis reap it
	}
	return d
}

func (l *Loader) Set(key string, value rdbsnap.Value, expiry *time.Time, _ rdbsnap.Info) {
	l.wait()
	l.clientFor(key).Set(l.ctx, key, value.String(), expireDuration(expiry))
}

func (l *Loader) StartHash(key string, _ int64, expiry *time.Time, _ rdbsnap.Info) {
	l.rememberExpiry(key, expiry)
}
func (l *Loader) StartSet(key string, _ int64, expiry *time.Time, _ rdbsnap.Info) {
	l.rememberExpiry(key, expiry)
}
func (l *Loader) StartList(key string, _ int64, expiry *time.Time, _ rdbsnap.Info) {
	l.rememberExpiry(key, expiry)
}
func (l *Loader) StartSortedSet(key string, _ int64, expiry *time.Time, _ rdbsnap.Info) {
	l.rememberExpiry(key, expiry)
}

func (l *Loader) rememberExpiry(key string, expiry *time.Time) {
	if expiry != nil {
		l.pendingExpiry[key] = expiry
	}
}

func (l *Loader) applyExpiry(key string) {
	if expiry, ok := l.pendingExpiry[key]; ok {
		l.wait()
		l.clientFor(key).Expire(l.ctx, key, expireDuration(expiry))
		delete(l.pendingExpiry, key)
	}
}

func (l *Loader) HSet(key string, field, value rdbsnap.Value) {
	l.wait()
	l.clientFor(key).HSet(l.ctx, key, field.String(), value.String())
}

func (l *Loader) SAdd(key string, member rdbsnap.Value) {
	l.wait()
	l.clientFor(key).SAdd(l.ctx, key, member.String())
}

func (l *Loader) RPush(key string, value rdbsnap.Value) {
	l.wait()
	l.clientFor(key).RPush(l.ctx, key, value.String())
}

func (l *Loader) ZAdd(key string, member rdbsnap.Value, score float64) {
	l.wait()
	l.clientFor(key).ZAdd(l.ctx, key, redis.Z{Score: score, Member: member.String()})
}

func (l *Loader) EndHash(key string)      { l.applyExpiry(key) }
func (l *Loader) EndSet(key string)       { l.applyExpiry(key) }
func (l *Loader) EndList(key string)      { l.applyExpiry(key) }
func (l *Loader) EndSortedSet(key string) { l.applyExpiry(key) }
