package cache

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ksapi/internal/engine"
)

// Engine wraps another engine with a Store. Store failures are logged and
// the line falls through to the inner engine.
type Engine struct {
	inner  engine.Engine
	store  *Store
	logger *zap.Logger
	group  singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	shared atomic.Int64
}

// Stats counts cache traffic since the engine was created.
type Stats struct {
	Hits   int64
	Misses int64
	// Shared counts misses answered by another caller's in-flight call.
	Shared int64
}

// New wraps inner with store.
func New(inner engine.Engine, store *Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{inner: inner, store: store, logger: logger}
}

func (e *Engine) Name() string { return e.inner.Name() }

// Open opens an inner session up front so unsupported targets fail here,
// exactly as they would without the cache.
func (e *Engine) Open(ctx context.Context, cfg engine.Config) (engine.Session, error) {
	inner, err := e.inner.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &session{engine: e, cfg: cfg, inner: inner}, nil
}

// Stats returns the traffic counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Hits:   e.hits.Load(),
		Misses: e.misses.Load(),
		Shared: e.shared.Load(),
	}
}

type session struct {
	engine *Engine
	cfg    engine.Config
	inner  engine.Session
}

func (s *session) Assemble(ctx context.Context, text string) (engine.Encoding, error) {
	if err := ctx.Err(); err != nil {
		return engine.Encoding{}, err
	}
	e := s.engine
	key := Key{Config: s.cfg, Text: text}

	entry, ok, err := e.store.Get(ctx, key)
	if err != nil {
		e.logger.Warn("cache lookup failed", zap.Stringer("config", s.cfg), zap.Error(err))
	}
	if ok {
		e.hits.Add(1)
		return entry.result()
	}
	e.misses.Add(1)

	// A shared fill ignores any one caller's cancellation. The inner
	// engine's per-line timeout bounds it.
	fillCtx := context.WithoutCancel(ctx)
	v, err, shared := e.group.Do(key.String(), func() (interface{}, error) {
		return s.fill(fillCtx, key)
	})
	if shared {
		e.shared.Add(1)
	}
	if err != nil {
		return engine.Encoding{}, err
	}
	return v.(Entry).result()
}

// fill asks the inner engine and stores deterministic answers.
func (s *session) fill(ctx context.Context, key Key) (Entry, error) {
	enc, err := s.inner.Assemble(ctx, key.Text)
	var entry Entry
	switch ae, isLine := engine.AsLineError(err); {
	case err == nil:
		entry.Encoding = enc
	case isLine:
		entry.Err = ae
	default:
		return Entry{}, err
	}

	if perr := s.engine.store.Put(ctx, key, entry); perr != nil {
		s.engine.logger.Warn("cache store failed", zap.Stringer("config", s.cfg), zap.Error(perr))
	}
	return entry, nil
}

func (s *session) Close() error {
	return s.inner.Close()
}

// result copies the entry out so callers never share cached slices.
func (e Entry) result() (engine.Encoding, error) {
	if e.Err != nil {
		ae := *e.Err
		return engine.Encoding{}, &ae
	}
	return engine.Encoding{
		Bytes: append([]byte{}, e.Encoding.Bytes...),
		Count: e.Encoding.Count,
	}, nil
}
