package main

import (
	"fmt"

	"go.uber.org/zap"

	"ksapi/internal/cache"
	"ksapi/internal/config"
	"ksapi/internal/engine"
	"ksapi/internal/history"
	"ksapi/internal/logging"
	"ksapi/internal/pipeline"
	"ksapi/internal/trace"
)

// newBackend builds the configured engine backend. Tests replace it.
var newBackend = func(c *config.Config, log *zap.Logger) (engine.Engine, error) {
	switch c.Engine.Backend {
	case "kstool":
		return engine.NewKSTool(engine.KSToolOptions{
			Path:    c.Engine.KSToolPath,
			Timeout: c.GetLineTimeout(),
			Logger:  logging.For(log, logging.CategoryEngine),
		})
	default:
		return nil, fmt.Errorf("unknown engine backend %q", c.Engine.Backend)
	}
}

// newTraceSink logs validator events under the validate category and the rest
// under dispatch.
func newTraceSink(log *zap.Logger) trace.Sink {
	return trace.Route{
		Kinds: map[trace.Kind]trace.Sink{
			trace.KindFieldReceived: trace.NewZapSink(logging.For(log, logging.CategoryValidate)),
		},
		Default: trace.NewZapSink(logging.For(log, logging.CategoryDispatch)),
	}
}

// services is everything a command needs to run jobs.
type services struct {
	engine   engine.Engine
	cache    *cache.Engine
	store    *cache.Store
	history  *history.Store
	pipeline *pipeline.Pipeline
}

func openServices(c *config.Config, log *zap.Logger) (*services, error) {
	eng, err := newBackend(c, log)
	if err != nil {
		return nil, err
	}
	svc := &services{engine: eng}

	if c.Cache.Enabled {
		store, err := cache.OpenStore(c.Cache.Path)
		if err != nil {
			return nil, err
		}
		svc.store = store
		svc.cache = cache.New(eng, store, logging.For(log, logging.CategoryCache))
		svc.engine = svc.cache
	}

	opts := pipeline.Options{
		MaxInstructions: c.Server.MaxInstructions,
		Sink:            newTraceSink(log),
		Logger:          log,
	}
	if c.History.Enabled {
		hs, err := history.Open(c.History.Path)
		if err != nil {
			svc.Close()
			return nil, err
		}
		svc.history = hs
		opts.History = hs
	}

	svc.pipeline = pipeline.New(svc.engine, opts)
	return svc, nil
}

// Close releases the databases.
func (s *services) Close() {
	if s.store != nil {
		s.store.Close()
	}
	if s.history != nil {
		s.history.Close()
	}
}
