// Package catalog builds the configured named streams.
package catalog

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/mikhailv/fnstream/internal/config"
	"github.com/mikhailv/fnstream/registry"
	"github.com/mikhailv/fnstream/stream"
	"github.com/mikhailv/fnstream/trampoline"
)

type canceler interface {
	Cancel()
}

type Catalog struct {
	streams map[string]*stream.Stream[any]
	sources []canceler
	methods registry.Registry
}

// Build creates every configured stream on loop. It must run on the loop:
// sources start producing as soon as they are built.
func Build(loop stream.Scheduler, streams []config.Stream, rnd *rand.Rand, logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{
		streams: make(map[string]*stream.Stream[any], len(streams)),
		methods: stream.Register(registry.New()),
	}
	for _, cfg := range streams {
		st, err := c.build(loop, cfg, rnd)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to build stream %q: %w", cfg.Name, err)
		}
		c.streams[cfg.Name] = st
		logger.Debug("stream built", "name", cfg.Name, "kind", cfg.Kind)
	}
	return c, nil
}

func (c *Catalog) build(loop stream.Scheduler, cfg config.Stream, rnd *rand.Rand) (*stream.Stream[any], error) {
	switch cfg.Kind {
	case config.KindRandom:
		lo, hi := cfg.Min, cfg.Max
		src := stream.Poll(loop, func() trampoline.Step[float64] {
			return trampoline.Continue(func() float64 { return lo + rnd.Float64()*(hi-lo) })
		}, cfg.Interval)
		c.sources = append(c.sources, src)
		return src.Untyped(), nil

	case config.KindCounter:
		ticks := stream.Poll(loop, func() trampoline.Step[int] {
			return trampoline.Continue(func() int { return 1 })
		}, cfg.Interval)
		c.sources = append(c.sources, ticks)
		return stream.Reduce(ticks, 0, func(acc, v int) int { return acc + v }).Untyped(), nil

	case config.KindSequence:
		src := stream.Sequential(loop, cfg.Values, cfg.Interval)
		c.sources = append(c.sources, src)
		return src.Untyped(), nil

	case config.KindZip:
		sources, err := c.lookup(cfg.Sources)
		if err != nil {
			return nil, err
		}
		res, err := c.methods.Call("zip", sources[0], sources[1])
		if err != nil {
			return nil, err
		}
		return res.(*stream.Stream[stream.Pair[any, any]]).Untyped(), nil

	case config.KindMerge:
		sources, err := c.lookup(cfg.Sources)
		if err != nil {
			return nil, err
		}
		merged := sources[0]
		for _, st := range sources[1:] {
			merged = merged.Merge(st)
		}
		return merged, nil
	}
	return nil, fmt.Errorf("unsupported stream kind %q", cfg.Kind)
}

func (c *Catalog) lookup(names []string) ([]*stream.Stream[any], error) {
	res := make([]*stream.Stream[any], 0, len(names))
	for _, name := range names {
		st, ok := c.streams[name]
		if !ok {
			return nil, fmt.Errorf("unknown source stream %q", name)
		}
		res = append(res, st)
	}
	return res, nil
}

func (c *Catalog) Get(name string) (*stream.Stream[any], bool) {
	st, ok := c.streams[name]
	return st, ok
}

func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.streams))
	for name := range c.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops every source; the streams built on them complete in turn.
func (c *Catalog) Close() {
	for _, src := range slices.Backward(c.sources) {
		src.Cancel()
	}
	c.sources = nil
}
