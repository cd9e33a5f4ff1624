package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/mikhailv/fnstream/eventloop"
	"github.com/mikhailv/fnstream/internal/catalog"
	"github.com/mikhailv/fnstream/internal/config"
	"github.com/mikhailv/fnstream/internal/log"
	"github.com/mikhailv/fnstream/internal/server"
	"github.com/mikhailv/fnstream/internal/setup"
	"github.com/mikhailv/fnstream/internal/util"
	"github.com/mikhailv/fnstream/stream"
)

func main() {
	ctx, cancel := setup.ListenStopSignal(context.Background())
	defer cancel()

	configFile := flag.String("config", "", "config file path, built-in defaults if empty")
	pprof := flag.Bool("pprof", false, "serve pprof handlers under /debug/pprof")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Pprof = cfg.Pprof || *pprof

	loop := eventloop.New()

	logger, logStream, logCloser, err := setupLogger(*debug, cfg.Log.File, loop)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)
	loop.SetLogger(log.WithPrefix(logger, "loop"))

	if err := run(ctx, cfg, logger, loop, logStream); err != nil {
		logger.Error("stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, loop *eventloop.Loop, logStream *stream.Stream[log.Entry]) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	// the loop outlives ctx so streams can be closed on it; Close stops it.
	g.Go(func() error {
		defer cancel()
		return loop.Run(context.Background())
	})

	var streams *catalog.Catalog
	var buildErr error
	done := log.Profile(logger, "building streams", "count", len(cfg.Streams))
	err := loop.Do(ctx, func() {
		rnd := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		streams, buildErr = catalog.Build(loop, cfg.Streams, rnd, log.WithPrefix(logger, "catalog"))
	})
	if err = errors.Join(err, buildErr); err != nil {
		loop.Close()
		_ = g.Wait()
		return err
	}
	done()

	httpServer := server.NewHTTPServer(cfg, log.WithPrefix(logger, "http"), loop, streams, logStream)
	g.Go(func() error {
		defer cancel()
		return httpServer.Serve(ctx)
	})

	if cfg.StatsInterval > 0 {
		g.Go(func() error {
			_ = util.RunPeriodically(ctx, cfg.StatsInterval, func(context.Context) {
				logger.Info("loop stats", "pending", loop.Pending())
			})
			return nil
		})
	}

	<-ctx.Done()
	logger.Info("stopping...")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.WS.WriteTimeout)
	if err := loop.Do(stopCtx, streams.Close); err != nil {
		logger.Warn("failed to close streams", "err", err)
	}
	stopCancel()
	loop.Close()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func setupLogger(debug bool, file string, loop stream.Scheduler) (*slog.Logger, *stream.Stream[log.Entry], io.Closer, error) {
	var logStream *stream.Stream[log.Entry]
	var recorderErr error
	logger, closer, err := setup.Logger(debug, file, func(handler slog.Handler) slog.Handler {
		recorder, st, err := log.NewRecorder(handler, loop)
		if err != nil {
			recorderErr = err
			return handler
		}
		logStream = st
		return recorder
	})
	if err == nil && recorderErr != nil {
		_ = closer.Close()
		err = recorderErr
	}
	return logger, logStream, closer, err
}
