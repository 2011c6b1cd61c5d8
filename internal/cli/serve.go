package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	wefthttp "github.com/aretw0/weft/pkg/adapters/http"
	"github.com/aretw0/weft/pkg/adapters/redis"
	"github.com/aretw0/weft/pkg/ports"
	"github.com/aretw0/weft/pkg/session"
)

// NewSessionManager builds the session manager shared by the network
// adapters. Extra publishers receive every graph event next to the metrics
// and the Redis bus, when those are configured. The returned close func
// releases the Redis connection.
func (e *Env) NewSessionManager(extra ...ports.EventPublisher) (*session.Manager, func() error, error) {
	pubs := append([]ports.EventPublisher(nil), extra...)
	if e.Metrics != nil {
		pubs = append(pubs, e.Metrics)
	}

	closer := func() error { return nil }
	if url := e.Config.Redis.URL; url != "" {
		bus, err := redis.NewFromURL(url,
			redis.WithPrefix(e.Config.Redis.Prefix),
			redis.WithLogger(e.Logger),
		)
		if err != nil {
			return nil, nil, err
		}
		e.Logger.Info("Publishing graph events to Redis", "prefix", e.Config.Redis.Prefix)
		pubs = append(pubs, bus)
		closer = bus.Close
	}

	opts := []session.Option{
		session.WithLogger(e.Logger),
		session.WithEditorOptions(e.HookOptions()...),
	}
	if len(pubs) > 0 {
		opts = append(opts, session.WithPublisher(ports.Fanout(pubs...)))
	}
	return session.NewManager(opts...), closer, nil
}

// NewServeHandler mounts the graph API and, when metrics are enabled, the
// Prometheus endpoint.
func (e *Env) NewServeHandler(mgr *session.Manager, streams *wefthttp.StreamManager) http.Handler {
	api := wefthttp.NewHandler(mgr,
		wefthttp.WithLogger(e.Logger),
		wefthttp.WithStreams(streams),
	)

	r := chi.NewRouter()
	if e.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(e.Registry, promhttp.HandlerOpts{}))
	}
	r.Mount("/", api)
	return r
}

// RunServe serves the HTTP API on addr until ctx is done.
func RunServe(ctx context.Context, env *Env, addr string) error {
	if addr == "" {
		addr = env.Config.HTTP.Addr
	}

	streams := wefthttp.NewStreamManager()
	streams.SetLogger(env.Logger)

	mgr, closeBus, err := env.NewSessionManager(streams)
	if err != nil {
		return err
	}
	defer closeBus()

	srv := &http.Server{
		Addr:              addr,
		Handler:           env.NewServeHandler(mgr, streams),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		env.Logger.Info("Starting weft server", "addr", addr, "metrics", env.Metrics != nil)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		env.Logger.Info("Shutting down weft server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			if cerr := srv.Close(); cerr != nil {
				env.Logger.Error("Error killing server", "err", cerr)
			}
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		return nil
	})
	return g.Wait()
}
