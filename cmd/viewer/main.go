package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gridforma/massing/internal/logging"
	"github.com/gridforma/massing/internal/observability"
	"github.com/gridforma/massing/internal/viewer"
	"github.com/gridforma/massing/internal/watch"
	"github.com/gridforma/massing/store"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	data := flag.String("data", "", "GeoJSON dataset to serve")
	watchEvery := flag.Duration("watch", 0, "Poll the dataset file at this interval; 0 disables reloads")
	metricsAddr := flag.String("metrics-addr", "", "Separate address for Prometheus /metrics; empty serves it on -addr")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	collector, err := observability.NewViewerCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}

	st := store.New(store.WithMetricsRecorder(collector))
	if *data != "" {
		if err := loadDataset(st, *data); err != nil {
			log.Warn(ctx, "initial dataset load failed; serving without data",
				logging.String("path", *data),
				logging.String("error", err.Error()))
		} else {
			log.Info(ctx, "dataset loaded",
				logging.String("path", *data),
				logging.Int("features", st.Len()))
		}
	}

	hub := viewer.NewHub(log, collector)
	unsubscribe := st.Subscribe(func() {
		hub.Broadcast(context.Background(), "reload", nil)
	})
	defer unsubscribe()

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if *watchEvery > 0 && *data != "" {
		w := watch.New(*data, *watchEvery, log)
		w.AddListener(func(watch.Stat) {
			if err := loadDataset(st, *data); err != nil {
				log.Warn(context.Background(), "dataset reload failed",
					logging.String("path", *data),
					logging.String("error", err.Error()))
			}
		})
		w.Start(stopCtx)
		log.Info(ctx, "watching dataset",
			logging.String("path", *data),
			logging.Duration("interval", *watchEvery))
	}

	srv := viewer.NewServer(st, hub, log, collector)
	httpSrv := &http.Server{
		Addr:    *addr,
		Handler: srv.Routes(),
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	go func() {
		log.Info(context.Background(), "viewer listening", logging.String("addr", *addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(context.Background(), "viewer server exited", logging.String("error", err.Error()))
			stop()
		}
	}()

	<-stopCtx.Done()
	log.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func loadDataset(st *store.FeatureStore, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return st.Load(f)
}

func serveMetrics(addr string, collector *observability.ViewerCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
