package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handler "github.com/felipemarinho97/torrent-aggregator/api"
	"github.com/felipemarinho97/torrent-aggregator/cache"
	"github.com/felipemarinho97/torrent-aggregator/config"
	"github.com/felipemarinho97/torrent-aggregator/indexers"
	"github.com/felipemarinho97/torrent-aggregator/logging"
	"github.com/felipemarinho97/torrent-aggregator/metadata"
	"github.com/felipemarinho97/torrent-aggregator/monitoring"
	"github.com/felipemarinho97/torrent-aggregator/requester"
	"github.com/felipemarinho97/torrent-aggregator/search"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logging.InitLogger(logging.Options{})
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.InitLogger(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})

	metrics := monitoring.NewMetrics()
	metrics.Register()

	var store cache.Cache
	if cfg.Cache.RedisHost != "" {
		store = cache.NewRedis(cfg.Cache.RedisHost, cfg.Cache.TTL.Std(), metrics)
		logging.Info().Str("host", cfg.Cache.RedisHost).Msg("Using redis cache")
	} else {
		store = cache.NewOsFile(cfg.Cache.Dir, cfg.Cache.TTL.Std(), cache.WithMetrics(metrics, "file"))
		logging.Info().Str("dir", cfg.Cache.Dir).Msg("Using file cache")
	}

	reqOpts := requester.Options{
		FastTimeout:  cfg.Request.FastTimeout.Std(),
		SlowTimeout:  cfg.Request.SlowTimeout.Std(),
		ProbeTimeout: cfg.Request.ProbeTimeout.Std(),
		Attempts:     cfg.Request.Attempts,
		BackoffBase:  cfg.Request.BackoffBase.Std(),
		JitterMin:    cfg.Request.JitterMin.Std(),
		JitterMax:    cfg.Request.JitterMax.Std(),
	}
	if cfg.Request.FlareSolverr != "" {
		reqOpts.FlareSolverr = requester.NewFlareSolverr(cfg.Request.FlareSolverr, 60*time.Second)
		logging.Info().Str("address", cfg.Request.FlareSolverr).Msg("FlareSolverr enabled")
	}
	req := requester.New(reqOpts, store)

	tmdb := metadata.NewTMDB(cfg.Metadata.TMDBAPIKey, cfg.Metadata.TMDBURL, req)
	if !tmdb.Enabled() {
		logging.Warn().Msg("TMDB_API_KEY not set, TV results will carry placeholder details")
	}
	manager := metadata.NewManager([]metadata.Source{
		metadata.NewMetacritic(req, cfg.Metadata.MetacriticURL),
		metadata.NewRottenTomatoes(req, cfg.Metadata.RottenTomatoesURL),
		tmdb,
	}, metadata.WithManagerMetrics(metrics))

	searcher := search.New([]indexers.Indexer{
		indexers.NewYTS(req, cfg.Sources.YTSURL),
		indexers.NewLeetx(req, tmdb, indexers.LeetxOptions{
			BaseURL:   cfg.Sources.LeetxURL,
			MaxPages:  cfg.Sources.MaxPages,
			PageDelay: cfg.Sources.PageDelay.Std(),
		}),
	},
		search.WithCache(store),
		search.WithMetadata(manager),
		search.WithMetrics(metrics),
	)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	go func() {
		logging.Info().Str("addr", cfg.MetricsAddr).Msg("Metrics server listening")
		if err := http.ListenAndServe(cfg.MetricsAddr, metricsMux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.New(searcher, manager).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logging.Info().Str("addr", cfg.ListenAddr).Msg("Aggregator listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal().Err(err).Msg("Server failed")
	}
}
