package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nl2sql_cache/cache"
	"nl2sql_cache/cache/lru"
	cacheredis "nl2sql_cache/cache/redis"
	"nl2sql_cache/config"
	"nl2sql_cache/embedding/openai"
	"nl2sql_cache/resolver/openrouter"
	"nl2sql_cache/schema"
	"nl2sql_cache/semcache"
	"nl2sql_cache/vector"
	"nl2sql_cache/vector/flat"
	vectorqdrant "nl2sql_cache/vector/qdrant"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	snapshotPath := flag.String("snapshot", os.Getenv("SNAPSHOT_PATH"), "path to cache snapshot file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(*configPath, *snapshotPath, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath, snapshotPath string, log *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("fail to load config: %w", err)
	}

	embedder := openai.New(cfg.Embedding.Endpoint, cfg.Embedding.Model, cfg.Embedding.APIKeyEnv, cfg.Cache.Dimensions)
	pipeline := openrouter.New(cfg.Resolver.Endpoint, cfg.Resolver.Model, cfg.Resolver.APIKeyEnv)
	registry := schema.NewRegistry()

	var index vector.Index
	switch cfg.Vector.Backend {
	case config.VectorBackendQdrant:
		index, err = vectorqdrant.New(cfg.Vector.Qdrant, cfg.Cache.Dimensions, cfg.Cache.Metric)
	default:
		index, err = flat.New(cfg.Cache.Dimensions, cfg.Cache.Metric)
	}
	if err != nil {
		return fmt.Errorf("fail to init vector index: %w", err)
	}

	var store cache.Store
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		store, err = cacheredis.New(cfg.Store.Redis)
	default:
		store, err = lru.New(cfg.Cache.Capacity)
	}
	if err != nil {
		return fmt.Errorf("fail to init cache store: %w", err)
	}

	qc, err := semcache.New(cfg.Cache, semcache.Deps{
		Embedder: embedder,
		Index:    index,
		Store:    store,
		Tracker:  registry,
		Pipeline: pipeline,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("fail to init semantic cache: %w", err)
	}
	defer qc.Close()

	if snapshotPath != "" {
		if err := restoreSnapshot(qc, snapshotPath); err != nil {
			log.Warn("snapshot restore skipped", "path", snapshotPath, "error", err)
		}
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: newRouter(qc, registry, log),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error running http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}

	if snapshotPath != "" {
		if err := writeSnapshot(qc, snapshotPath); err != nil {
			log.Error("snapshot write failed", "path", snapshotPath, "error", err)
		}
	}
	return nil
}

func restoreSnapshot(qc *semcache.Cache, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return qc.Restore(context.Background(), f)
}

func writeSnapshot(qc *semcache.Cache, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return qc.Snapshot(context.Background(), f)
}
