package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "cartflow/docs"
	"cartflow/pkg/cart"
	"cartflow/pkg/cart/memory"
	pgslot "cartflow/pkg/cart/postgres"
	redisslot "cartflow/pkg/cart/redis"
	"cartflow/pkg/config"
	"cartflow/pkg/db"
	"cartflow/pkg/logger"
	"cartflow/pkg/otel"
	"cartflow/pkg/session"
)

// @title CartFlow API
// @version 1.0
// @description Storefront cart with persistence and retryable actions
// @host localhost:8443
// @BasePath /
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel), "cartflow", otel.GetTraceID)
	defer log.Sync()

	ctx := context.Background()
	tp, shutdown, err := otel.InitTracing(log, otel.Config{ServiceName: "cartflow", Host: cfg.OTELHost, Probability: cfg.TraceProbability})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdown(context.Background())

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	slot, closeSlot, err := openSlot(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}
	defer closeSlot()

	var sessions session.Store = session.NewMemoryStore(cfg.SessionTTL, nil)
	if cfg.SessionBackend == config.BackendRedis {
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
	}

	carts := cart.NewRegistry(func(sessionID string) *cart.Storage {
		return cart.NewStorage(slot, "cart:"+sessionID)
	}, cart.WithDebounce(cfg.CartDebounce), cart.WithLogger(log))

	srv := &server{
		carts:      carts,
		sessions:   sessions,
		log:        log,
		tracer:     tp.Tracer("cartflow"),
		sessionTTL: cfg.SessionTTL,
		secure:     cfg.TLS(),
	}

	httpSrv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.CartIdle > 0 {
		go carts.Run(sigCtx, time.Minute, cfg.CartIdle)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Addr, "cart_backend", cfg.CartBackend, "session_backend", cfg.SessionBackend, "tls", cfg.TLS())
		var err error
		if cfg.TLS() {
			err = httpSrv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-sigCtx.Done():
		log.Info(ctx, "shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server closed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "graceful shutdown", "error", err)
	}
	if err := carts.Close(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "flush carts", "error", err)
	}
	return nil
}

func openSlot(ctx context.Context, cfg config.Config, rdb *redis.Client, log *logger.Logger) (cart.Slot, func(), error) {
	switch cfg.CartBackend {
	case config.BackendRedis:
		return redisslot.New(rdb, cfg.CartTTL), func() {}, nil
	case config.BackendPostgres:
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, conn, log); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return pgslot.New(conn), func() { closeDB(conn) }, nil
	default:
		return memory.New(), func() {}, nil
	}
}

func closeDB(conn *sql.DB) { _ = conn.Close() }
