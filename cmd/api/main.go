package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"google.golang.org/grpc"

	"studyhall.org/internal/auth"
	"studyhall.org/internal/campus"
	"studyhall.org/internal/config"
	"studyhall.org/internal/httpapi"
	"studyhall.org/internal/obs"
	"studyhall.org/internal/store/memory"
	"studyhall.org/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

type backend interface {
	auth.UserStore
	campus.Store
}

func main() {
	var (
		configPath = flag.String("config", os.Getenv("STUDYHALL_CONFIG"), "path to YAML config file")
		addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
		dsn        = flag.String("dsn", "", "PostgreSQL DSN (overrides config; empty keeps state in memory)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}

	obs.Init()
	obs.SetBuildInfo(version, commit)

	var (
		store backend
		db    *sql.DB
	)
	if cfg.Database.DSN != "" {
		pgStore, err := pg.Open(cfg.Database.DSN, pg.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store, db = pgStore, pgStore.DB()
	} else {
		obs.Info("using in-memory store", nil)
		store = memory.New()
	}

	users, err := auth.NewService(store,
		auth.WithSessionTTL(cfg.Auth.SessionTTL),
		auth.WithBcryptCost(cfg.Auth.BcryptCost),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	svc, err := campus.NewService(store, users)
	if err != nil {
		log.Fatalf("campus service: %v", err)
	}

	trusted, err := cfg.HTTP.TrustedPrefixes()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	probe := httpapi.ReadyProbe{DB: db}
	api := httpapi.New(probe, version, users, svc, httpapi.Options{
		RateBurst:      cfg.HTTP.RateLimit.Burst,
		RatePerSecond:  cfg.HTTP.RateLimit.PerSecond,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		TrustedProxies: trusted,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var grpcServer *grpc.Server
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcServer = grpc.NewServer()
		httpapi.NewGRPCServer(probe).Register(grpcServer)
		go func() {
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	obs.Info("starting", map[string]any{
		"version":   version,
		"http_addr": srv.Addr,
		"grpc_addr": cfg.GRPC.Addr,
		"postgres":  db != nil,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	obs.Info("shutting down", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		obs.Error("http shutdown", err, nil)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if db != nil {
		_ = db.Close()
	}
	obs.Info("stopped", nil)
}
