package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/npezzotti/roomrent/internal/api"
	"github.com/npezzotti/roomrent/internal/config"
	"github.com/npezzotti/roomrent/internal/database"
	"github.com/npezzotti/roomrent/internal/diagnostics"
	"github.com/npezzotti/roomrent/internal/fallback"
	"github.com/npezzotti/roomrent/internal/feed"
	"github.com/npezzotti/roomrent/internal/gate"
	"github.com/npezzotti/roomrent/internal/listing"
	"github.com/npezzotti/roomrent/internal/logging"
	"github.com/npezzotti/roomrent/internal/session"
	"github.com/npezzotti/roomrent/internal/stats"
	"github.com/npezzotti/roomrent/internal/supabase"
	"go.uber.org/zap"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

var (
	addr            string
	supabaseURL     string
	anonKey         string
	serviceKey      string
	jwtSecret       string
	dsn             string
	redisAddr       string
	bucket          string
	logLevel        string
	logFormat       string
	strictOwnerGate bool
	allowedOrigins  stringSliceFlag
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	strictDefault, _ := strconv.ParseBool(os.Getenv("STRICT_OWNER_GATE"))

	flag.StringVar(&addr, "addr", envOr("ADDR", "localhost:8000"), "server address")
	flag.StringVar(&supabaseURL, "supabase-url", os.Getenv("SUPABASE_URL"), "base url of the supabase project")
	flag.StringVar(&anonKey, "supabase-anon-key", os.Getenv("SUPABASE_ANON_KEY"), "public anon api key")
	flag.StringVar(&serviceKey, "supabase-service-key", os.Getenv("SUPABASE_SERVICE_ROLE_KEY"), "service role api key")
	flag.StringVar(&jwtSecret, "jwt-secret", os.Getenv("SUPABASE_JWT_SECRET"), "base64 encoded jwt secret for local token verification")
	flag.StringVar(&dsn, "dsn", os.Getenv("DATABASE_URL"), "postgres connection string; empty uses the REST table store")
	flag.StringVar(&redisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "redis address for the fallback cache; empty keeps it in memory")
	flag.StringVar(&bucket, "bucket", envOr("STORAGE_BUCKET", config.DefaultStorageBucket), "storage bucket for room images")
	flag.StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level")
	flag.StringVar(&logFormat, "log-format", envOr("LOG_FORMAT", "json"), "log format (json or console)")
	flag.BoolVar(&strictOwnerGate, "strict-owner-gate", strictDefault, "require the owner role for owner pages")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	if len(allowedOrigins) == 0 {
		if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
			allowedOrigins.Set(v)
		}
	}

	logger, err := logging.NewLogger(logLevel, logFormat, "roomrent")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	err = run(logger, config.Options{
		ServerAddr:         addr,
		SupabaseURL:        supabaseURL,
		SupabaseAnonKey:    anonKey,
		SupabaseServiceKey: serviceKey,
		Base64JWTSecret:    jwtSecret,
		DatabaseDSN:        dsn,
		RedisAddr:          redisAddr,
		StorageBucket:      bucket,
		AllowedOrigins:     allowedOrigins,
		StrictOwnerGate:    strictOwnerGate,
	})
	if err != nil {
		logger.Error("exiting", zap.Error(err))
	}
	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

// run wires the services for opts and serves until SIGINT or SIGTERM or
// until the listener fails.
func run(logger *zap.Logger, opts config.Options) error {
	cfg, err := config.NewConfig(opts)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	client := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, logger.Named("supabase"))

	var repo database.RoomRepository
	if cfg.DatabaseDSN != "" {
		pg, err := database.NewPgRoomRepository(cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		defer func() {
			if err := pg.Close(); err != nil {
				logger.Error("db close", zap.Error(err))
			}
		}()
		repo = pg
	} else {
		repo = database.NewRestRoomRepository(client)
	}

	var cache fallback.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, fallback reads will be empty", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()

		cache = fallback.NewRedisStore(rdb, cfg.FallbackKey, logger.Named("fallback"))
	} else {
		cache = fallback.NewMemoryStore(logger.Named("fallback"))
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	hub := feed.NewHub(logger.Named("feed"), statsUpdater)

	storage := listing.NewBucketStorage(client, cfg.StorageBucket)
	listings := listing.NewService(repo, storage, cache, logger.Named("listing"),
		listing.WithPublisher(hub),
		listing.WithStats(statsUpdater),
	)

	resolver := session.NewResolver(
		session.NewTokenAuthenticator(client, cfg.JWTSecret, logger.Named("auth")),
		repo,
		logger.Named("session"),
	)

	policy := gate.Parity
	if cfg.StrictOwnerGate {
		policy = gate.StrictOwner
	}

	srv := api.NewApp(mux, logger.Named("api"), api.Services{
		Auth:        client,
		Sessions:    resolver,
		Listings:    listings,
		Profiles:    repo,
		Diagnostics: diagnostics.NewChecker(storage, cfg.StorageBucket, true, logger.Named("diagnostics")),
		Feed:        hub,
		Gate:        gate.New(policy),
	}, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go hub.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var serveErr error
	select {
	case sig := <-sigs:
		logger.Info("received signal", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		logger.Error("server", zap.Error(serveErr))
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Error("HTTP server shutdown", zap.Error(err))
	}

	hub.Shutdown()

	logger.Info("shutdown complete")

	return serveErr
}
