package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/brianvoe/gofakeit/v7"

	"agenda/internal/config"
	"agenda/internal/domain"
	"agenda/internal/service/calendar"
	"agenda/internal/store"
	"agenda/internal/store/file"
	"agenda/internal/store/memory"
	mongostore "agenda/internal/store/mongo"
	"agenda/internal/store/postgres"
	redisstore "agenda/internal/store/redis"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "agenda-seed"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})).With(
		slog.String("service", "agenda-seed"),
	)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("seed failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info("starting", slog.String("store_driver", cfg.StoreDriver), slog.String("log_level", cfg.LogLevel))

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	openCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	svc := calendar.Open(openCtx, st, log)
	cancel()

	stats, err := seed(ctx, svc, gofakeit.New(0), domain.DateOf(timeNow()), cfg.SeedWeeks, cfg.SeedAppointments)
	if err != nil {
		return err
	}
	log.Info("seeded",
		slog.Int("rules", stats.Rules),
		slog.Int("availabilities", stats.Availabilities),
		slog.Int("appointments", stats.Appointments),
		slog.Int("rejected", stats.Rejected),
	)

	flushCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()
	if err := svc.Flush(flushCtx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	if cfg.SeedICSPath != "" {
		if err := writeICS(svc, cfg.SeedICSPath); err != nil {
			return err
		}
		log.Info("calendar exported", slog.String("path", cfg.SeedICSPath))
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.BlobStore, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()

	log.Info("opening store", storeLogArgs(cfg)...)

	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("memory store selected; seeded data is discarded on exit")
		return memory.New(), func() {}, nil

	case config.DriverFile:
		s, err := file.New(cfg.StoreDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		return s, func() {}, nil

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}
		repo := postgres.NewBlobRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = postgres.Close(db)
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, func() {
			if err := postgres.Close(db); err != nil {
				log.Warn("database close failed", slog.Any("err", err))
			}
		}, nil

	case config.DriverRedis:
		client, err := redisstore.NewClient(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(client, cfg.RedisPrefix), func() {
			if err := client.Close(); err != nil {
				log.Warn("redis close failed", slog.Any("err", err))
			}
		}, nil

	case config.DriverMongo:
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		coll := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
		return mongostore.New(coll), func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warn("mongo disconnect failed", slog.Any("err", err))
			}
		}, nil
	}

	return nil, nil, errors.New("unsupported store driver: " + cfg.StoreDriver)
}

func writeICS(svc *calendar.Service, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return svc.ExportICS(f)
}

// storeLogArgs describes where the selected driver keeps its data without
// leaking credentials embedded in connection strings.
func storeLogArgs(cfg config.Config) []any {
	args := []any{slog.String("store_driver", cfg.StoreDriver)}
	switch cfg.StoreDriver {
	case config.DriverFile:
		args = append(args, slog.String("dir", cfg.StoreDir))
	case config.DriverPostgres:
		args = append(args, slog.String("host", redactedHost(cfg.DatabaseURL)), slog.String("db_name", urlPath(cfg.DatabaseURL)))
	case config.DriverRedis:
		args = append(args, slog.String("host", cfg.RedisAddr), slog.Int("db", cfg.RedisDB), slog.String("prefix", cfg.RedisPrefix))
	case config.DriverMongo:
		args = append(args,
			slog.String("host", redactedHost(cfg.MongoURI)),
			slog.String("db_name", cfg.MongoDatabase),
			slog.String("collection", cfg.MongoCollection),
		)
	}
	return args
}

// redactedHost returns host[:port] of a connection URL, or "invalid".
func redactedHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Host
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "unknown"
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		return name
	}
	return "unknown"
}
