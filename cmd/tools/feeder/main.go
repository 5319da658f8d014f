package main

import (
	"context"
	"flag"
	"math/rand"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-billing/internal/config"
	"github.com/noah-isme/backend-billing/internal/feeder"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/store"
)

func main() {
	count := flag.Int("count", 0, "number of statements to feed (0 uses FEEDER_COUNT)")
	seed := flag.Int64("seed", 0, "random seed (0 uses the clock)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger("console", "info").With().Str("component", "feeder").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	n := *count
	if n <= 0 {
		n = cfg.FeederCount
	}
	source := *seed
	if source == 0 {
		source = time.Now().UnixNano()
	}

	f := &feeder.Feeder{
		Store: &store.Store{
			R:      redisClient,
			Prefix: cfg.StatementPrefix,
			TTL:    cfg.StatementTTL,
		},
		Logger:           logger,
		Rand:             rand.New(rand.NewSource(source)),
		RowsPerStatement: cfg.FeederRows,
		BatchSize:        cfg.FeederBatchSize,
		Currency:         cfg.FeederCurrency,
	}

	ids, err := f.Feed(ctx, n)
	if err != nil {
		logger.Fatal().Err(err).Msg("feed failed")
	}
	logger.Info().Int("written", len(ids)).Msg("feed completed")
}
