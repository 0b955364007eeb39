// Package bootstrap wires the shared runtime used by the operator commands.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"pollhub/internal/cache"
	"pollhub/internal/config"
	"pollhub/internal/database"
	"pollhub/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema connects without applying the schema policy.
	SkipSchema bool
	WithRedis  bool
	// SeedFixtures is a fixtures file applied once the database is ready.
	SeedFixtures string
}

// InitRuntime connects to DB and, when asked, Redis and runs fixture seeding.
// The Redis client is nil when it was not requested or is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: !opts.SkipSchema})
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	var r *redis.Client
	if opts.WithRedis {
		cache.InitRedis(cfg.RedisURL)
		r = cache.GetClient()
	}

	if opts.SeedFixtures != "" {
		res, err := seed.Run(context.Background(), db, seed.Options{FixturesPath: opts.SeedFixtures})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to seed fixtures: %w", err)
		}
		log.Printf("fixtures applied: %d users, %d questions", res.Users, res.Questions)
	}

	return db, r, nil
}
