package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/catalog"
	"github.com/spigell/broker-genie/internal/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database tables and optionally seed the catalog",
	Run: func(cmd *cobra.Command, _ []string) {
		seed, _ := cmd.Flags().GetString("seed")
		migrate(seed)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().String("seed", "", "catalog file (YAML or JSON) to load into the database")
}

func migrate(seed string) {
	ctx := context.Background()

	logger := newLogger()
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	env := &appEnv{config: config, logger: logger}
	if err := env.openDatabase(ctx); err != nil {
		logger.Fatal("opening database", zap.Error(err))
	}
	if env.db == nil {
		logger.Fatal("database is required", zap.String("hint", "set database.dsn or BROKER_GENIE_DATABASE_DSN"))
	}
	defer env.db.Close()

	if err := postgres.Migrate(ctx, env.db); err != nil {
		logger.Fatal("migrating", zap.Error(err))
	}
	logger.Info("schema is up to date")

	if seed == "" {
		return
	}

	data, err := os.ReadFile(seed)
	if err != nil {
		logger.Fatal("reading seed catalog", zap.Error(err))
	}
	doc, err := catalog.Parse(data)
	if err != nil {
		logger.Fatal("parsing seed catalog", zap.String("file", seed), zap.Error(err))
	}

	if err := postgres.NewPlanRepo(env.db).Seed(ctx, doc); err != nil {
		logger.Fatal("seeding catalog", zap.Error(err))
	}
	logger.Info("catalog seeded", zap.Int("plans", len(doc.Plans)))

	if err := env.openRedis(ctx); err != nil {
		logger.Warn("skipping cache invalidation", zap.Error(err))
		return
	}
	if env.redis != nil {
		defer env.redis.Close()
		if err := catalog.NewCached(nil, env.redis, 0, logger).Invalidate(ctx); err != nil {
			logger.Warn("invalidating catalog cache", zap.Error(err))
		}
	}
}
