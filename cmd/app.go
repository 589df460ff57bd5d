package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/activity"
	"github.com/spigell/broker-genie/internal/ai"
	"github.com/spigell/broker-genie/internal/ai/gemini"
	"github.com/spigell/broker-genie/internal/ai/rules"
	"github.com/spigell/broker-genie/internal/catalog"
	"github.com/spigell/broker-genie/internal/clients"
	"github.com/spigell/broker-genie/internal/intake"
	"github.com/spigell/broker-genie/internal/logger"
	"github.com/spigell/broker-genie/internal/secrets"
	"github.com/spigell/broker-genie/internal/store/postgres"
)

// appEnv holds everything a command needs. Storage falls back to memory when no database is configured.
type appEnv struct {
	config   *Config
	logger   *zap.Logger
	db       *sql.DB
	redis    *redis.Client
	catalog  catalog.Source
	clients  clients.Repository
	activity activity.Store
}

func newLogger() *zap.Logger {
	// Logs go to stderr so that printed plans, answers and clients can be piped.
	l, err := logger.New(logger.Options{JSON: viper.GetBool("json"), Debug: viper.GetBool("debug"), Output: "stderr"})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// setup builds the environment or exits through the logger.
func setup(ctx context.Context) *appEnv {
	l := newLogger()

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	l.Info("starting the broker-genie", zap.String("version", version))

	rt := &appEnv{config: config, logger: l}
	if err := rt.open(ctx); err != nil {
		rt.close()
		l.Fatal("initializing", zap.Error(err))
	}

	return rt
}

func (rt *appEnv) open(ctx context.Context) error {
	if err := rt.openDatabase(ctx); err != nil {
		return err
	}
	if err := rt.openRedis(ctx); err != nil {
		return err
	}

	src, err := rt.catalogSource()
	if err != nil {
		return err
	}
	rt.catalog = src

	var store activity.Recorder
	if rt.db != nil {
		rt.clients = postgres.NewClientRepo(rt.db)
		store = postgres.NewActivityRepo(rt.db)
	} else {
		rt.logger.Warn("no database configured, clients and activity are kept in memory")
		rt.clients = clients.NewMemoryRepository()
		store = activity.NewMemory()
	}
	rt.activity = activity.NewLogRecorder(store, rt.logger)

	return nil
}

func (rt *appEnv) openDatabase(ctx context.Context) error {
	dsn, err := secrets.Optional(secrets.Source{
		Name:  "database dsn",
		Value: rt.config.Database.DSN,
		File:  rt.config.Database.DSNFile,
	})
	if err != nil {
		return err
	}
	if dsn == "" {
		return nil
	}

	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		return err
	}
	rt.db = db
	return nil
}

func (rt *appEnv) openRedis(ctx context.Context) error {
	cfg := rt.config.Redis
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil
	}

	password, err := secrets.Optional(secrets.Source{
		Name:  "redis password",
		Value: cfg.Password,
		File:  cfg.PasswordFile,
	})
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: password, DB: cfg.DB})
	// An unreachable Redis only disables caching.
	if err := rdb.Ping(ctx).Err(); err != nil {
		rt.logger.Warn("redis is unavailable, catalog is served uncached", zap.String("addr", cfg.Addr), zap.Error(err))
	}
	rt.redis = rdb
	return nil
}

func (rt *appEnv) catalogSource() (catalog.Source, error) {
	var src catalog.Source

	switch {
	case rt.config.Catalog.File != "":
		file, err := catalog.NewFile(rt.config.Catalog.File)
		if err != nil {
			return nil, err
		}
		rt.logger.Info("using catalog file", zap.String("file", rt.config.Catalog.File))
		src = file
	case rt.db != nil:
		rt.logger.Info("using catalog from the database")
		src = postgres.NewPlanRepo(rt.db)
	default:
		return nil, errors.New("no catalog configured: set catalog.file or database.dsn")
	}

	if rt.redis != nil {
		src = catalog.NewCached(src, rt.redis, rt.config.Catalog.CacheTTL, rt.logger)
	}
	return src, nil
}

func (rt *appEnv) intake() *intake.Service {
	return intake.New(rt.catalog, rt.clients, rt.activity, rt.logger)
}

// assistant returns the rules assistant, fronted by Gemini when ai is enabled and configured.
func (rt *appEnv) assistant(ctx context.Context) ai.Assistant {
	fallback := rules.New()

	cfg := rt.config.AI
	if !cfg.Enabled {
		return ai.NewFallback(nil, fallback, rt.logger)
	}

	primary, err := newGeminiAssistant(ctx, cfg, rt.logger)
	if err != nil {
		rt.logger.Warn("skipping gemini assistant", zap.Error(err))
		return ai.NewFallback(nil, fallback, rt.logger)
	}

	return ai.NewFallback(primary, fallback, rt.logger)
}

func newGeminiAssistant(ctx context.Context, cfg *AIConfig, l *zap.Logger) (ai.Assistant, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		Env:  "GEMINI_API_KEY",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	genLogger := logger.WithFields(l, logger.AIFields("gemini", cfg.Gemini.Model)...).
		With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewAssistant(generator, cfg.Gemini.MaxLogLength, logger.WithAIFields(l, "gemini", generator.Model())), nil
}

func (rt *appEnv) close() {
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.logger.Warn("closing redis", zap.Error(err))
		}
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			rt.logger.Warn("closing database", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}

func printJSON(v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}
