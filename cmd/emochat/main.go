package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/congde/emochat/internal/api"
	"github.com/congde/emochat/internal/blobstore"
	"github.com/congde/emochat/internal/config"
	ctxbundle "github.com/congde/emochat/internal/context"
	"github.com/congde/emochat/internal/embedding"
	"github.com/congde/emochat/internal/emotion"
	"github.com/congde/emochat/internal/memory"
	"github.com/congde/emochat/internal/orchestrator"
	"github.com/congde/emochat/internal/protocol"
	"github.com/congde/emochat/internal/provider"
	pgstore "github.com/congde/emochat/internal/store"
	"github.com/congde/emochat/internal/tools"
	"github.com/congde/emochat/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting emochat...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/emochat.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// PostgreSQL holds sessions, turns, memory rows and follow-ups.
	pg, err := pgstore.New(cfg.Database.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("PostgreSQL unavailable", zap.Error(err))
	}
	if err := pg.Migrate(context.Background(), "migrations"); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// Embedding provider
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		logger.Fatal("embedding config invalid", zap.Error(err))
	}

	// Qdrant similarity index. An unreachable index degrades memory
	// operations at request time rather than blocking startup.
	index, err := vectorstore.NewIndex(cfg.Database.Qdrant)
	if err != nil {
		logger.Fatal("qdrant config invalid", zap.Error(err))
	}
	if err := index.EnsureCollection(context.Background(), uint64(cfg.Embedding.Dimension)); err != nil {
		logger.Warn("qdrant unreachable, memory retrieval will degrade", zap.Error(err))
	}

	mem := memory.NewStore(index, pg.Records(), embedder, memory.DefaultRankConfig(), logger)
	profiler := memory.NewProfiler(pg.Records())

	// Offload storage: Redis when configured, in-process otherwise.
	var blobs blobstore.Store = blobstore.NewMemory()
	var redisBlobs *blobstore.Redis
	if cfg.Database.Redis.URL != "" {
		rb, rbErr := blobstore.NewRedis(cfg.Database.Redis.URL, 24*time.Hour, logger)
		if rbErr != nil {
			logger.Warn("Redis unavailable, offloading in process", zap.Error(rbErr))
		} else {
			blobs = rb
			redisBlobs = rb
		}
	}

	manager := ctxbundle.NewManager(cfg.Context.Budget(), blobs, logger)
	assembler := ctxbundle.NewAssembler(mem, profiler, manager, logger)

	// Tool registry with built-ins bound to the memory store.
	registry := tools.NewRegistry()
	tools.RegisterBuiltin(registry, mem)

	// Generation: primary provider first, fallbacks in declared order.
	router := provider.NewRouter(logger)
	router.Register(cfg.Generation.Primary.ID, provider.NewClient(cfg.Generation.Primary, logger))
	for _, pc := range cfg.Generation.Fallbacks {
		router.Register(pc.ID, provider.NewClient(pc, logger))
	}

	trace := protocol.NewTraceLog(protocol.DefaultTraceCap, logger)
	experience := orchestrator.NewExperienceLog(orchestrator.DefaultExperienceCap)

	pipeline := orchestrator.NewPipeline(orchestrator.Deps{
		Emotion:    emotion.NewKeywordAnalyzer(),
		Memory:     mem,
		Assembler:  assembler,
		Planner:    orchestrator.NewRulePlanner(registry),
		Tools:      registry,
		Generator:  router,
		History:    pg,
		FollowUps:  pg.FollowUps(),
		Trace:      trace,
		Experience: experience,
		Logger:     logger,
		Preamble:   cfg.Generation.Preamble,
	})

	handler := api.NewHandler(pipeline, mem, pg, pg.FollowUps(), trace, experience, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("emochat listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down emochat...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	if redisBlobs != nil {
		redisBlobs.Close()
	}
	index.Close()
	pg.Close()
}
