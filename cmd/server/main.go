package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluffgrid/bluffgrid-server-go/internal/config"
	"github.com/bluffgrid/bluffgrid-server-go/internal/game"
	"github.com/bluffgrid/bluffgrid-server-go/internal/game/ai"
	"github.com/bluffgrid/bluffgrid-server-go/internal/repository"
	"github.com/bluffgrid/bluffgrid-server-go/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting bluffgrid server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize database. An empty URL disables match persistence.
	db, err := repository.NewDB(ctx, cfg.Database.URL, cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
	} else {
		logger.Info("running without database; matches will not be persisted")
	}
	matchRepo := repository.NewMatchRepository(db, logger)

	// Initialize game manager
	manager := game.NewManager(logger)
	logger.Info("game manager initialized")

	gameCfg := gameConfigFrom(cfg.Game)
	if err := gameCfg.Validate(); err != nil {
		logger.Fatal("invalid game configuration", zap.Error(err))
	}

	difficulty := ai.Difficulty(cfg.AI.Difficulty)
	factory := func(playerID string, grid *game.Grid, battle *game.BattleEngine) (game.Strategist, error) {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		return ai.New(playerID, difficulty, grid, battle, rng, logger)
	}

	gateway := server.New(
		server.Options{
			Address:         cfg.Server.WebSocket.Address,
			ReadBufferSize:  cfg.Server.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.Server.WebSocket.WriteBufferSize,
			WriteTimeout:    cfg.Server.WebSocket.WriteTimeout,
			ReplayDir:       cfg.Server.ReplayDir,
		},
		manager,
		gameCfg,
		factory,
		matchRepo,
		logger,
	)

	go func() {
		if wsErr := gateway.Start(); wsErr != nil {
			logger.Error("WebSocket server error", zap.Error(wsErr))
		}
	}()

	logger.Info("bluffgrid server initialized",
		zap.String("version", version),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.String("ai_difficulty", cfg.AI.Difficulty),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	logger.Info("bluffgrid server stopped")
}

func gameConfigFrom(gc config.GameConfig) game.Config {
	return game.Config{
		GridWidth:       gc.GridWidth,
		GridHeight:      gc.GridHeight,
		HandSize:        gc.HandSize,
		VictoryPoints:   gc.VictoryPoints,
		MinVictoryLead:  gc.MinVictoryLead,
		MaxRounds:       gc.MaxRounds,
		ChallengeWindow: gc.ChallengeWindow,
		BattleTimeout:   gc.BattleTimeout,
		PacingDelay:     gc.PacingDelay,
		Weights: game.ScoringWeights{
			BattleWin:        gc.Scoring.BattleWin,
			Advancement:      gc.Scoring.Advancement,
			Control:          gc.Scoring.Control,
			ChallengePenalty: gc.Scoring.ChallengePenalty,
		},
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
