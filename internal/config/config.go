// Package config loads and validates server configuration from a YAML
// file, with defaults for every knob so an empty file is a running server.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	AI       AIConfig       `mapstructure:"ai"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	ReplayDir string          `mapstructure:"replay_dir"` // empty disables replay recording
}

// WebSocketConfig configures the gateway listener.
type WebSocketConfig struct {
	Address         string        `mapstructure:"address"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
}

// DatabaseConfig configures the optional Postgres connection. An empty URL
// disables persistence.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	HealthCheckFreq time.Duration `mapstructure:"health_check_freq"`
}

// GameConfig holds the rule-set knobs.
type GameConfig struct {
	GridWidth       int           `mapstructure:"grid_width"`
	GridHeight      int           `mapstructure:"grid_height"`
	HandSize        int           `mapstructure:"hand_size"`
	VictoryPoints   int           `mapstructure:"victory_points"`
	MinVictoryLead  int           `mapstructure:"min_victory_lead"`
	MaxRounds       int           `mapstructure:"max_rounds"`
	ChallengeWindow time.Duration `mapstructure:"challenge_window"`
	BattleTimeout   time.Duration `mapstructure:"battle_timeout"`
	PacingDelay     time.Duration `mapstructure:"pacing_delay"`
	Scoring         ScoringConfig `mapstructure:"scoring"`
}

// ScoringConfig holds the point weights.
type ScoringConfig struct {
	BattleWin        int `mapstructure:"battle_win"`
	Advancement      int `mapstructure:"advancement"`
	Control          int `mapstructure:"control"`
	ChallengePenalty int `mapstructure:"challenge_penalty"`
}

// AIConfig selects the computer opponent's difficulty.
type AIConfig struct {
	Difficulty string `mapstructure:"difficulty"` // easy, medium, hard
}

// Load reads the configuration file at path, applying defaults for any
// missing values. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	// A present-but-broken file is a hard error; absence just means
	// defaults.
	if _, statErr := os.Stat(path); statErr == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.websocket.address", ":8081")
	v.SetDefault("server.websocket.read_buffer_size", 1024)
	v.SetDefault("server.websocket.write_buffer_size", 1024)
	v.SetDefault("server.websocket.write_timeout", 10*time.Second)
	v.SetDefault("server.replay_dir", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.connect_timeout", 5*time.Second)
	v.SetDefault("database.health_check_freq", time.Minute)

	v.SetDefault("game.grid_width", 5)
	v.SetDefault("game.grid_height", 3)
	v.SetDefault("game.hand_size", 5)
	v.SetDefault("game.victory_points", 10)
	v.SetDefault("game.min_victory_lead", 2)
	v.SetDefault("game.max_rounds", 50)
	v.SetDefault("game.challenge_window", 5*time.Second)
	v.SetDefault("game.battle_timeout", 2*time.Second)
	v.SetDefault("game.pacing_delay", time.Duration(0))
	v.SetDefault("game.scoring.battle_win", 1)
	v.SetDefault("game.scoring.advancement", 1)
	v.SetDefault("game.scoring.control", 1)
	v.SetDefault("game.scoring.challenge_penalty", 1)

	v.SetDefault("ai.difficulty", "medium")
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}
	if c.Game.GridWidth <= 1 || c.Game.GridHeight <= 0 {
		return fmt.Errorf("invalid grid dimensions %dx%d", c.Game.GridWidth, c.Game.GridHeight)
	}
	if c.Game.HandSize <= 0 {
		return fmt.Errorf("invalid hand size %d", c.Game.HandSize)
	}
	if c.Game.ChallengeWindow < time.Second || c.Game.ChallengeWindow > 30*time.Second {
		return fmt.Errorf("challenge window %s outside 1s-30s bounds", c.Game.ChallengeWindow)
	}
	switch c.AI.Difficulty {
	case "easy", "medium", "hard":
	default:
		return fmt.Errorf("invalid AI difficulty %q", c.AI.Difficulty)
	}
	return nil
}
