package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kanbanpizza/server/internal/game"
)

// Config is the full server configuration: environment for deployment
// concerns, optional YAML file for gameplay tuning.
type Config struct {
	HTTPAddr string
	NATSURL  string // empty disables fan-out
	Database DatabaseConfig
	Rules    game.Rules
}

// DatabaseConfig holds Postgres connection settings. An empty Host disables
// score persistence.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the Postgres connection URL.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// tuning is the YAML gameplay-tuning file shape. Durations are in seconds.
type tuning struct {
	MaxRounds         int `yaml:"max_rounds"`
	RoundDuration     int `yaml:"round_duration"`
	DebriefDuration   int `yaml:"debrief_duration"`
	MaxPizzasInOven   int `yaml:"max_pizzas_in_oven"`
	OrderCount        int `yaml:"order_count"`
	OrderWindowMargin int `yaml:"order_window_margin"`
	OrderReleaseBatch int `yaml:"order_release_batch"`
}

// Load reads configuration from the environment, plus the YAML tuning file
// named by GAME_CONFIG when set.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		NATSURL:  getEnv("NATS_URL", ""),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "kanban_pizza"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Rules: game.DefaultRules(),
	}

	if path := os.Getenv("GAME_CONFIG"); path != "" {
		rules, err := loadTuning(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Rules = rules
	}
	return cfg, nil
}

func loadTuning(path string) (game.Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return game.Rules{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var t tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return game.Rules{}, fmt.Errorf("failed to parse config: %w", err)
	}

	rules := game.DefaultRules()
	if t.MaxRounds > 0 {
		rules.MaxRounds = t.MaxRounds
	}
	if t.RoundDuration > 0 {
		rules.RoundDuration = time.Duration(t.RoundDuration) * time.Second
	}
	if t.DebriefDuration > 0 {
		rules.DebriefDuration = time.Duration(t.DebriefDuration) * time.Second
	}
	if t.MaxPizzasInOven > 0 {
		rules.MaxPizzasInOven = t.MaxPizzasInOven
	}
	if t.OrderCount > 0 {
		rules.OrderCount = t.OrderCount
	}
	if t.OrderWindowMargin > 0 {
		rules.OrderWindowMargin = time.Duration(t.OrderWindowMargin) * time.Second
	}
	if t.OrderReleaseBatch > 0 {
		rules.OrderReleaseBatch = t.OrderReleaseBatch
	}
	return rules, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
