package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig
	HTTP     HTTPConfig
	Broker   BrokerConfig
	Relay    RelayConfig
	LogFile  string
	Engine   EngineFile
}

type DatabaseConfig struct {
	Driver string // postgres or sqlite
	URL    string
	Path   string
}

type HTTPConfig struct {
	Addr string
}

type BrokerConfig struct {
	URL      string
	Exchange string
}

type RelayConfig struct {
	Cron  string
	Batch int
}

// EngineFile is the yaml file next to the binary
type EngineFile struct {
	Templates map[string]TemplateConfig `yaml:"templates"`
}

type TemplateConfig struct {
	Title   string `yaml:"title"`
	Message string `yaml:"message"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "postgres"),
			URL:    os.Getenv("DATABASE_URL"),
			Path:   getEnv("DB_PATH", "engine.db"),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Broker: BrokerConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: getEnv("NOTIFY_EXCHANGE", "office.notifications"),
		},
		Relay: RelayConfig{
			Cron:  getEnv("RELAY_CRON", "@every 30s"),
			Batch: getEnvInt("RELAY_BATCH", 50),
		},
		LogFile: getEnv("LOG_FILE", "engine.log"),
	}

	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case "sqlite":
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Database.Driver)
	}

	if err := cfg.loadEngineFile(getEnv("CONFIG_FILE", "config/engine.yaml")); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadEngineFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, &c.Engine); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
