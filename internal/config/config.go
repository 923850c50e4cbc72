package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment    string        `mapstructure:"ENV"`
	DBDSN          string        `mapstructure:"DB_DSN"`
	HTTPAddr       string        `mapstructure:"HTTP_ADDR"`
	TelegramToken  string        `mapstructure:"TELEGRAM_TOKEN"`
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int           `mapstructure:"REDIS_DB"`
	SlotCacheTTL   time.Duration `mapstructure:"SLOT_CACHE_TTL"`
	Timezone       string        `mapstructure:"TIMEZONE"`
	MigrationsPath string        `mapstructure:"MIGRATIONS_PATH"`
	WarmInterval   time.Duration `mapstructure:"WARM_INTERVAL"`
	WarmDays       int           `mapstructure:"WARM_DAYS"`
}

var keys = []string{
	"ENV",
	"DB_DSN",
	"HTTP_ADDR",
	"TELEGRAM_TOKEN",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"REDIS_DB",
	"SLOT_CACHE_TTL",
	"TIMEZONE",
	"MIGRATIONS_PATH",
	"WARM_INTERVAL",
	"WARM_DAYS",
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	return fromEnv()
}

// fromEnv читает конфиг из переменных окружения (после godotenv.Load они там)
func fromEnv() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SLOT_CACHE_TTL", 5*time.Minute)
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("MIGRATIONS_PATH", "./migrations")
	v.SetDefault("WARM_INTERVAL", 15*time.Minute)
	v.SetDefault("WARM_DAYS", 7)

	// Без BindEnv Unmarshal не видит ключи без дефолта
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required but not set")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.WarmDays < 0 {
		return fmt.Errorf("WARM_DAYS must not be negative, got %d", c.WarmDays)
	}
	if c.SlotCacheTTL < 0 {
		return fmt.Errorf("SLOT_CACHE_TTL must not be negative, got %s", c.SlotCacheTTL)
	}
	return nil
}

// Location часовой пояс клиники, в нём интерпретируются окна приёма
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// BotEnabled бот запускается только при заданном токене
func (c *Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

// CacheEnabled кэш слотов включается при заданном адресе Redis
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != "" && c.SlotCacheTTL > 0
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}
