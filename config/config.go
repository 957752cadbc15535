// Package config loads server configuration from, in increasing priority,
// built-in defaults, an optional YAML file and the environment. A .env
// file in the working directory is loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the YAML config file location.
const PathEnvVar = "CONFIG_PATH"

var DefaultPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Mongo     MongoConfig     `koanf:"mongo"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	Log       LogConfig       `koanf:"log"`
	Seed      SeedConfig      `koanf:"seed"`
	Recommend RecommendConfig `koanf:"recommend"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
	// CORSOrigins is a comma separated list; "*" allows any origin.
	CORSOrigins string `koanf:"cors_origins"`
}

// Origins splits CORSOrigins.
func (c HTTPConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	DB       int    `koanf:"db"`
	Password string `koanf:"password"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	// RateLimit is the number of /auth requests allowed per IP per minute.
	RateLimit int `koanf:"rate_limit"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type SeedConfig struct {
	File string `koanf:"file"`
}

type RecommendConfig struct {
	Radius     float64 `koanf:"radius"`
	MaxRadius  float64 `koanf:"max_radius"`
	MinResults int     `koanf:"min_results"`
	Limit      int     `koanf:"limit"`
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:        ":8080",
			CORSOrigins: "http://localhost:3000,http://localhost:5173",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "poi_db",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Auth: AuthConfig{
			RateLimit: 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Seed: SeedConfig{
			File: "./data/sg-pois.json",
		},
		Recommend: RecommendConfig{
			Radius:     2000,
			MaxRadius:  16000,
			MinResults: 5,
			Limit:      10,
		},
	}
}

var envMappings = map[string]string{
	"http_addr":             "http.addr",
	"cors_origins":          "http.cors_origins",
	"mongodb_uri":           "mongo.uri",
	"mongodb_database":      "mongo.database",
	"redis_addr":            "redis.addr",
	"redis_db":              "redis.db",
	"redis_password":        "redis.password",
	"jwt_secret":            "auth.jwt_secret",
	"auth_rate_limit":       "auth.rate_limit",
	"log_level":             "log.level",
	"log_format":            "log.format",
	"seed_file":             "seed.file",
	"recommend_radius":      "recommend.radius",
	"recommend_max_radius":  "recommend.max_radius",
	"recommend_min_results": "recommend.min_results",
	"recommend_limit":       "recommend.limit",
}

// envTransform maps known environment variables onto koanf paths and drops
// everything else.
func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	// Missing .env is fine, the environment may already be set.
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("MONGODB_URI is not set"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is not set"))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("invalid REDIS_DB value: %d", c.Redis.DB))
	}
	if c.Auth.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("invalid AUTH_RATE_LIMIT value: %d", c.Auth.RateLimit))
	}
	if c.Recommend.Radius <= 0 || c.Recommend.MaxRadius < c.Recommend.Radius {
		errs = append(errs, fmt.Errorf("invalid recommend radius %.0f / max %.0f", c.Recommend.Radius, c.Recommend.MaxRadius))
	}
	if c.Recommend.MinResults <= 0 || c.Recommend.Limit <= 0 {
		errs = append(errs, errors.New("recommend min_results and limit must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
