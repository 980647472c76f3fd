package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Orders    OrdersConfig    `mapstructure:"orders"`
	Events    EventsConfig    `mapstructure:"events"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ClientOrigin    string        `mapstructure:"client_origin"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	FrontendDir     string        `mapstructure:"frontend_dir"`
	UploadDir       string        `mapstructure:"upload_dir"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver        string        `mapstructure:"driver"`
	MongoURI      string        `mapstructure:"mongo_uri"`
	MongoDatabase string        `mapstructure:"mongo_database"`
	PostgresDSN   string        `mapstructure:"postgres_dsn"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	OwnerPassword  string        `mapstructure:"owner_password"`
	OwnerJWTSecret string        `mapstructure:"owner_jwt_secret"`
	TableJWTSecret string        `mapstructure:"table_jwt_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
}

type OrdersConfig struct {
	// StrictTransitions enforces the adjacency table of the status pipeline.
	StrictTransitions bool `mapstructure:"strict_transitions"`
}

type EventsConfig struct {
	Driver string `mapstructure:"driver"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type RateLimitConfig struct {
	LoginRPS   float64 `mapstructure:"login_rps"`
	LoginBurst int     `mapstructure:"login_burst"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "4000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.client_origin", "http://localhost:3000")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.frontend_dir", "")
	v.SetDefault("server.upload_dir", "./uploads")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("database.mongo_database", "restaurant")
	v.SetDefault("database.postgres_dsn", "host=localhost user=postgres password=postgres dbname=restaurant port=5432 sslmode=disable")
	v.SetDefault("database.timeout", 10*time.Second)

	v.SetDefault("auth.owner_password", "change_me_owner_password")
	v.SetDefault("auth.owner_jwt_secret", "owner_secret")
	v.SetDefault("auth.table_jwt_secret", "table_secret")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	v.SetDefault("orders.strict_transitions", false)

	v.SetDefault("events.driver", "local")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "qrmenu:events")

	v.SetDefault("ratelimit.login_rps", 1.0)
	v.SetDefault("ratelimit.login_burst", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
}

// legacyEnv maps keys to the environment names used by earlier deployments.
var legacyEnv = map[string]string{
	"server.port":            "PORT",
	"server.mode":            "GIN_MODE",
	"server.client_origin":   "CLIENT_ORIGIN",
	"server.allowed_origins": "ALLOWED_ORIGINS",
	"database.mongo_uri":     "MONGO_URI",
	"database.postgres_dsn":  "DATABASE_DSN",
	"auth.owner_password":    "OWNER_PASSWORD",
	"auth.owner_jwt_secret":  "OWNER_JWT_SECRET",
	"auth.table_jwt_secret":  "TABLE_JWT_SECRET",
	"redis.addr":             "REDIS_ADDR",
}

// Load reads .env, the optional YAML file at configPath (or ./config.yaml when
// configPath is empty) and the environment, in increasing priority.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		upper := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, upper, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
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

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mongo", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Events.Driver {
	case "local", "redis":
	default:
		return fmt.Errorf("unsupported events driver %q", c.Events.Driver)
	}
	if c.Auth.OwnerPassword == "" {
		return errors.New("auth.owner_password must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if len(c.Server.Origins()) == 0 {
		return errors.New("server.client_origin or server.allowed_origins must be set")
	}
	if c.RateLimit.LoginRPS <= 0 || c.RateLimit.LoginBurst <= 0 {
		return errors.New("ratelimit.login_rps and ratelimit.login_burst must be positive")
	}
	return nil
}

// Origins returns the CORS allow-list: the client origin plus any extra origins.
func (s ServerConfig) Origins() []string {
	origins := []string{}
	seen := map[string]bool{}
	for _, o := range append([]string{s.ClientOrigin}, s.AllowedOrigins...) {
		o = strings.TrimSpace(o)
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	return origins
}
