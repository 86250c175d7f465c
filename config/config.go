package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	BackendMinio = "minio"
	BackendGCS   = "gcs"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Auth     AuthConfig     `koanf:"auth"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Storage  StorageConfig  `koanf:"storage"`
	Log      LogConfig      `koanf:"log"`
	Admin    AdminConfig    `koanf:"admin"`
}

type ServerConfig struct {
	Port           int      `koanf:"port"`
	CookieSecure   bool     `koanf:"cookie_secure"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	// TokenTTL of zero issues tokens that never expire.
	TokenTTL           time.Duration `koanf:"token_ttl"`
	PasswordIterations int           `koanf:"password_iterations"`
}

type DatabaseConfig struct {
	Driver   string `koanf:"driver"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"name"`
	UseSSL   bool   `koanf:"use_ssl"`
}

type RedisConfig struct {
	// URL is optional; without it author lookups are not cached.
	URL string        `koanf:"url"`
	TTL time.Duration `koanf:"ttl"`
}

type StorageConfig struct {
	Backend string      `koanf:"backend"`
	Prefix  string      `koanf:"prefix"`
	Minio   MinioConfig `koanf:"minio"`
	GCS     GCSConfig   `koanf:"gcs"`
}

type MinioConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `koanf:"bucket"`
	ProjectID       string `koanf:"project_id"`
	CredentialsFile string `koanf:"credentials_file"`
}

type LogConfig struct {
	Development bool   `koanf:"development"`
	Level       string `koanf:"level"`
}

// AdminConfig bootstraps an Admin account at startup when all fields are set.
type AdminConfig struct {
	Username string `koanf:"username"`
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
}

// Enabled reports whether an admin account should be bootstrapped.
func (a AdminConfig) Enabled() bool {
	return a.Username != "" && a.Email != "" && a.Password != ""
}

var defaults = map[string]any{
	"server.port":               8080,
	"server.cookie_secure":      true,
	"server.allowed_origins":    []string{"http://localhost:3000"},
	"auth.token_ttl":            "0s",
	"auth.password_iterations":  10000,
	"database.driver":           DriverPostgres,
	"database.host":             "localhost",
	"database.port":             5432,
	"database.user":             "whiteboard",
	"database.password":         "password",
	"database.name":             "whiteboard_db",
	"database.use_ssl":          false,
	"redis.ttl":                 "10m",
	"storage.backend":           BackendMinio,
	"storage.prefix":            "snapshots",
	"storage.minio.endpoint":    "localhost:9000",
	"storage.minio.bucket":      "whiteboard",
	"log.development":           false,
	"log.level":                 "info",
}

var envKeys = map[string]string{
	"SERVER_PORT":          "server.port",
	"COOKIE_SECURE":        "server.cookie_secure",
	"FRONTEND_ORIGIN":      "server.allowed_origins",
	"JWT_SECRET":           "auth.jwt_secret",
	"TOKEN_TTL":            "auth.token_ttl",
	"PASSWORD_ITERATIONS":  "auth.password_iterations",
	"DB_DRIVER":            "database.driver",
	"DB_HOST":              "database.host",
	"DB_PORT":              "database.port",
	"DB_USER":              "database.user",
	"DB_PASSWORD":          "database.password",
	"DB_NAME":              "database.name",
	"DB_USE_SSL":           "database.use_ssl",
	"REDIS_URL":            "redis.url",
	"REDIS_TTL":            "redis.ttl",
	"STORAGE_BACKEND":      "storage.backend",
	"STORAGE_PREFIX":       "storage.prefix",
	"MINIO_ENDPOINT":       "storage.minio.endpoint",
	"MINIO_ACCESS_KEY":     "storage.minio.access_key",
	"MINIO_SECRET_KEY":     "storage.minio.secret_key",
	"MINIO_BUCKET":         "storage.minio.bucket",
	"MINIO_USE_SSL":        "storage.minio.use_ssl",
	"GCS_BUCKET":           "storage.gcs.bucket",
	"GCS_PROJECT_ID":       "storage.gcs.project_id",
	"GCS_CREDENTIALS_FILE": "storage.gcs.credentials_file",
	"LOG_DEVELOPMENT":      "log.development",
	"LOG_LEVEL":            "log.level",
	"ADMIN_USERNAME":       "admin.username",
	"ADMIN_EMAIL":          "admin.email",
	"ADMIN_PASSWORD":       "admin.password",
}

var flagKeys = map[string]string{
	"port":            "server.port",
	"db-driver":       "database.driver",
	"log-development": "log.development",
	"storage-backend": "storage.backend",
}

// RegisterFlags adds the command line overrides understood by LoadConfig.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.Int("port", 8080, "HTTP listen port")
	fs.String("db-driver", DriverPostgres, "storage driver: postgres or memory")
	fs.Bool("log-development", false, "human readable development logging")
	fs.String("storage-backend", BackendMinio, "snapshot storage backend: minio or gcs")
}

// LoadConfig layers defaults, an optional YAML file, the environment and
// changed command line flags, in that order. fs may be nil.
func LoadConfig(fs *pflag.FlagSet) (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	path := os.Getenv("CONFIG_FILE")
	if fs != nil {
		if value, err := fs.GetString("config"); err == nil && value != "" {
			path = value
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if fs != nil {
		flags := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(flags, nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Storage.Backend {
	case BackendMinio, BackendGCS:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Auth.TokenTTL < 0 {
		return errors.New("token ttl cannot be negative")
	}
	return nil
}

// envTransform maps the documented environment variables onto config keys
// and drops everything else.
func envTransform(name, value string) (string, any) {
	key, ok := envKeys[name]
	if !ok {
		return "", nil
	}
	if key == "server.allowed_origins" {
		return key, splitList(value)
	}
	return key, value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
