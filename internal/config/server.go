package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Server backends.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// ServerConfig holds the resolved API server settings.
type ServerConfig struct {
	Addr         string
	Backend      string
	DBPath       string
	MongoURI     string
	MongoDB      string
	JWTSecret    string
	JWTTTL       time.Duration
	LogFile      string
	Debug        bool
	SecureCookie bool
}

// LoadServerConfig resolves server settings and requires a JWT secret.
func LoadServerConfig(file FileConfig, dotEnvPath string) (ServerConfig, error) {
	cfg, err := ResolveServerConfig(file, dotEnvPath)
	if err != nil {
		return ServerConfig{}, err
	}
	if cfg.JWTSecret == "" {
		return ServerConfig{}, fmt.Errorf("CPCTPREP_JWT_SECRET is not set")
	}
	return cfg, nil
}

// ResolveServerConfig resolves server settings without requiring a secret.
// Precedence, lowest first: built-in defaults, the [server] table, the .env
// file, the process environment.
func ResolveServerConfig(file FileConfig, dotEnvPath string) (ServerConfig, error) {
	if dotEnvPath != "" {
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return ServerConfig{}, fmt.Errorf("failed to load %s: %w", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			return ServerConfig{}, fmt.Errorf("failed to stat %s: %w", dotEnvPath, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("CPCTPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("backend", BackendSQLite)
	v.SetDefault("db-path", DefaultDBPath())
	v.SetDefault("mongo-uri", "mongodb://localhost:27017")
	v.SetDefault("mongo-db", "cpctprep")
	v.SetDefault("jwt-secret", "")
	v.SetDefault("jwt-ttl", "12h")
	v.SetDefault("log-file", "")
	v.SetDefault("debug", false)
	v.SetDefault("secure-cookie", false)

	s := file.Server
	setIf(v, "addr", s.Addr)
	setIf(v, "backend", s.Backend)
	setIf(v, "mongo-uri", s.MongoURI)
	setIf(v, "mongo-db", s.MongoDB)
	setIf(v, "jwt-ttl", s.JWTTTL)
	setIf(v, "log-file", s.LogFile)
	setIf(v, "debug", s.Debug)
	setIf(v, "secure-cookie", s.SecureCook)

	ttl, err := time.ParseDuration(v.GetString("jwt-ttl"))
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid jwt-ttl: %w", err)
	}
	if ttl <= 0 {
		return ServerConfig{}, fmt.Errorf("jwt-ttl must be positive")
	}

	cfg := ServerConfig{
		Addr:         v.GetString("addr"),
		Backend:      strings.ToLower(v.GetString("backend")),
		DBPath:       v.GetString("db-path"),
		MongoURI:     v.GetString("mongo-uri"),
		MongoDB:      v.GetString("mongo-db"),
		JWTSecret:    v.GetString("jwt-secret"),
		JWTTTL:       ttl,
		LogFile:      v.GetString("log-file"),
		Debug:        v.GetBool("debug"),
		SecureCookie: v.GetBool("secure-cookie"),
	}
	switch cfg.Backend {
	case BackendSQLite, BackendMongo:
	default:
		return ServerConfig{}, fmt.Errorf("unknown backend %q (want %s or %s)", cfg.Backend, BackendSQLite, BackendMongo)
	}
	return cfg, nil
}

func setIf[T any](v *viper.Viper, key string, val *T) {
	if val != nil {
		v.SetDefault(key, *val)
	}
}
