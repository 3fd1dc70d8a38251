package config // package config loads application configuration from environment variables

import (
	"fmt"     // error formatting
	"log"     // fatal exit on invalid configuration
	"os"      // environment access
	"strconv" // numeric parsing
	"strings" // trimming and case folding
	"time"    // durations
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env         string        // APP_ENV (dev, test, prod)
	Port        string        // APP_PORT
	MetricsPort string        // METRICS_PORT, separate listener for /metrics, default 9090
	StoreDriver string        // STORE_DRIVER: mysql (default) or memory
	DBUser      string        // DB_USER
	DBPass      string        // DB_PASS (may be empty)
	DBHost      string        // DB_HOST
	DBPort      string        // DB_PORT
	DBName      string        // DB_NAME
	JWTSecret   string        // JWT_SECRET, HMAC signing key
	JWTIssuer   string        // JWT_ISSUER
	JWTAudience string        // JWT_AUDIENCE (optional)
	AccessTTL   time.Duration // ACCESS_TOKEN_TTL, default 1h
	RefreshTTL  time.Duration // REFRESH_TOKEN_TTL, default 168h
	BcryptCost  int           // BCRYPT_COST, default 10
	BrokerURL   string        // RABBITMQ_URL or AMQP_URL; empty disables registration events
	LogDir      string        // LOG_DIR for the registration consumer, default "logs"
}

// Load reads the configuration and exits the process when a required
// variable is missing or malformed.  The service must not start without a
// signing key and issuer.
func Load() Config {
	cfg, err := FromEnv(os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// FromEnv builds a Config from lookup, which has the signature of
// os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}
	cfg := Config{
		Env:         e.str("APP_ENV", "dev"),
		Port:        e.str("APP_PORT", "8080"),
		MetricsPort: e.str("METRICS_PORT", "9090"),
		StoreDriver: strings.ToLower(e.str("STORE_DRIVER", DriverMySQL)),
		DBPass:      e.str("DB_PASS", ""),
		JWTSecret:   e.must("JWT_SECRET"),
		JWTIssuer:   e.must("JWT_ISSUER"),
		JWTAudience: e.str("JWT_AUDIENCE", ""),
		AccessTTL:   e.dur("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTTL:  e.dur("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:  e.int("BCRYPT_COST", 10),
		BrokerURL:   e.str("RABBITMQ_URL", e.str("AMQP_URL", "")),
		LogDir:      e.str("LOG_DIR", "logs"),
	}
	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = e.must("DB_USER")
		cfg.DBHost = e.must("DB_HOST")
		cfg.DBPort = e.must("DB_PORT")
		cfg.DBName = e.must("DB_NAME")
	case DriverMemory:
	default:
		e.fail(fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver))
	}
	if cfg.MetricsPort == cfg.Port {
		e.fail(fmt.Errorf("METRICS_PORT must differ from APP_PORT"))
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		e.fail(fmt.Errorf("token lifetimes must be positive"))
	}
	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, nil
}

// env collects the first error so FromEnv can report it after reading
// everything.
type env struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *env) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return def
}

// must retrieves the value of a required variable.
func (e *env) must(key string) string {
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		e.fail(fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

func (e *env) int(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(fmt.Errorf("invalid int for %s: %q", key, v))
	}
	return n
}

// dur accepts Go duration strings ("90m") or whole seconds.
func (e *env) dur(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	e.fail(fmt.Errorf("invalid duration for %s: %q", key, v))
	return def
}
