package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is sent when fetching pages. Some sites serve bots a
// stripped-down page, so a desktop browser string is used.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// ServerConfig holds runtime settings. Values come from the file named by
// AUDIT_CONFIG (default config/server.json; .yaml and .yml are read as YAML)
// and are then overridden by environment variables.
type ServerConfig struct {
	Port               string   `json:"port" yaml:"port"`
	LogLevel           string   `json:"logLevel" yaml:"log_level"`
	RedisURL           string   `json:"redisUrl" yaml:"redis_url"`
	FetchTimeout       Duration `json:"fetchTimeout" yaml:"fetch_timeout"`
	MaxPageBytes       int64    `json:"maxPageBytes" yaml:"max_page_bytes"`
	MaxRedirects       int      `json:"maxRedirects" yaml:"max_redirects"`
	UserAgent          string   `json:"userAgent" yaml:"user_agent"`
	ReportCacheTTL     Duration `json:"reportCacheTtl" yaml:"report_cache_ttl"`
	RateLimitPerMinute int      `json:"rateLimitPerMinute" yaml:"rate_limit_per_minute"`
	AllowPrivateHosts  bool     `json:"allowPrivateHosts" yaml:"allow_private_hosts"`
	SigningSecret      string   `json:"-" yaml:"-"`
}

// Duration is a time.Duration that reads "10s" style strings from JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

var (
	serverConfig     *ServerConfig
	serverConfigMu   sync.RWMutex
	serverConfigOnce sync.Once
)

// GetServerConfig returns the current configuration (thread-safe)
func GetServerConfig() *ServerConfig {
	serverConfigOnce.Do(func() {
		serverConfigMu.Lock()
		defer serverConfigMu.Unlock()
		if serverConfig == nil {
			serverConfig = LoadServerConfig()
		}
	})

	serverConfigMu.RLock()
	defer serverConfigMu.RUnlock()
	return serverConfig
}

// ReloadServerConfig re-reads the file and environment
func ReloadServerConfig() {
	newConfig := LoadServerConfig()
	serverConfigMu.Lock()
	defer serverConfigMu.Unlock()
	serverConfig = newConfig
	slog.Info("server configuration reloaded")
}

// DefaultServerConfig returns the built-in settings.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:               "8080",
		LogLevel:           "info",
		FetchTimeout:       Duration(10 * time.Second),
		MaxPageBytes:       5 * 1024 * 1024,
		MaxRedirects:       10,
		UserAgent:          DefaultUserAgent,
		ReportCacheTTL:     Duration(5 * time.Minute),
		RateLimitPerMinute: 30,
	}
}

// LoadServerConfig builds a fresh configuration from defaults, file and env.
func LoadServerConfig() *ServerConfig {
	cfg := DefaultServerConfig()

	configPath := os.Getenv("AUDIT_CONFIG")
	if configPath == "" {
		configPath = "config/server.json"
	}

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		slog.Debug("server config file not found, using defaults", "path", configPath)
	case err != nil:
		slog.Warn("could not read server config, using defaults", "path", configPath, "error", err)
	default:
		if err := decodeConfig(configPath, data, cfg); err != nil {
			slog.Error("invalid server config, using defaults", "path", configPath, "error", err)
			cfg = DefaultServerConfig()
		}
	}

	applyEnv(cfg)
	return cfg
}

func decodeConfig(path string, data []byte, cfg *ServerConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func applyEnv(cfg *ServerConfig) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("REPORT_SIGNING_SECRET"); v != "" {
		cfg.SigningSecret = v
	}
	if v := os.Getenv("ALLOW_PRIVATE_HOSTS"); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("ignoring invalid ALLOW_PRIVATE_HOSTS", "value", v)
		} else {
			cfg.AllowPrivateHosts = allow
		}
	}
	envDuration("FETCH_TIMEOUT", &cfg.FetchTimeout)
	envDuration("REPORT_CACHE_TTL", &cfg.ReportCacheTTL)
	envInt("MAX_REDIRECTS", &cfg.MaxRedirects)
	envInt("RATE_LIMIT_PER_MINUTE", &cfg.RateLimitPerMinute)

	if v := os.Getenv("MAX_PAGE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			slog.Warn("ignoring invalid MAX_PAGE_BYTES", "value", v)
		} else {
			cfg.MaxPageBytes = n
		}
	}
}

func envDuration(name string, dst *Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("ignoring invalid duration", "env", name, "value", v, "error", err)
		return
	}
	*dst = Duration(d)
}

func envInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		slog.Warn("ignoring invalid integer", "env", name, "value", v)
		return
	}
	*dst = n
}
