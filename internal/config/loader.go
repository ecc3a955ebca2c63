package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment variables.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "sherpai"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "SHERPAI"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg = expandEnvVars(cfg)

	return cfg, nil
}

// ValidateForServe checks the credentials the webhook service cannot run
// without. Failures here are fatal at startup, never at delivery time.
func (c Config) ValidateForServe() error {
	var missing []string

	if c.Server.WebhookSecret == "" {
		missing = append(missing, "server.webhookSecret")
	}
	if c.GitHub.Token == "" {
		missing = append(missing, "github.token")
	}
	if c.Generator.Provider == "openrouter" && c.Generator.APIKey == "" {
		missing = append(missing, "generator.apiKey")
	}
	if c.Cache.Backend == "redis" && (c.Cache.RedisURL == "" || c.Cache.RedisToken == "") {
		missing = append(missing, "cache.redisURL/cache.redisToken")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateForLocal checks the settings local review mode needs.
func (c Config) ValidateForLocal() error {
	if c.Generator.Provider == "openrouter" && c.Generator.APIKey == "" {
		return errors.New("missing required configuration: generator.apiKey")
	}
	return nil
}

// expandEnvVars expands ${VAR} and $VAR syntax in configuration strings.
func expandEnvVars(cfg Config) Config {
	cfg.Server.WebhookSecret = expandEnvString(cfg.Server.WebhookSecret)
	cfg.GitHub.Token = expandEnvString(cfg.GitHub.Token)
	cfg.Generator.APIKey = expandEnvString(cfg.Generator.APIKey)
	cfg.Generator.Model = expandEnvString(cfg.Generator.Model)
	cfg.Cache.RedisURL = expandEnvString(cfg.Cache.RedisURL)
	cfg.Cache.RedisToken = expandEnvString(cfg.Cache.RedisToken)
	cfg.Cache.Path = expandEnvString(cfg.Cache.Path)
	cfg.Git.RepositoryDir = expandEnvString(cfg.Git.RepositoryDir)
	return cfg
}

// expandEnvString replaces ${VAR} or $VAR with environment variable values.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	re := regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")

	// HTTP defaults
	v.SetDefault("http.timeout", "60s")
	v.SetDefault("http.maxRetries", 3)
	v.SetDefault("http.initialBackoff", "2s")
	v.SetDefault("http.maxBackoff", "32s")
	v.SetDefault("http.backoffMultiplier", 2.0)

	// Generator defaults: static works without credentials, which keeps
	// first-run and CI setups from failing on a missing key.
	v.SetDefault("generator.provider", "static")
	v.SetDefault("generator.model", "anthropic/claude-3.5-sonnet")

	// Cache defaults
	v.SetDefault("cache.backend", "sqlite")
	v.SetDefault("cache.path", "sherpai.db")
	v.SetDefault("cache.ttlSeconds", 345600)
	v.SetDefault("cache.flagTTLSeconds", 86400)

	// Observability defaults
	v.SetDefault("observability.logging.enabled", true)
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "human")
	v.SetDefault("observability.logging.redactAPIKeys", true)
}
