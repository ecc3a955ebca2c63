package config

// Config represents the full application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	GitHub        GitHubConfig        `yaml:"github"`
	Generator     GeneratorConfig     `yaml:"generator"`
	HTTP          HTTPConfig          `yaml:"http"`
	Cache         CacheConfig         `yaml:"cache"`
	Review        ReviewConfig        `yaml:"review"`
	Git           GitConfig           `yaml:"git"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds the webhook server settings.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	WebhookSecret string `yaml:"webhookSecret"`
}

// GitHubConfig holds API credentials for posting comments.
type GitHubConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"baseURL,omitempty"`
}

// GeneratorConfig selects and configures the comment generator.
// Provider is "openrouter" or "static".
type GeneratorConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseURL,omitempty"`
}

// HTTPConfig holds global HTTP client settings.
type HTTPConfig struct {
	Timeout           string  `yaml:"timeout"`
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// CacheConfig selects the dedup KV backend.
// Backend is "sqlite", "redis", or "memory".
type CacheConfig struct {
	Backend        string `yaml:"backend"`
	Path           string `yaml:"path"`       // sqlite database file
	RedisURL       string `yaml:"redisURL"`   // Upstash REST endpoint
	RedisToken     string `yaml:"redisToken"` // Upstash REST token
	TTLSeconds     int    `yaml:"ttlSeconds"`
	FlagTTLSeconds int    `yaml:"flagTTLSeconds"`
}

// ReviewConfig carries reviewer behavior settings.
type ReviewConfig struct {
	// Instructions is passed opaquely to the generator as extra reviewer
	// guidance, e.g. a house style or areas of focus.
	Instructions string `yaml:"instructions"`
}

// GitConfig holds settings for local review mode.
type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures the structured HTTP logger.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Level         string `yaml:"level"`
	Format        string `yaml:"format"` // "human" or "json"
	RedactAPIKeys bool   `yaml:"redactAPIKeys"`
}
