package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/questionbank-api/pkg/executor"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName      string
	AppEnv       string
	AppPort      string
	BodyLimitMB  int
	AllowOrigins []string
	JWTSecret    string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	DatabaseURL string
	AutoMigrate bool
	RedisURL    string
	NATSURL     string
	AlertsBase  string

	TracingEndpoint    string
	TracingSampleRatio float64

	TextThreshold  float64
	ImageThreshold float64

	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int
	EmbeddingCacheTTL   time.Duration

	AIProvider          string
	AIAPIKey            string
	AIBaseURL           string
	AIModel             string
	AIMaxTokens         int
	AITemperature       float32
	AIRequestsPerSecond float64
	AIBurst             int

	ExecutorBackend   string
	Judge0URL         string
	Judge0APIKey      string
	Judge0APIHost     string
	ExecutionTimeout  time.Duration
	DockerHost        string
	CodeRunMemoryMB   int64
	CodeRunCPUShares  int64
	CodeRunWorkspace  string
	DefaultLanguage   string
	Languages         []executor.Language
	CorrectionPerMin  int
	SubmissionsPerMin int

	StorageBackend      string
	LocalStorageRoot    string
	LocalStorageBaseURL string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
	MinioEndpoint       string
	MinioAccessKey      string
	MinioSecretKey      string
	MinioBucket         string
	MinioUseSSL         bool
	MinioPublicURL      string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}
	return fmt.Sprintf(":%s", c.AppPort)
}

// LanguageNames lists the configured language names.
func (c Config) LanguageNames() []string {
	names := make([]string, 0, len(c.Languages))
	for _, language := range c.Languages {
		names = append(names, strings.ToLower(language.Name))
	}
	return names
}

// Load reads configuration from the environment (prefix QBANK), an optional .env file and an
// optional YAML file named by QBANK_CONFIG_FILE.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QBANK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	embeddingTTL, err := time.ParseDuration(v.GetString("embedding.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid embedding cache ttl: %w", err)
	}
	timeoutMs := v.GetInt("executor.timeout_ms")
	if timeoutMs <= 0 {
		timeoutMs = 10000
	}

	languages := executor.DefaultLanguages()
	if v.IsSet("languages") {
		var configured []executor.Language
		if err := v.UnmarshalKey("languages", &configured); err != nil {
			return Config{}, fmt.Errorf("invalid language table: %w", err)
		}
		if len(configured) > 0 {
			languages = configured
		}
	}

	cfg := Config{
		AppName:      v.GetString("app.name"),
		AppEnv:       v.GetString("app.env"),
		AppPort:      v.GetString("app.port"),
		BodyLimitMB:  v.GetInt("app.body_limit_mb"),
		AllowOrigins: splitList(v.GetString("app.allow_origins")),
		JWTSecret:    v.GetString("jwt.secret"),

		LogLevel:      strings.ToLower(v.GetString("log.level")),
		LogFile:       v.GetString("log.file"),
		LogMaxSizeMB:  v.GetInt("log.max_size_mb"),
		LogMaxBackups: v.GetInt("log.max_backups"),
		LogMaxAgeDays: v.GetInt("log.max_age_days"),

		DatabaseURL: v.GetString("database.url"),
		AutoMigrate: v.GetBool("database.auto_migrate"),
		RedisURL:    v.GetString("redis.url"),
		NATSURL:     v.GetString("nats.url"),
		AlertsBase:  v.GetString("alerts.channel"),

		TracingEndpoint:    v.GetString("tracing.endpoint"),
		TracingSampleRatio: v.GetFloat64("tracing.sample_ratio"),

		TextThreshold:  v.GetFloat64("plagiarism.text_threshold"),
		ImageThreshold: v.GetFloat64("plagiarism.image_threshold"),

		EmbeddingProvider:   strings.ToLower(v.GetString("embedding.provider")),
		EmbeddingModel:      v.GetString("embedding.model"),
		EmbeddingAPIKey:     v.GetString("embedding.api_key"),
		EmbeddingBaseURL:    v.GetString("embedding.base_url"),
		EmbeddingDimensions: v.GetInt("embedding.dimensions"),
		EmbeddingCacheTTL:   embeddingTTL,

		AIProvider:          strings.ToLower(v.GetString("ai.provider")),
		AIAPIKey:            v.GetString("ai.api_key"),
		AIBaseURL:           v.GetString("ai.base_url"),
		AIModel:             v.GetString("ai.model"),
		AIMaxTokens:         v.GetInt("ai.max_tokens"),
		AITemperature:       float32(v.GetFloat64("ai.temperature")),
		AIRequestsPerSecond: v.GetFloat64("ai.requests_per_second"),
		AIBurst:             v.GetInt("ai.burst"),

		ExecutorBackend:   strings.ToLower(v.GetString("executor.backend")),
		Judge0URL:         v.GetString("executor.judge0_url"),
		Judge0APIKey:      v.GetString("executor.judge0_api_key"),
		Judge0APIHost:     v.GetString("executor.judge0_api_host"),
		ExecutionTimeout:  time.Duration(timeoutMs) * time.Millisecond,
		DockerHost:        v.GetString("executor.docker_host"),
		CodeRunMemoryMB:   v.GetInt64("executor.memory_mb"),
		CodeRunCPUShares:  v.GetInt64("executor.cpu_shares"),
		CodeRunWorkspace:  v.GetString("executor.workspace"),
		DefaultLanguage:   strings.ToLower(v.GetString("executor.default_language")),
		Languages:         languages,
		CorrectionPerMin:  v.GetInt("rate_limit.correction_per_minute"),
		SubmissionsPerMin: v.GetInt("rate_limit.submissions_per_minute"),

		StorageBackend:      strings.ToLower(v.GetString("storage.backend")),
		LocalStorageRoot:    v.GetString("storage.local_root"),
		LocalStorageBaseURL: v.GetString("storage.local_base_url"),
		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		CloudinaryFolder:    v.GetString("cloudinary.folder"),
		MinioEndpoint:       v.GetString("minio.endpoint"),
		MinioAccessKey:      v.GetString("minio.access_key"),
		MinioSecretKey:      v.GetString("minio.secret_key"),
		MinioBucket:         v.GetString("minio.bucket"),
		MinioUseSSL:         v.GetBool("minio.use_ssl"),
		MinioPublicURL:      v.GetString("minio.public_url"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Question Bank API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.body_limit_mb", 25)
	v.SetDefault("app.allow_origins", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("alerts.channel", "qbank")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("plagiarism.text_threshold", 0.8)
	v.SetDefault("plagiarism.image_threshold", 0.85)
	v.SetDefault("embedding.provider", "hashing")
	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("embedding.cache_ttl", "24h")
	v.SetDefault("ai.provider", "none")
	v.SetDefault("ai.max_tokens", 1000)
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.requests_per_second", 2)
	v.SetDefault("ai.burst", 4)
	v.SetDefault("executor.backend", "judge0")
	v.SetDefault("executor.judge0_url", "https://judge0-ce.p.rapidapi.com")
	v.SetDefault("executor.timeout_ms", 10000)
	v.SetDefault("executor.memory_mb", 256)
	v.SetDefault("executor.cpu_shares", 512)
	v.SetDefault("executor.default_language", "python")
	v.SetDefault("rate_limit.correction_per_minute", 30)
	v.SetDefault("rate_limit.submissions_per_minute", 60)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_root", "./uploads")
	v.SetDefault("storage.local_base_url", "/uploads")
	v.SetDefault("cloudinary.folder", "qbank/answers")
	v.SetDefault("minio.bucket", "qbank-answers")
}

func (c Config) validate() error {
	if c.TextThreshold <= 0 || c.TextThreshold > 1 {
		return fmt.Errorf("plagiarism text threshold must be in (0, 1], got %v", c.TextThreshold)
	}
	if c.ImageThreshold <= 0 || c.ImageThreshold > 1 {
		return fmt.Errorf("plagiarism image threshold must be in (0, 1], got %v", c.ImageThreshold)
	}
	switch c.AIProvider {
	case "none", "":
	case "openai", "mistral", "gemini":
		if c.AIAPIKey == "" {
			return fmt.Errorf("ai provider %s requires QBANK_AI_API_KEY", c.AIProvider)
		}
	default:
		return fmt.Errorf("unknown ai provider %q", c.AIProvider)
	}
	switch c.EmbeddingProvider {
	case "hashing":
	case "openai", "gemini":
		if c.EmbeddingAPIKey == "" {
			return fmt.Errorf("embedding provider %s requires QBANK_EMBEDDING_API_KEY", c.EmbeddingProvider)
		}
	default:
		return fmt.Errorf("unknown embedding provider %q", c.EmbeddingProvider)
	}
	switch c.ExecutorBackend {
	case "judge0", "docker", "none":
	default:
		return fmt.Errorf("unknown executor backend %q", c.ExecutorBackend)
	}
	switch c.StorageBackend {
	case "local", "cloudinary", "minio", "none":
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
