package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Task       TaskConfig       `mapstructure:"task" validate:"required"`
	Export     ExportConfig     `mapstructure:"export" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// LLMConfig contains all LLM integration related settings.
//
// GeminiAPIKey is optional here: a key saved through the settings API takes
// over at runtime, and tasks fail with a clear error when neither is present.
type LLMConfig struct {
	Provider           string `mapstructure:"provider" validate:"required,oneof=gemini openai"`
	GeminiAPIKey       string `mapstructure:"gemini_api_key"`
	ModelName          string `mapstructure:"model_name" validate:"required"`
	OpenAIAPIKey       string `mapstructure:"openai_api_key"`
	OpenAIBaseURL      string `mapstructure:"openai_base_url" validate:"omitempty,url"`
	OpenAIModelName    string `mapstructure:"openai_model_name"`
	PromptTemplatePath string `mapstructure:"prompt_template_path"`
	MaxRetries         int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds  int    `mapstructure:"retry_delay_seconds" validate:"gte=0,lte=60"`
	Stream             bool   `mapstructure:"stream"`
}

// GenerationConfig controls the batch generation loop.
type GenerationConfig struct {
	ItemDelayMillis int `mapstructure:"item_delay_ms" validate:"gte=0"`
	MaxArticleCount int `mapstructure:"max_article_count" validate:"required,gt=0,lte=100"`
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize           int `mapstructure:"queue_size" validate:"required,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0,gtfield=TimeoutMinutes"`
	TimeoutMinutes      int `mapstructure:"timeout_minutes" validate:"gte=0"`
}

// ExportConfig contains settings for exported files.
type ExportConfig struct {
	Dir             string `mapstructure:"dir" validate:"required"`
	IncludeMetadata bool   `mapstructure:"include_metadata"`
}
