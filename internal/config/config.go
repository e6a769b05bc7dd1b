package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is the single application configuration struct. It is constructed
// once at process start and passed by reference to the components that need
// it; nothing reads the environment after load.
type Config struct {
	AppPort      int    `mapstructure:"APP_PORT"`
	DatabasePath string `mapstructure:"DATABASE_PATH"`
	UploadDir    string `mapstructure:"UPLOAD_DIR"`
	PublicURL    string `mapstructure:"PUBLIC_URL"`

	LLMURL       string `mapstructure:"LLM_URL"`
	MainModel    string `mapstructure:"MAIN_MODEL"`
	SupportModel string `mapstructure:"SUPPORT_MODEL"`
	SystemPrompt string `mapstructure:"SYSTEM_PROMPT"`

	// CloudDeployment enables guest rate limiting; outside this mode the
	// limiter is disabled entirely.
	CloudDeployment bool   `mapstructure:"CLOUD_DEPLOYMENT"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	GuestDailyLimit int    `mapstructure:"GUEST_DAILY_LIMIT"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// LoadConfig reads configuration from an optional .env file, the environment
// and defaults, in that order of increasing precedence.
func LoadConfig() (*Config, error) {
	viper.SetDefault("APP_PORT", 8000)
	viper.SetDefault("DATABASE_PATH", "/data/romy.db")
	viper.SetDefault("UPLOAD_DIR", "/data/uploads")
	viper.SetDefault("PUBLIC_URL", "http://localhost:8000")
	viper.SetDefault("LLM_URL", "http://ollama:11434")
	viper.SetDefault("MAIN_MODEL", "llama3.1")
	viper.SetDefault("SUPPORT_MODEL", "llama3.1")
	viper.SetDefault("SYSTEM_PROMPT", "You are Rōmy, a research assistant for nonprofit donor research.")
	viper.SetDefault("CLOUD_DEPLOYMENT", false)
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("GUEST_DAILY_LIMIT", 10)
	viper.SetDefault("LOG_LEVEL", "INFO")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./backend")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
