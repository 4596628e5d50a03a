package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/spigell/recruit-bot/internal/api"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "recruit-bot"
)

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Session   SessionConfig   `mapstructure:"session"`
	Dialogue  DialogueConfig  `mapstructure:"dialogue"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	AI        AIConfig        `mapstructure:"ai"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Events    EventsConfig    `mapstructure:"events"`
}

type HTTPConfig struct {
	Addr        string   `mapstructure:"addr" validate:"required"`
	CORSOrigins []string `mapstructure:"cors-origins"`
	RateLimit   int      `mapstructure:"rate-limit" validate:"gte=0"`
}

type SessionConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Cooldown      time.Duration `mapstructure:"cooldown" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep-interval" validate:"gt=0"`
	RedisURL      string        `mapstructure:"redis-url" validate:"omitempty,url"`
}

type DialogueConfig struct {
	Company      string        `mapstructure:"company"`
	Address      string        `mapstructure:"address"`
	YesWords     []string      `mapstructure:"yes-words"`
	NoWords      []string      `mapstructure:"no-words"`
	StoreTimeout time.Duration `mapstructure:"store-timeout" validate:"gte=0"`
}

type SchedulerConfig struct {
	Capacity      int    `mapstructure:"capacity" validate:"gt=0"`
	LookaheadDays int    `mapstructure:"lookahead-days" validate:"gt=0"`
	Timezone      string `mapstructure:"timezone" validate:"required"`
}

type AIConfig struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	MaxRetries   int           `mapstructure:"max-retries" validate:"gte=0"`
	Temperature  float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int32         `mapstructure:"max-tokens" validate:"gte=0"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxLogLength int           `mapstructure:"max-log-length" validate:"gte=0"`
}

type GatewayConfig struct {
	URL         string        `mapstructure:"url" validate:"omitempty,url"`
	APIKey      string        `mapstructure:"api-key"`
	Session     string        `mapstructure:"session"`
	TypingDelay time.Duration `mapstructure:"typing-delay" validate:"gte=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type StorageConfig struct {
	DatabaseURL string `mapstructure:"database-url"`
	SQLitePath  string `mapstructure:"sqlite-path" validate:"required"`
}

type EventsConfig struct {
	NATSURL string `mapstructure:"nats-url"`
	Token   string `mapstructure:"token"`
	Subject string `mapstructure:"subject"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "recruit-bot is a WhatsApp recruiting assistant that pre-screens candidates and books interviews",
	}
)

// env lists the environment variables bound to config keys.
var env = map[string]string{
	"http.addr":              "HTTP_ADDR",
	"http.cors-origins":      "CORS_ORIGINS",
	"http.rate-limit":        "RATE_LIMIT",
	"session.timeout":        "SESSION_TIMEOUT",
	"session.cooldown":       "SESSION_COOLDOWN",
	"session.redis-url":      "REDIS_URL",
	"dialogue.company":       "COMPANY_NAME",
	"dialogue.address":       "COMPANY_ADDRESS",
	"scheduler.capacity":     "INTERVIEW_CAPACITY",
	"scheduler.timezone":     "TIMEZONE",
	"ai.gemini.api-key":      "GEMINI_API_KEY",
	"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	"ai.gemini.model":        "GEMINI_MODEL",
	"gateway.url":            "WAHA_API_URL",
	"gateway.api-key":        "WAHA_API_KEY",
	"gateway.session":        "WAHA_SESSION",
	"gateway.typing-delay":   "WAHA_TYPING_DELAY",
	"storage.database-url":   "DATABASE_URL",
	"storage.sqlite-path":    "SQLITE_PATH",
	"events.nats-url":        "NATS_URL",
	"events.token":           "NATS_TOKEN",
	"events.subject":         "NATS_SUBJECT",
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is recruit-bot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("http.addr", api.DefaultAddr)
	viper.SetDefault("http.cors-origins", []string{"*"})
	viper.SetDefault("http.rate-limit", api.DefaultRateLimit)
	viper.SetDefault("session.timeout", 60*time.Minute)
	viper.SetDefault("session.cooldown", 24*time.Hour)
	viper.SetDefault("session.sweep-interval", 5*time.Minute)
	viper.SetDefault("dialogue.store-timeout", 10*time.Second)
	viper.SetDefault("scheduler.capacity", 40)
	viper.SetDefault("scheduler.lookahead-days", 30)
	viper.SetDefault("scheduler.timezone", "America/Lima")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.temperature", 0.3)
	viper.SetDefault("ai.gemini.max-tokens", 600)
	viper.SetDefault("ai.gemini.timeout", 20*time.Second)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("gateway.url", "http://localhost:3000")
	viper.SetDefault("gateway.session", "default")
	viper.SetDefault("gateway.typing-delay", api.DefaultTypingDelay)
	viper.SetDefault("gateway.timeout", 20*time.Second)
	viper.SetDefault("storage.sqlite-path", "data/postulaciones.db")
}

func initConfig() {
	// Version needs no configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	setDefaults()
	for key, name := range env {
		if err := viper.BindEnv(key, name); err != nil {
			log.Fatalf("binding %s environment variable: %v", name, err)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The file is optional unless given explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("empty configuration")
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}
