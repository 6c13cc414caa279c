package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/calcmentor/CalcMentor/internal/bot"
	"github.com/calcmentor/CalcMentor/internal/genai"
	"github.com/calcmentor/CalcMentor/internal/messaging"
	"github.com/calcmentor/CalcMentor/internal/store"
	"github.com/calcmentor/CalcMentor/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for CalcMentor state data
	DefaultStateDir = "/var/lib/calcmentor"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "calcmentor.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	if *flags.telegramToken == "" {
		slog.Error("TELEGRAM_TOKEN is not set, the bot cannot start")
		os.Exit(1)
	}

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	genaiCfg := buildGenAIConfig(flags)
	msgOpts := buildMessagingOptions(flags)

	// Start the service
	slog.Info("Bootstrapping CalcMentor with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "provider", genaiCfg.Provider)
	if err := bot.Run(storeOpts, genaiCfg, msgOpts); err != nil {
		slog.Error("CalcMentor failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("CalcMentor exited successfully")
}

// Config holds environment configuration
type Config struct {
	TelegramToken string
	DatabaseURL   string
	StateDir      string
	PollTimeout   int
	Debug         bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDSN         *string
	telegramToken *string
	geminiKey     *string
	openaiKey     *string
	model         *string
	pollTimeout   *int
	debug         *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("CALCMENTOR_STATE_DIR"),
		PollTimeout:   util.ParseIntEnv("TELEGRAM_POLL_TIMEOUT", messaging.DefaultPollTimeout),
		Debug:         util.ParseBoolEnv("TELEGRAM_DEBUG", false),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CALCMENTOR_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("CALCMENTOR_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"TELEGRAM_TOKEN_SET", config.TelegramToken != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"CALCMENTOR_STATE_DIR", config.StateDir,
		"TELEGRAM_POLL_TIMEOUT", config.PollTimeout,
		"TELEGRAM_DEBUG", config.Debug)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for CalcMentor data (overrides $CALCMENTOR_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN for conversation state (overrides $DATABASE_URL)"),
		telegramToken: flag.String("telegram-token", config.TelegramToken, "Telegram bot token (overrides $TELEGRAM_TOKEN)"),
		geminiKey:     flag.String("gemini-api-key", "", "Gemini API key (overrides $GEMINI_API_KEY)"),
		openaiKey:     flag.String("openai-api-key", "", "OpenAI API key (overrides $OPENAI_API_KEY)"),
		model:         flag.String("model", "", "AI model override (overrides $GEMINI_MODEL / $OPENAI_MODEL)"),
		pollTimeout:   flag.Int("poll-timeout", config.PollTimeout, "Telegram long-polling timeout in seconds (overrides $TELEGRAM_POLL_TIMEOUT)"),
		debug:         flag.Bool("telegram-debug", config.Debug, "enable Telegram Bot API debug logging (overrides $TELEGRAM_DEBUG)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"telegramTokenSet", *flags.telegramToken != "",
		"geminiKeySet", *flags.geminiKey != "",
		"openaiKeySet", *flags.openaiKey != "",
		"model", *flags.model,
		"pollTimeout", *flags.pollTimeout,
		"debug", *flags.debug)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
		slog.Debug("State directory created successfully", "state_dir", stateDir)
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIConfig constructs the AI gateway configuration from the
// environment with flag overrides applied on top
func buildGenAIConfig(flags Flags) genai.Config {
	cfg := genai.ConfigFromEnv()
	if *flags.geminiKey != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = *flags.geminiKey
	}
	if *flags.openaiKey != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = *flags.openaiKey
	}
	if *flags.model != "" {
		cfg.Gemini.Model = *flags.model
		cfg.OpenAI.Model = *flags.model
	}
	return cfg
}

// buildMessagingOptions constructs Telegram service configuration options
func buildMessagingOptions(flags Flags) []messaging.Option {
	msgOpts := []messaging.Option{
		messaging.WithToken(*flags.telegramToken),
		messaging.WithPollTimeout(*flags.pollTimeout),
	}
	if *flags.debug {
		msgOpts = append(msgOpts, messaging.WithDebug(true))
	}
	return msgOpts
}
