package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/DMPipe/internal/api"
	"github.com/BTreeMap/DMPipe/internal/genai"
	"github.com/BTreeMap/DMPipe/internal/instagram"
	"github.com/BTreeMap/DMPipe/internal/lockfile"
	"github.com/BTreeMap/DMPipe/internal/notify"
	"github.com/BTreeMap/DMPipe/internal/store"
	"github.com/BTreeMap/DMPipe/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for DMPipe state data
	DefaultStateDir = "/var/lib/dmpipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "dmpipe.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	igOpts := buildInstagramOptions(flags)
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	notifyOpts := buildNotifyOptions()
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping DMPipe with configured modules")
	slog.Debug("Module options counts",
		"instagram", len(igOpts), "store", len(storeOpts), "genai", len(genaiOpts), "notify", len(notifyOpts), "api", len(apiOpts))
	if err := api.Run(igOpts, storeOpts, genaiOpts, notifyOpts, apiOpts); err != nil {
		slog.Error("DMPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("DMPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	PageID          string
	PageAccessToken string
	UserAccessToken string
	VerifyToken     string
	DatabaseURL     string
	StateDir        string
	OpenAIKey       string
	APIAddr         string
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDSN       *string
	pageID      *string
	pageToken   *string
	userToken   *string
	verifyToken *string
	openaiKey   *string
	apiAddr     *string
}

// initializeLogger sets up structured logging; DEBUG=1 lowers the level.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
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
		PageID:          os.Getenv("PAGE_ID"),
		PageAccessToken: os.Getenv("PAGE_ACCESS_TOKEN"),
		UserAccessToken: os.Getenv("ACCESS_TOKEN"),
		VerifyToken:     os.Getenv("VERIFY_TOKEN"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StateDir:        util.GetEnvOrDefault("DMPIPE_STATE_DIR", DefaultStateDir),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		APIAddr:         os.Getenv("API_ADDR"),
	}

	// PORT is the conventional listen variable on most hosting platforms.
	if config.APIAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			config.APIAddr = ":" + port
		}
	}

	// Default to SQLite in the state directory when no database URL is provided.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"PAGE_ID", config.PageID,
		"PAGE_ACCESS_TOKEN_SET", config.PageAccessToken != "",
		"ACCESS_TOKEN_SET", config.UserAccessToken != "",
		"VERIFY_TOKEN_SET", config.VerifyToken != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"DMPIPE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for DMPipe data (overrides $DMPIPE_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN for the store (overrides $DATABASE_URL)"),
		pageID:      flag.String("page-id", config.PageID, "Instagram page id (overrides $PAGE_ID)"),
		pageToken:   flag.String("page-token", config.PageAccessToken, "page access token (overrides $PAGE_ACCESS_TOKEN)"),
		userToken:   flag.String("user-token", config.UserAccessToken, "long-lived user token for page token discovery (overrides $ACCESS_TOKEN)"),
		verifyToken: flag.String("verify-token", config.VerifyToken, "webhook verification token (overrides $VERIFY_TOKEN)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR or $PORT)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"pageID", *flags.pageID,
		"pageTokenSet", *flags.pageToken != "",
		"userTokenSet", *flags.userToken != "",
		"verifyTokenSet", *flags.verifyToken != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr)

	// Follow a moved state directory when the DSN was derived from it.
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return err
		}
	}
	return os.MkdirAll(*flags.stateDir, 0755)
}

// buildInstagramOptions constructs Instagram client configuration options
func buildInstagramOptions(flags Flags) []instagram.Option {
	var igOpts []instagram.Option
	if *flags.pageID != "" {
		igOpts = append(igOpts, instagram.WithPageID(*flags.pageID))
	}
	if *flags.pageToken != "" {
		igOpts = append(igOpts, instagram.WithAccessToken(*flags.pageToken))
	}
	if *flags.userToken != "" {
		igOpts = append(igOpts, instagram.WithUserToken(*flags.userToken))
	}
	return igOpts
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildNotifyOptions constructs lead notification options. The notifier reads
// the TWILIO_* environment variables itself; nothing extra is wired here.
func buildNotifyOptions() []notify.Option {
	return nil
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.verifyToken != "" {
		apiOpts = append(apiOpts, api.WithVerifyToken(*flags.verifyToken))
	}
	return apiOpts
}
