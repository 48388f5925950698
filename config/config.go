package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"zodiac/version"
)

// Config holds zodiac runtime configuration.
type Config struct {
	LogLevel    string
	LogFilePath string
	Port        int
	DatabaseURL string

	SQLitePragmasEnabled bool
	SQLiteBusyTimeoutMS  int
	SQLiteJournalMode    string
	SQLiteSynchronous    string
	SQLiteMaxOpenConns   int
	SQLiteMaxIdleConns   int

	// Game installation and save locations. Empty values are resolved at
	// runtime (Steam library lookup / user documents folder).
	GamePath     string
	DocumentsDir string

	// Update check
	UpdateRepoOwner           string
	UpdateRepoName            string
	UpdateCheckTimeoutSeconds int
	StartupUpdateCheck        bool
	UpdateNotifyEnabled       bool

	OpenBrowser bool

	CLIMode   bool
	CLIServer string // Server URL for CLI mode
}

// Settings is the global configuration instance populated from environment variables and flags.
var Settings *Config

func init() {
	Settings = &Config{
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		LogFilePath: getEnv("LOG_FILE", "./zodiac.log"),
		Port:        getEnvInt("PORT", 7127),
		DatabaseURL: getEnv("DATABASE_URL", "zodiac.db"),

		SQLitePragmasEnabled: getEnvBool("SQLITE_PRAGMAS_ENABLED", true),
		SQLiteBusyTimeoutMS:  getEnvInt("SQLITE_BUSY_TIMEOUT_MS", 5000),
		SQLiteJournalMode:    getEnv("SQLITE_JOURNAL_MODE", "WAL"),
		SQLiteSynchronous:    getEnv("SQLITE_SYNCHRONOUS", "NORMAL"),
		SQLiteMaxOpenConns:   getEnvInt("SQLITE_MAX_OPEN_CONNS", 1),
		SQLiteMaxIdleConns:   getEnvInt("SQLITE_MAX_IDLE_CONNS", 1),

		GamePath:     getEnv("GAME_PATH", ""),
		DocumentsDir: getEnv("DOCUMENTS_DIR", ""),

		UpdateRepoOwner:           getEnv("UPDATE_REPO_OWNER", "xeavin"),
		UpdateRepoName:            getEnv("UPDATE_REPO_NAME", "zodiac"),
		UpdateCheckTimeoutSeconds: getEnvInt("UPDATE_CHECK_TIMEOUT_SECONDS", 10),
		StartupUpdateCheck:        getEnvBool("STARTUP_UPDATE_CHECK", true),
		UpdateNotifyEnabled:       getEnvBool("UPDATE_NOTIFY_ENABLED", true),

		OpenBrowser: getEnvBool("OPEN_BROWSER", false),

		CLIMode: getEnvBool("CLI_MODE", false),
	}
}

// ParseFlags parses command-line flags, applies any overrides to the package-level Settings, and updates configuration accordingly.
// It also provides a custom usage message and handles --help (prints usage and exits) and --version (prints build info and exits).
func ParseFlags() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "zodiac - FF12 The Zodiac Age modding companion\n\n")
		fmt.Fprintf(out, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(out, "Options:")
		flag.PrintDefaults()
		fmt.Fprintln(out, "\nEnvironment variables:")
		fmt.Fprintln(out, "  LOG_LEVEL                      Log level (DEBUG, INFO, WARN, ERROR)")
		fmt.Fprintln(out, "  LOG_FILE                       Log file path (default ./zodiac.log)")
		fmt.Fprintln(out, "  PORT                           HTTP server port (default 7127)")
		fmt.Fprintln(out, "  DATABASE_URL                   SQLite database path (default zodiac.db)")
		fmt.Fprintln(out, "  SQLITE_PRAGMAS_ENABLED         Enable SQLite PRAGMAs (true/false, default true)")
		fmt.Fprintln(out, "  SQLITE_BUSY_TIMEOUT_MS         SQLite busy_timeout in milliseconds (default 5000)")
		fmt.Fprintln(out, "  SQLITE_JOURNAL_MODE            SQLite journal_mode (default WAL)")
		fmt.Fprintln(out, "  SQLITE_SYNCHRONOUS             SQLite synchronous (default NORMAL)")
		fmt.Fprintln(out, "  GAME_PATH                      FF12 TZA installation directory")
		fmt.Fprintln(out, "  DOCUMENTS_DIR                  Override for the game documents directory")
		fmt.Fprintln(out, "  UPDATE_REPO_OWNER              GitHub owner for release checks (default xeavin)")
		fmt.Fprintln(out, "  UPDATE_REPO_NAME               GitHub repo for release checks (default zodiac)")
		fmt.Fprintln(out, "  UPDATE_CHECK_TIMEOUT_SECONDS   Timeout for the startup update check (default 10)")
		fmt.Fprintln(out, "  STARTUP_UPDATE_CHECK           Run the update check at startup (true/false, default true)")
		fmt.Fprintln(out, "  UPDATE_NOTIFY_ENABLED          Desktop notification when an update is found (default true)")
		fmt.Fprintln(out, "  OPEN_BROWSER                   Open the web UI after startup (default false)")
	}

	port := flag.Int("port", Settings.Port, "HTTP server port (overrides PORT)")
	db := flag.String("db", Settings.DatabaseURL, "SQLite database path (overrides DATABASE_URL)")
	logLevel := flag.String("log-level", Settings.LogLevel, "Log level: DEBUG, INFO, WARN, ERROR (overrides LOG_LEVEL)")
	logFile := flag.String("log-file", Settings.LogFilePath, "Log file path (overrides LOG_FILE)")
	gamePath := flag.String("game-path", Settings.GamePath, "FF12 TZA installation directory (overrides GAME_PATH)")
	documentsDir := flag.String("documents-dir", Settings.DocumentsDir, "Game documents directory override (overrides DOCUMENTS_DIR)")
	startupCheck := flag.Bool("startup-update-check", Settings.StartupUpdateCheck, "Run the update check at startup (overrides STARTUP_UPDATE_CHECK)")
	openBrowser := flag.Bool("open-browser", Settings.OpenBrowser, "Open the web UI after startup (overrides OPEN_BROWSER)")
	cliMode := flag.Bool("cli", Settings.CLIMode, "Run in CLI mode (HTTP client only, no database)")
	cliServer := flag.String("server", "http://localhost:7127", "Server URL for CLI mode")

	showHelp := flag.Bool("help", false, "Show help and exit")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetBuildInfo())
		os.Exit(0)
	}

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	Settings.Port = *port
	Settings.DatabaseURL = *db
	Settings.LogLevel = *logLevel
	Settings.LogFilePath = *logFile
	Settings.GamePath = *gamePath
	Settings.DocumentsDir = *documentsDir
	Settings.StartupUpdateCheck = *startupCheck
	Settings.OpenBrowser = *openBrowser
	Settings.CLIMode = *cliMode
	Settings.CLIServer = *cliServer
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
