package config

import (
	"errdash/version"
	"flag"
	"fmt"
	"os"
	"strconv"
)

// DefaultSyncSuccessMarker is the phrase the backend puts into the sync
// message when a sync run finished.
const DefaultSyncSuccessMarker = "Sync completed successfully"

// Config holds errdash runtime configuration.
type Config struct {
	LogLevel             string
	LogFilePath          string
	Port                 int
	DatabaseURL          string
	SQLitePragmasEnabled bool
	SQLiteBusyTimeoutMS  int
	SQLiteJournalMode    string
	SQLiteSynchronous    string
	SQLiteMaxOpenConns   int
	SQLiteMaxIdleConns   int
	SQLiteConnMaxIdleSec int
	SQLiteConnMaxLifeSec int
	CLIMode              bool
	CLIServer            string // Backend URL or profile name for CLI mode
	AllowCIDRs           string // comma separated; empty admits everyone
	DenyCIDRs            string

	// Backend API
	APIBaseURL        string
	APITimeoutSeconds int
	APIProxyURL       string // socks5:// or http:// proxy for backend calls
	APISSHJump        string // user@host:port jump host for backend calls
	APISSHKeyPath     string
	APISSHPassword    string
	SyncSuccessMarker string

	// Tunable limits and intervals
	MaxDiagnosticLogs       int
	WSPushIntervalSeconds   int
	SessionIdleMinutes      int
	SessionSweepIntervalSec int
}

// Settings is the global configuration instance populated from environment variables and flags.
var Settings *Config

func init() {
	Settings = Defaults()
}

// Defaults builds a Config from environment variables, falling back to built-in defaults.
func Defaults() *Config {
	return &Config{
		LogLevel:             getEnv("LOG_LEVEL", "INFO"),
		LogFilePath:          getEnv("LOG_FILE", "./errdash.log"),
		Port:                 getEnvInt("PORT", 7790),
		DatabaseURL:          getEnv("DATABASE_URL", "errdash.db"),
		SQLitePragmasEnabled: getEnvBool("SQLITE_PRAGMAS_ENABLED", true),
		SQLiteBusyTimeoutMS:  getEnvInt("SQLITE_BUSY_TIMEOUT_MS", 5000),
		SQLiteJournalMode:    getEnv("SQLITE_JOURNAL_MODE", "WAL"),
		SQLiteSynchronous:    getEnv("SQLITE_SYNCHRONOUS", "NORMAL"),
		SQLiteMaxOpenConns:   getEnvInt("SQLITE_MAX_OPEN_CONNS", 1),
		SQLiteMaxIdleConns:   getEnvInt("SQLITE_MAX_IDLE_CONNS", 1),
		SQLiteConnMaxIdleSec: getEnvInt("SQLITE_CONN_MAX_IDLE_SECONDS", 300),
		SQLiteConnMaxLifeSec: getEnvInt("SQLITE_CONN_MAX_LIFETIME_SECONDS", 0),
		CLIMode:              getEnvBool("CLI_MODE", false),
		AllowCIDRs:           getEnv("ALLOW_CIDRS", ""),
		DenyCIDRs:            getEnv("DENY_CIDRS", ""),

		APIBaseURL:        getEnv("API_BASE_URL", "http://127.0.0.1:5000"),
		APITimeoutSeconds: getEnvInt("API_TIMEOUT_SECONDS", 30),
		APIProxyURL:       getEnv("API_PROXY_URL", ""),
		APISSHJump:        getEnv("API_SSH_JUMP", ""),
		APISSHKeyPath:     getEnv("API_SSH_KEY", ""),
		APISSHPassword:    getEnv("API_SSH_PASSWORD", ""),
		SyncSuccessMarker: getEnv("SYNC_SUCCESS_MARKER", DefaultSyncSuccessMarker),

		MaxDiagnosticLogs:       getEnvInt("MAX_DIAG_LOGS", 100),
		WSPushIntervalSeconds:   getEnvInt("WS_PUSH_INTERVAL_SECONDS", 60),
		SessionIdleMinutes:      getEnvInt("SESSION_IDLE_MINUTES", 120),
		SessionSweepIntervalSec: getEnvInt("SESSION_SWEEP_INTERVAL_SECONDS", 300),
	}
}

// ParseFlags parses command-line flags and applies any overrides to Settings.
// It handles --help (prints usage and exits) and --version (prints build info and exits).
func ParseFlags() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "errdash - error tracking dashboard\n\n")
		fmt.Fprintf(out, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(out, "Options:")
		flag.PrintDefaults()
		fmt.Fprintln(out, "\nEnvironment variables:")
		fmt.Fprintln(out, "  LOG_LEVEL                         Log level (DEBUG, INFO, WARN, ERROR)")
		fmt.Fprintln(out, "  LOG_FILE                          Log file path (default ./errdash.log)")
		fmt.Fprintln(out, "  PORT                              HTTP server port (default 7790)")
		fmt.Fprintln(out, "  DATABASE_URL                      SQLite path for diagnostics (default errdash.db)")
		fmt.Fprintln(out, "  SQLITE_PRAGMAS_ENABLED            Enable SQLite PRAGMAs (true/false, default true)")
		fmt.Fprintln(out, "  SQLITE_BUSY_TIMEOUT_MS            SQLite busy_timeout in milliseconds (default 5000)")
		fmt.Fprintln(out, "  SQLITE_JOURNAL_MODE               SQLite journal_mode (default WAL)")
		fmt.Fprintln(out, "  SQLITE_SYNCHRONOUS                SQLite synchronous (default NORMAL)")
		fmt.Fprintln(out, "  SQLITE_MAX_OPEN_CONNS             SQLite MaxOpenConns (default 1)")
		fmt.Fprintln(out, "  SQLITE_MAX_IDLE_CONNS             SQLite MaxIdleConns (default 1)")
		fmt.Fprintln(out, "  API_BASE_URL                      Error tracking backend URL (default http://127.0.0.1:5000)")
		fmt.Fprintln(out, "  API_TIMEOUT_SECONDS               Per-request timeout for backend calls (default 30)")
		fmt.Fprintln(out, "  API_PROXY_URL                     socks5:// or http:// proxy for backend calls")
		fmt.Fprintln(out, "  API_SSH_JUMP                      user@host:port SSH jump host for backend calls")
		fmt.Fprintln(out, "  API_SSH_KEY                       Private key for the SSH jump host")
		fmt.Fprintln(out, "  API_SSH_PASSWORD                  Password for the SSH jump host")
		fmt.Fprintln(out, "  SYNC_SUCCESS_MARKER               Phrase marking a completed sync (default \"Sync completed successfully\")")
		fmt.Fprintln(out, "  MAX_DIAG_LOGS                     Diagnostic entries kept in memory (default 100)")
		fmt.Fprintln(out, "  WS_PUSH_INTERVAL_SECONDS          Live card push interval (default 60)")
		fmt.Fprintln(out, "  ALLOW_CIDRS                       Comma separated networks allowed to open the dashboard")
		fmt.Fprintln(out, "  DENY_CIDRS                        Comma separated networks refused")
		fmt.Fprintln(out, "  SESSION_IDLE_MINUTES              Idle minutes before a browser session is dropped (default 120)")
	}

	port := flag.Int("port", Settings.Port, "HTTP server port (overrides PORT)")
	db := flag.String("db", Settings.DatabaseURL, "SQLite database path (overrides DATABASE_URL)")
	sqlitePragmasEnabled := flag.Bool("sqlite-pragmas", Settings.SQLitePragmasEnabled, "Enable SQLite PRAGMAs (overrides SQLITE_PRAGMAS_ENABLED)")
	sqliteBusyTimeoutMS := flag.Int("sqlite-busy-timeout-ms", Settings.SQLiteBusyTimeoutMS, "SQLite busy_timeout in milliseconds (overrides SQLITE_BUSY_TIMEOUT_MS)")
	sqliteJournalMode := flag.String("sqlite-journal-mode", Settings.SQLiteJournalMode, "SQLite journal_mode (overrides SQLITE_JOURNAL_MODE)")
	logLevel := flag.String("log-level", Settings.LogLevel, "Log level: DEBUG, INFO, WARN, ERROR (overrides LOG_LEVEL)")
	logFile := flag.String("log-file", Settings.LogFilePath, "Log file path (overrides LOG_FILE)")
	apiURL := flag.String("api", Settings.APIBaseURL, "Error tracking backend URL (overrides API_BASE_URL)")
	apiTimeout := flag.Int("api-timeout-seconds", Settings.APITimeoutSeconds, "Per-request backend timeout (overrides API_TIMEOUT_SECONDS)")
	apiProxy := flag.String("api-proxy", Settings.APIProxyURL, "Proxy for backend calls (overrides API_PROXY_URL)")
	apiSSHJump := flag.String("api-ssh-jump", Settings.APISSHJump, "SSH jump host for backend calls (overrides API_SSH_JUMP)")
	apiSSHKey := flag.String("api-ssh-key", Settings.APISSHKeyPath, "SSH private key path (overrides API_SSH_KEY)")
	syncMarker := flag.String("sync-success-marker", Settings.SyncSuccessMarker, "Sync success phrase (overrides SYNC_SUCCESS_MARKER)")
	maxDiag := flag.Int("max-diag-logs", Settings.MaxDiagnosticLogs, "Diagnostic entries kept in memory")
	cliMode := flag.Bool("cli", Settings.CLIMode, "Run in CLI mode (interactive client, no web server)")
	cliServer := flag.String("server", "", "Backend URL or profile name for CLI mode")

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
	Settings.SQLitePragmasEnabled = *sqlitePragmasEnabled
	Settings.SQLiteBusyTimeoutMS = *sqliteBusyTimeoutMS
	Settings.SQLiteJournalMode = *sqliteJournalMode
	Settings.LogLevel = *logLevel
	Settings.LogFilePath = *logFile
	Settings.APIBaseURL = *apiURL
	Settings.APITimeoutSeconds = *apiTimeout
	Settings.APIProxyURL = *apiProxy
	Settings.APISSHJump = *apiSSHJump
	Settings.APISSHKeyPath = *apiSSHKey
	Settings.SyncSuccessMarker = *syncMarker
	Settings.MaxDiagnosticLogs = *maxDiag
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
