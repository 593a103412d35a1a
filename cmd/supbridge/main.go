package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/fernwick/supbridge/internal/api"
	"github.com/fernwick/supbridge/internal/credentials"
	"github.com/fernwick/supbridge/internal/lockfile"
	"github.com/fernwick/supbridge/internal/store"
	"github.com/fernwick/supbridge/internal/supclient"
	"github.com/fernwick/supbridge/internal/syncer"
	"github.com/fernwick/supbridge/internal/util"
	"github.com/joho/godotenv"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	slog.Info("Bootstrapping supbridge")
	if err := run(flags); err != nil {
		slog.Error("supbridge failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("supbridge exited successfully")
}

// Config holds environment configuration
type Config struct {
	BaseURL       string
	AuthPath      string
	ClientVersion string
	SessionID     string
	SelfID        string
	PollInterval  time.Duration
	Enabled       bool
	SeenCapacity  int
	DBDsn         string
	APIAddr       string
}

// Flags holds command line flag values
type Flags struct {
	baseURL            *string
	authPath           *string
	clientVersion      *string
	sessionID          *string
	selfID             *string
	pollIntervalMillis *int
	enabled            *bool
	seenCapacity       *int
	dbDSN              *string
	apiAddr            *string
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

	seenCapacity := 0
	if raw := os.Getenv("SUP_SEEN_CAPACITY"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			seenCapacity = parsed
		} else {
			slog.Warn("Invalid SUP_SEEN_CAPACITY value, using unbounded", "value", raw)
		}
	}

	config := Config{
		BaseURL:       os.Getenv("SUP_BASE_URL"),
		AuthPath:      os.Getenv("SUP_AUTH_SESSION_PATH"),
		ClientVersion: os.Getenv("SUP_CLIENT_VERSION"),
		SessionID:     os.Getenv("SUP_SESSION_ID"),
		SelfID:        os.Getenv("SUP_SELF_ID"),
		PollInterval:  util.ParseMillisEnv("SUP_POLL_INTERVAL_MS", syncer.DefaultPollInterval),
		Enabled:       util.ParseBoolEnv("SUP_ENABLED", false),
		SeenCapacity:  seenCapacity,
		DBDsn:         os.Getenv("SUPBRIDGE_DB_DSN"),
		APIAddr:       os.Getenv("API_ADDR"),
	}

	slog.Debug("environment variables loaded",
		"SUP_BASE_URL", config.BaseURL,
		"SUP_AUTH_SESSION_PATH_SET", config.AuthPath != "",
		"SUP_CLIENT_VERSION", config.ClientVersion,
		"SUP_SESSION_ID_SET", config.SessionID != "",
		"SUP_SELF_ID_SET", config.SelfID != "",
		"SUP_POLL_INTERVAL", config.PollInterval,
		"SUP_ENABLED", config.Enabled,
		"SUP_SEEN_CAPACITY", config.SeenCapacity,
		"SUPBRIDGE_DB_DSN_SET", config.DBDsn != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		baseURL:            flag.String("base-url", config.BaseURL, "Sup service base URL (overrides $SUP_BASE_URL)"),
		authPath:           flag.String("auth-session-path", config.AuthPath, "path to the auth session token file (overrides $SUP_AUTH_SESSION_PATH)"),
		clientVersion:      flag.String("client-version", config.ClientVersion, "x-sup-client-version header value (overrides $SUP_CLIENT_VERSION)"),
		sessionID:          flag.String("session-id", config.SessionID, "x-sup-session-id header value (overrides $SUP_SESSION_ID)"),
		selfID:             flag.String("self-id", config.SelfID, "identity used for mention and echo checks (overrides $SUP_SELF_ID)"),
		pollIntervalMillis: flag.Int("poll-interval-ms", int(config.PollInterval/time.Millisecond), "poll interval in milliseconds (overrides $SUP_POLL_INTERVAL_MS)"),
		enabled:            flag.Bool("enabled", config.Enabled, "start the sync loop (overrides $SUP_ENABLED)"),
		seenCapacity:       flag.Int("seen-capacity", config.SeenCapacity, "dedup set capacity, 0 for unbounded (overrides $SUP_SEEN_CAPACITY)"),
		dbDSN:              flag.String("db-dsn", config.DBDsn, "journal database DSN, empty for in-memory (overrides $SUPBRIDGE_DB_DSN)"),
		apiAddr:            flag.String("api-addr", config.APIAddr, "control API address (overrides $API_ADDR)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"baseURL", *flags.baseURL,
		"authPathSet", *flags.authPath != "",
		"clientVersion", *flags.clientVersion,
		"sessionIDSet", *flags.sessionID != "",
		"selfIDSet", *flags.selfID != "",
		"pollIntervalMillis", *flags.pollIntervalMillis,
		"enabled", *flags.enabled,
		"seenCapacity", *flags.seenCapacity,
		"dbDSNSet", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr)

	return flags
}

// buildStoreOptions constructs journal store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL journal", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite journal", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory journal")
	}
	return storeOpts
}

// buildClientOptions constructs Sup client configuration options for a session
func buildClientOptions(flags Flags, session string) []supclient.Option {
	clientOpts := []supclient.Option{
		supclient.WithBaseURL(*flags.baseURL),
		supclient.WithSession(session),
	}
	if *flags.clientVersion != "" {
		clientOpts = append(clientOpts, supclient.WithClientVersion(*flags.clientVersion))
	}
	if *flags.sessionID != "" {
		clientOpts = append(clientOpts, supclient.WithSessionID(*flags.sessionID))
	}
	return clientOpts
}

// buildSyncerOptions constructs sync loop configuration options
func buildSyncerOptions(flags Flags, sink syncer.EventSink) []syncer.Option {
	return []syncer.Option{
		syncer.WithCredentialPath(*flags.authPath),
		syncer.WithPollInterval(time.Duration(*flags.pollIntervalMillis) * time.Millisecond),
		syncer.WithSelfID(*flags.selfID),
		syncer.WithSeenCapacity(*flags.seenCapacity),
		syncer.WithSink(sink),
		syncer.WithClientFactory(func(session string) (syncer.SnapshotFetcher, error) {
			return supclient.New(buildClientOptions(flags, session)...)
		}),
	}
}

// buildAPIOptions constructs control API configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}

// run wires the modules together and serves until interrupted
func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A file-backed journal is exclusive to one instance.
	if dsn := *flags.dbDSN; dsn != "" && store.DetectDSNType(dsn) == "sqlite" {
		lock, err := lockfile.AcquireLock(filepath.Dir(dsn))
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	st, err := store.NewStore(buildStoreOptions(flags)...)
	if err != nil {
		return err
	}
	defer st.Close()

	var sender api.Sender
	var searcher api.Searcher
	var status api.LoopStatus

	configured := *flags.baseURL != "" && *flags.authPath != ""
	if !configured {
		slog.Warn("Sup channel not configured; control API only", "base_url_set", *flags.baseURL != "", "auth_path_set", *flags.authPath != "")
	}

	if configured {
		// One client for the outbound path; the loop builds its own at start.
		session, err := credentials.Load(*flags.authPath)
		if err != nil {
			slog.Error("Failed to load auth session for outbound client", "error", err)
		} else {
			client, err := supclient.New(buildClientOptions(flags, session)...)
			if err != nil {
				slog.Error("Failed to create Sup client", "error", err)
			} else {
				sender = client
				searcher = client
			}
		}
	}

	if configured && *flags.enabled {
		sy := syncer.NewSyncer(buildSyncerOptions(flags, syncer.NewStoreSink(st))...)
		if err := sy.Start(ctx); err != nil {
			return err
		}
		defer sy.Stop()
		status = sy
	} else if configured {
		slog.Info("Sup sync loop disabled, not polling", "enabled", *flags.enabled)
	}

	server := api.NewServer(sender, searcher, status, st, buildAPIOptions(flags)...)
	return server.Run(ctx)
}
