// Package config holds the settings of both binaries. Values come from flags,
// then GONDI_* environment variables, then an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/DoyleJ11/gondi/internal/logging"
	"github.com/DoyleJ11/gondi/internal/store"
)

const EnvPrefix = "GONDI"

type Config struct {
	// Host
	Bind          string
	Port          int
	AdvertiseHost string
	NoAdvertise   bool
	SessionID     string
	SessionName   string
	HostID        string
	HostName      string
	HostAvatar    string
	StoreDriver   string
	StoreDSN      string
	NATSURL       string

	// Player
	PlayerID         string
	PlayerName       string
	PlayerAvatar     string
	PlayerBackground string
	Address          string // host:port, skips discovery
	DiscoveryTimeout time.Duration

	Log logging.Config
}

func Default() Config {
	return Config{
		Bind:             "0.0.0.0",
		Port:             7420,
		StoreDriver:      store.DriverMemory,
		DiscoveryTimeout: 5 * time.Second,
		Log:              logging.DefaultConfig(),
	}
}

// LoadDotEnv loads each file into the environment without overriding
// variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func addLogFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error (env: GONDI_LOG_LEVEL)")
	fs.BoolVar(&cfg.Log.JSON, "log-json", cfg.Log.JSON, "log JSON to stdout (env: GONDI_LOG_JSON)")
	fs.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "also log to this rotating file (env: GONDI_LOG_FILE)")
}

// ServerFlags registers the moderator host's flags on fs.
func ServerFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.Bind, "bind", "b", cfg.Bind, "address to bind to (env: GONDI_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on, 0 picks one (env: GONDI_PORT)")
	fs.StringVar(&cfg.AdvertiseHost, "advertise-host", cfg.AdvertiseHost, "address announced to players (env: GONDI_ADVERTISE_HOST)")
	fs.BoolVar(&cfg.NoAdvertise, "no-advertise", cfg.NoAdvertise, "do not announce the session over mDNS (env: GONDI_NO_ADVERTISE)")
	fs.StringVar(&cfg.SessionID, "session-id", cfg.SessionID, "resume this session instead of starting a new one (env: GONDI_SESSION_ID)")
	fs.StringVarP(&cfg.SessionName, "name", "n", cfg.SessionName, "session name shown to players (env: GONDI_NAME)")
	fs.StringVar(&cfg.HostID, "host-id", cfg.HostID, "moderator player id (env: GONDI_HOST_ID)")
	fs.StringVar(&cfg.HostName, "host-name", cfg.HostName, "moderator display name (env: GONDI_HOST_NAME)")
	fs.StringVar(&cfg.HostAvatar, "host-avatar", cfg.HostAvatar, "moderator avatar (env: GONDI_HOST_AVATAR)")
	fs.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "memory, sqlite or postgres (env: GONDI_STORE)")
	fs.StringVar(&cfg.StoreDSN, "store-dsn", cfg.StoreDSN, "database file or connection string (env: GONDI_STORE_DSN)")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "mirror session events to this NATS server (env: GONDI_NATS_URL)")
	addLogFlags(fs, cfg)
}

// PlayerFlags registers the headless player's flags on fs.
func PlayerFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.PlayerID, "player-id", cfg.PlayerID, "stable player id, random when empty (env: GONDI_PLAYER_ID)")
	fs.StringVarP(&cfg.PlayerName, "player-name", "n", cfg.PlayerName, "display name (env: GONDI_PLAYER_NAME)")
	fs.StringVar(&cfg.PlayerAvatar, "player-avatar", cfg.PlayerAvatar, "avatar (env: GONDI_PLAYER_AVATAR)")
	fs.StringVar(&cfg.PlayerBackground, "player-background", cfg.PlayerBackground, "card background (env: GONDI_PLAYER_BACKGROUND)")
	fs.StringVarP(&cfg.Address, "address", "a", cfg.Address, "host:port of the session, skips discovery (env: GONDI_ADDRESS)")
	fs.StringVar(&cfg.SessionID, "session-id", cfg.SessionID, "session to join with --address, asked from the host when empty (env: GONDI_SESSION_ID)")
	fs.DurationVar(&cfg.DiscoveryTimeout, "discovery-timeout", cfg.DiscoveryTimeout, "how long to browse the LAN (env: GONDI_DISCOVERY_TIMEOUT)")
	addLogFlags(fs, cfg)
}

// ApplyEnv fills every flag that was not given on the command line from its
// GONDI_* variable.
func ApplyEnv(fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if serr := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); serr != nil && err == nil {
				err = fmt.Errorf("%s_%s: %w", EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), serr)
			}
		}
	})
	return err
}

func (c *Config) validateCommon() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

func (c *Config) ValidateServer() error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 0-65535 inclusive): %d", c.Port)
	}
	switch c.StoreDriver {
	case store.DriverMemory:
	case store.DriverSQLite, store.DriverPostgres:
		if c.StoreDSN == "" {
			return fmt.Errorf("--store-dsn is required for the %s store", c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: %q", store.ErrUnknownDriver, c.StoreDriver)
	}
	if c.HostName == "" {
		return errors.New("--host-name is required")
	}
	return nil
}

func (c *Config) ValidatePlayer() error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	if c.PlayerName == "" {
		return errors.New("--player-name is required")
	}
	if c.DiscoveryTimeout <= 0 {
		return fmt.Errorf("invalid discovery timeout: %s", c.DiscoveryTimeout)
	}
	return nil
}
