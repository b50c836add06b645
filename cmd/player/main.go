package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DoyleJ11/gondi/internal/config"
	"github.com/DoyleJ11/gondi/internal/connector"
	"github.com/DoyleJ11/gondi/internal/discovery"
	"github.com/DoyleJ11/gondi/internal/logging"
	"github.com/DoyleJ11/gondi/internal/profile"
	wire "github.com/DoyleJ11/gondi/pkg/types"
)

var errNoGames = errors.New("no games found on the local network")

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Default()
	if err := newCmd(&cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gondi-player",
		Short: "Join a Gondi game on the local network from the terminal.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.ApplyEnv(cmd.Flags()); err != nil {
				return err
			}
			return cfg.ValidatePlayer()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	config.PlayerFlags(cmd.Flags(), cfg)
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	session, err := resolve(ctx, cfg, log)
	if err != nil {
		return err
	}

	me := profile.NewStatic(cfg.PlayerID, cfg.PlayerName, cfg.PlayerAvatar, cfg.PlayerBackground)
	conn := connector.New(me,
		connector.WithLogger(log.Named("connector")),
		connector.WithStatusHook(func(s connector.Status) {
			log.Debug("connection status", zap.String("status", string(s)))
		}),
	)
	defer conn.Dispose(context.Background())

	fmt.Printf("joining %q hosted by %s at %s as %s\n", session.Name, session.HostName, session.Address(), me.PlayerID)
	if err := conn.Connect(ctx, session); err != nil {
		return err
	}

	go follow(ctx, conn, me.PlayerID, os.Stdout)
	go console(ctx, conn, os.Stdin, os.Stdout)

	<-ctx.Done()
	return nil
}

// resolve finds the session to join: by address when one is configured,
// otherwise by browsing the LAN.
func resolve(ctx context.Context, cfg *config.Config, log *zap.Logger) (wire.GameSession, error) {
	if cfg.Address != "" {
		if cfg.SessionID == "" {
			return fetchSession(ctx, cfg.Address)
		}
		host, portStr, err := net.SplitHostPort(cfg.Address)
		if err != nil {
			return wire.GameSession{}, fmt.Errorf("address %q: %w", cfg.Address, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return wire.GameSession{}, fmt.Errorf("address %q: %w", cfg.Address, err)
		}
		return wire.GameSession{ID: cfg.SessionID, Host: host, Port: port, ServiceType: wire.ServiceType}, nil
	}

	fmt.Printf("looking for games for %s...\n", cfg.DiscoveryTimeout)
	found := discovery.NewBrowser(log.Named("discovery")).Lookup(ctx, cfg.DiscoveryTimeout)
	if len(found) == 0 {
		return wire.GameSession{}, errNoGames
	}
	for _, s := range found {
		fmt.Printf("  %s  code %s  host %s  %s\n", s.Name, s.Code, s.HostName, s.Address())
	}
	return found[0].Session(), nil
}

// fetchSession asks a host which session it is serving.
func fetchSession(ctx context.Context, address string) (wire.GameSession, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+address+"/session", nil)
	if err != nil {
		return wire.GameSession{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return wire.GameSession{}, fmt.Errorf("ask %s for its session: %w", address, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return wire.GameSession{}, fmt.Errorf("ask %s for its session: %s", address, resp.Status)
	}

	var s wire.GameSession
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return wire.GameSession{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}
