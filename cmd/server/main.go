package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DoyleJ11/gondi/internal/config"
	"github.com/DoyleJ11/gondi/internal/discovery"
	"github.com/DoyleJ11/gondi/internal/events"
	"github.com/DoyleJ11/gondi/internal/logging"
	"github.com/DoyleJ11/gondi/internal/server"
	"github.com/DoyleJ11/gondi/internal/store"
)

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
		Use:   "gondi-server",
		Short: "Host a Gondi game session on the local network.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.ApplyEnv(cmd.Flags()); err != nil {
				return err
			}
			return cfg.ValidateServer()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	config.ServerFlags(cmd.Flags(), cfg)
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, closeDB, err := store.New(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDB(); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}()

	var pub events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		n, err := events.Connect(cfg.NATSURL, log.Named("events"))
		if err != nil {
			log.Warn("running without event mirror", zap.Error(err))
		} else {
			pub = n
		}
	}

	opts := []server.Option{
		server.WithLogger(log.Named("server")),
		server.WithListenAddr(cfg.Bind, cfg.Port),
		server.WithPublisher(pub),
	}
	if cfg.AdvertiseHost != "" {
		opts = append(opts, server.WithAdvertisedHost(cfg.AdvertiseHost))
	}
	if !cfg.NoAdvertise {
		opts = append(opts, server.WithAdvertiser(discovery.NewAdvertiser(log.Named("discovery"))))
	}
	srv := server.New(db, opts...)

	hostID := cfg.HostID
	if hostID == "" {
		hostID = uuid.NewString()
	}
	if err := srv.Start(ctx, server.Identity{
		SessionID:  cfg.SessionID,
		Name:       cfg.SessionName,
		HostID:     hostID,
		HostName:   cfg.HostName,
		HostAvatar: cfg.HostAvatar,
	}); err != nil {
		return err
	}

	sess, _ := srv.Session()
	fmt.Printf("hosting %q  code %s  ws %s\n", sess.Name, sess.ShortCode(), sess.WebSocketURL())
	fmt.Printf("scan http://%s/session/qr.png to join, type help for commands\n", sess.Address())

	go console(ctx, srv, db, os.Stdin, os.Stdout)

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
