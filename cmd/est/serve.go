package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zulandar/estimaite/internal/api"
	"github.com/zulandar/estimaite/internal/config"
	"github.com/zulandar/estimaite/internal/db"
	"github.com/zulandar/estimaite/internal/feedback"
	"github.com/zulandar/estimaite/internal/notify"
	"github.com/zulandar/estimaite/internal/room"
	"github.com/zulandar/estimaite/internal/telegraph"
	discordadapter "github.com/zulandar/estimaite/internal/telegraph/discord"
	slackadapter "github.com/zulandar/estimaite/internal/telegraph/slack"
)

// announceTimeout bounds a single chat post made by the notification worker.
const announceTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the EstimAIte server",
		Long:  "Serves the room API and event streams, sweeps idle rooms and relays results to chat when configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to EstimAIte config file (defaults apply when empty)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	store, err := newRoomStore(cfg, logger)
	if err != nil {
		return err
	}
	hub := notify.NewHub()
	var dispatcher notify.Dispatcher = hub

	var relay feedback.Relay
	if cfg.Telegraph.Platform != "" {
		announcer, err := newAnnouncer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer announcer.Close()

		worker := notify.NewAsync(announcer, notify.DefaultQueueSize, announceTimeout,
			logger.With().Str("component", "notify").Logger())
		defer func() {
			dctx, dcancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer dcancel()
			if err := worker.Close(dctx); err != nil {
				logger.Warn().Err(err).Msg("pending announcements dropped")
			}
		}()
		dispatcher = notify.Multi{hub, worker}

		feedbackRelay := feedback.NewAsyncRelay(announcer, feedback.DefaultRelayQueueSize, announceTimeout,
			logger.With().Str("component", "feedback").Logger())
		defer func() {
			dctx, dcancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer dcancel()
			if err := feedbackRelay.Close(dctx); err != nil {
				logger.Warn().Err(err).Msg("pending feedback announcements dropped")
			}
		}()
		relay = feedbackRelay
	}

	gormDB, err := openFeedbackDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)
	inbox, err := feedback.NewService(gormDB, relay, logger.With().Str("component", "feedback").Logger())
	if err != nil {
		return err
	}

	reaper, err := room.NewReaper(store, cfg.Rooms.ReaperSchedule, logger.With().Str("component", "reaper").Logger())
	if err != nil {
		return err
	}
	reaper.Start()
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer scancel()
		reaper.Stop(sctx)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "EstimAIte listening on %s\n", cfg.Server.Addr())
	return api.Start(ctx, api.StartOpts{
		Rooms:           room.NewService(store, dispatcher, logger.With().Str("component", "rooms").Logger()),
		Hub:             hub,
		Feedback:        inbox,
		Addr:            cfg.Server.Addr(),
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CreateLimit: api.RateLimit{
			PerSecond: cfg.Server.RateLimit.PerSecond,
			Burst:     cfg.Server.RateLimit.Burst,
		},
		Logger: logger.With().Str("component", "api").Logger(),
	})
}

// newRoomStore builds the room table from the rooms config block.
func newRoomStore(cfg *config.Config, logger zerolog.Logger) (*room.Store, error) {
	policy, ok := room.PolicyByName(cfg.Rooms.Policy)
	if !ok {
		return nil, fmt.Errorf("rooms: unknown policy %q", cfg.Rooms.Policy)
	}
	return room.NewStore(
		room.WithTTL(cfg.Rooms.TTL),
		room.WithVoteDuration(cfg.Rooms.VoteDuration),
		room.WithDuplicateJoinWindow(cfg.Rooms.DuplicateJoinWindow),
		room.WithPolicy(policy),
		room.WithLogger(logger.With().Str("component", "room").Logger()),
	), nil
}

// newAnnouncer connects the configured chat platform.
func newAnnouncer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*telegraph.Announcer, error) {
	tlog := logger.With().Str("component", "telegraph").Logger()
	adapter, err := createAdapter(cfg, tlog)
	if err != nil {
		return nil, err
	}
	announcer, err := telegraph.NewAnnouncer(telegraph.AnnouncerOpts{
		Adapter:   adapter,
		ChannelID: cfg.Telegraph.ChannelID,
		Logger:    tlog,
	})
	if err != nil {
		return nil, err
	}
	if err := announcer.Connect(ctx); err != nil {
		return nil, err
	}
	return announcer, nil
}

// createAdapter builds a platform adapter from the config.
func createAdapter(cfg *config.Config, logger zerolog.Logger) (telegraph.Adapter, error) {
	switch cfg.Telegraph.Platform {
	case "slack":
		return slackadapter.New(slackadapter.AdapterOpts{
			BotToken:  cfg.Telegraph.Slack.BotToken,
			ChannelID: cfg.Telegraph.ChannelID,
			Logger:    logger,
		})
	case "discord":
		return discordadapter.New(discordadapter.AdapterOpts{
			BotToken:  cfg.Telegraph.Discord.BotToken,
			ChannelID: cfg.Telegraph.ChannelID,
			Logger:    logger,
		})
	default:
		return nil, fmt.Errorf("telegraph: unsupported platform %q", cfg.Telegraph.Platform)
	}
}
