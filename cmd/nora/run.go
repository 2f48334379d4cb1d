package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ChamsBouzaiene/nora/internal/agent"
	"github.com/ChamsBouzaiene/nora/internal/config"
	"github.com/ChamsBouzaiene/nora/internal/journal"
	"github.com/ChamsBouzaiene/nora/internal/oracle"
	"github.com/ChamsBouzaiene/nora/internal/world/wsbridge"
)

var cycleInterval time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect and run the decision loop until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runAgent,
}

func runAgent(cmd *cobra.Command, _ []string) error {
	if cycleInterval > 0 {
		cfg.CycleInterval = cycleInterval
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	persona, err := config.LoadPersona(cfg.PersonaFile)
	if err != nil {
		return err
	}

	completer, model, err := oracle.NewCompleter(cfg.Oracle)
	if err != nil {
		return err
	}
	client, err := oracle.NewClient(completer, persona.SystemPrompt)
	if err != nil {
		return fmt.Errorf("build oracle client: %w", err)
	}
	logger.Info("oracle ready", zap.String("provider", cfg.Oracle.Provider), zap.String("model", model))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hooks := agent.Hooks{agent.LoggerHook{L: logger.Named("agent")}}
	if cfg.JournalPath != "" {
		db, err := journal.Open(ctx, cfg.JournalPath)
		if err != nil {
			return err
		}
		defer db.Close()
		w := journal.NewWriter(db, logger.Named("journal"), journal.DefaultQueueSize)
		defer w.Close()
		hooks = append(hooks, agent.JournalHook{R: w})
		logger.Info("journal open", zap.String("path", cfg.JournalPath))
	}

	dialer := &wsbridge.Dialer{
		URL: cfg.BridgeURL,
		Hello: wsbridge.Hello{
			Host:     cfg.Server.Host,
			Port:     cfg.Server.Port,
			Username: cfg.Server.Username,
			Auth:     cfg.Server.Auth,
			Version:  cfg.Server.Version,
		},
		Log: logger.Named("wsbridge"),
	}

	rt, err := agent.New(agent.Config{
		Dialer:            dialer,
		Oracle:            client,
		Goals:             persona.Goals,
		EmotionalState:    persona.EmotionalState,
		PluginKeywords:    persona.PluginKeywords,
		BootstrapCommands: persona.BootstrapCommands,
		RecoveryCommand:   persona.RecoveryCommand,
		CycleInterval:     cfg.CycleInterval,
		Logger:            logger.Named("agent"),
		Hook:              hooks,
	})
	if err != nil {
		return err
	}

	logger.Info("launching",
		zap.String("persona", persona.Name),
		zap.String("bridge", cfg.BridgeURL),
		zap.String("server", cfg.Server.Host+":"+strconv.Itoa(cfg.Server.Port)),
		zap.Duration("cycle", cfg.CycleInterval))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.Run(gctx) })
	g.Go(func() error {
		return serveHealth(gctx, ":"+strconv.Itoa(cfg.HealthPort), rt.Status, logger.Named("health"))
	})
	if cfg.PersonaFile != "" {
		g.Go(func() error {
			return config.WatchPersona(gctx, cfg.PersonaFile, logger.Named("config"), func(p config.Persona) {
				rt.SetPersona(p.SystemPrompt)
			})
		})
	}

	err = g.Wait()
	logger.Info("stopped")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// shutdownTimeout bounds the health server drain.
const shutdownTimeout = 5 * time.Second

func shutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), shutdownTimeout)
}
