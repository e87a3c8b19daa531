package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dialogd/internal/config"
	"dialogd/internal/engine"
	"dialogd/internal/orchestrator"
	"dialogd/internal/registry"
	"dialogd/internal/statusapi"
	"dialogd/pkg/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg  config.Config
	log  zerolog.Logger
	reg  *registry.Registry
	orch *orchestrator.Orchestrator
}

func newRootCmd() *cobra.Command {
	var cfgPath, logLevel string
	root := &cobra.Command{
		Use:           "dialogd",
		Short:         "On-device NPC dialogue daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", envOr("DIALOGD_CONFIG", "dialogd.yaml"), "Path to config file (.yaml/.json/.toml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("DIALOGD_LOG_LEVEL", ""), "Log level: debug|info|warn|error")

	chat := &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation with a configured participant",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), cfgPath, logLevel)
			if err != nil {
				return err
			}
			defer a.reg.Shutdown()
			participant, _ := cmd.Flags().GetString("participant")
			noStream, _ := cmd.Flags().GetBool("no-stream")
			return runChat(cmd.Context(), a, participant, !noStream)
		},
	}
	chat.Flags().String("participant", "", "Participant name (defaults to default_participant)")
	chat.Flags().Bool("no-stream", false, "Wait for the full reply instead of streaming tokens")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the status/metrics endpoint until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), cfgPath, logLevel)
			if err != nil {
				return err
			}
			defer a.reg.Shutdown()
			return runServe(a)
		},
	}

	root.AddCommand(chat, serve)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).With().Timestamp().Logger()
}

// bootstrap loads config, brings the registry up, and wires the
// orchestrator. Partial model-load failures are logged but not fatal; an
// empty configuration is.
func bootstrap(ctx context.Context, cfgPath, logLevel string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	log := newLogger(logLevel)
	log.Info().Bool("llama_built", engine.LlamaBuilt()).Str("config", cfgPath).Msg("starting")

	models := append([]types.ModelConfig(nil), cfg.Models...)
	if cfg.ModelsDir != "" {
		scanned, err := registry.ScanDir(cfg.ModelsDir)
		if err != nil {
			return nil, fmt.Errorf("scan models dir: %w", err)
		}
		models = append(models, scanned...)
	}

	reg := registry.New(engine.NewLlama(), cfg.Params(), log)
	if err := reg.Initialize(ctx, models); err != nil {
		if registry.IsInitializationError(err) {
			return nil, err
		}
		// Partial failure: keep going with whatever loaded.
		log.Warn().Err(err).Msg("some models failed to load")
	}
	if !reg.Ready() {
		return nil, fmt.Errorf("no text-generation model available")
	}

	orch := orchestrator.New(orchestrator.Config{
		Registry:   reg,
		Composer:   orchestrator.ComposerFor(cfg.Composer),
		MaxHistory: cfg.MaxHistory,
		Logger:     log,
	})
	return &app{cfg: cfg, log: log, reg: reg, orch: orch}, nil
}

func runChat(ctx context.Context, a *app, participant string, stream bool) error {
	if participant == "" {
		participant = a.cfg.DefaultParticipant
	}
	if participant == "" {
		return fmt.Errorf("no participant given and no default_participant configured")
	}
	sheet, ok := a.cfg.FindParticipant(participant)
	if !ok {
		return fmt.Errorf("unknown participant %q", participant)
	}
	identity := sheet.Identity()

	fmt.Printf("Talking to %s. /reset clears the conversation, /quit exits.\n", sheet.Name)
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/reset":
			a.orch.EndSession(participant)
			fmt.Println("(conversation cleared)")
			continue
		}

		var onToken func(string)
		if stream {
			onToken = func(tok string) { fmt.Print(tok) }
		}
		res, err := a.orch.Converse(ctx, participant, identity, a.cfg.World, line, onToken)
		if stream {
			fmt.Println()
		}
		if err != nil {
			fmt.Println(res.Text)
			a.log.Warn().Err(err).Msg("turn failed")
			continue
		}
		if !stream {
			fmt.Println(res.Text)
		}
	}
}

func runServe(a *app) error {
	addr := a.cfg.Addr
	if addr == "" {
		addr = envOr("DIALOGD_ADDR", ":8080")
	}
	srv := &http.Server{Addr: addr, Handler: statusapi.NewMux(a.orch, a.log)}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", addr).Msg("status endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
