package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BioHazard786/Pairline/internal/config"
	"github.com/BioHazard786/Pairline/internal/logging"
	"github.com/BioHazard786/Pairline/internal/metrics"
	"github.com/BioHazard786/Pairline/internal/server"
	"github.com/BioHazard786/Pairline/internal/signaling"
	"github.com/BioHazard786/Pairline/internal/version"
)

var (
	flagServeAddr     string
	flagServeCORS     string
	flagServeLogLevel string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the matchmaking and signaling relay",
	Long: `Run the relay. Clients connect to /ws, join the queue and exchange their
WebRTC offer, answer and ICE candidates through it.

Examples:
  pairline serve
  pairline serve --addr :9000 --cors https://app.example.com
  PORT=9000 LOG_LEVEL=debug pairline serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "Listen address (env PAIRLINE_ADDR or PORT, default :8080)")
	serveCmd.Flags().StringVar(&flagServeCORS, "cors", "", "Comma separated allowed origins (env CORS_ALLOW, default *)")
	serveCmd.Flags().StringVar(&flagServeLogLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, err := config.LoadServer(config.ServerOptions{
		Addr:     flagServeAddr,
		CORS:     flagServeCORS,
		LogLevel: flagServeLogLevel,
	})
	if err != nil {
		return err
	}

	log, err := logging.New(logging.ParseLevel(cfg.LogLevel, zapcore.InfoLevel))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	hub := signaling.NewHub(log, m)

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()

	log.Info("starting relay",
		zap.String("version", version.Version),
		zap.String("env", cfg.Env),
		zap.String("addr", cfg.Addr),
		zap.Strings("cors", cfg.CORSOrigins))

	err = server.ListenAndServe(ctx, cfg.Addr, server.NewRouter(cfg, log, hub, m), log)

	// Closing the hub sends a close frame to every websocket still open.
	stopHub()
	<-hubDone
	return err
}
