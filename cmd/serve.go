package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spigell/recruit-bot/internal/api"
	"github.com/spigell/recruit-bot/internal/logger"
	"github.com/spigell/recruit-bot/internal/metrics"
	"github.com/spigell/recruit-bot/internal/waha"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	statusProbeTimeout = 10 * time.Second
	shutdownTimeout    = 15 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the WhatsApp webhook and the query API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :5006)")
	viper.BindPFlag("http.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.Build(logger.Options{
		JSON:    viper.GetBool("json"),
		Debug:   viper.GetBool("debug"),
		Version: version,
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the recruit-bot", zap.String("version", version))
	metrics.Register()

	b, err := newBot(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the bot", zap.Error(err))
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("closing resources", zap.Error(err))
		}
	}()

	gateway := waha.New(waha.Config{
		URL:     config.Gateway.URL,
		APIKey:  config.Gateway.APIKey,
		Session: config.Gateway.Session,
		Timeout: config.Gateway.Timeout,
	}, logger.Named("waha"))
	probeGateway(ctx, gateway, logger)

	server, err := api.NewServer(api.Config{
		Addr:        config.HTTP.Addr,
		TypingDelay: config.Gateway.TypingDelay,
		RateLimit:   config.HTTP.RateLimit,
		CORSOrigins: config.HTTP.CORSOrigins,
	}, api.Deps{
		Processor:    b.engine,
		Gateway:      gateway,
		Sessions:     b.store,
		Applications: b.repository,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("building the http server", zap.Error(err))
	}

	go b.store.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down", zap.String("reason", "signal received"))
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server forced to shut down", zap.Error(err))
	}
	logger.Info("stopped")
}

// probeGateway logs the WAHA status. Failures are not fatal: WAHA may come up
// after the bot.
func probeGateway(ctx context.Context, gateway *waha.Client, logger *zap.Logger) {
	probeCtx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
	defer cancel()

	status, err := gateway.Status(probeCtx)
	if err != nil {
		logger.Warn("waha status probe failed", zap.String("url", gateway.APIURL), zap.Error(err))
		return
	}
	logger.Info("waha is reachable", zap.String("url", gateway.APIURL), zap.Any("status", status))
}
