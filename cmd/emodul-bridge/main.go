package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/joshp123/emodul-golang/emodul"
	"github.com/joshp123/emodul-golang/internal/config"
	"github.com/joshp123/emodul-golang/internal/exporter"
	"github.com/joshp123/emodul-golang/internal/logging"
	"github.com/joshp123/emodul-golang/internal/mqtt"
	"github.com/joshp123/emodul-golang/internal/poller"
	"github.com/joshp123/emodul-golang/internal/server"
)

const httpShutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Init(cfg.LogLevel)

	client, err := emodul.NewClient(emodul.Config{
		Username: cfg.Emodul.Username,
		Password: cfg.Emodul.Password,
		BaseURL:  cfg.Emodul.BaseURL,
		TokenTTL: cfg.TokenTTL(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("emodul client")
	}

	var bridge *mqtt.Bridge
	if cfg.MQTT.Enabled() {
		broker := mqtt.New(mqtt.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		defer broker.Close()
		bridge = mqtt.NewBridge(mqtt.BridgeConfig{
			Publisher:       broker,
			Controller:      client,
			TopicPrefix:     cfg.MQTT.TopicPrefix,
			DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
		})
	}

	pollerCfg := poller.Config{
		Source:   client,
		Interval: cfg.PollInterval(),
		Modules:  cfg.Poll.Modules,
	}
	if bridge != nil {
		pollerCfg.OnUpdate = bridge.PublishSnapshot
	}
	modulePoller := poller.New(pollerCfg)

	registry := exporter.Registry(exporter.NewCollector(modulePoller))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HealthHandler)
	mux.Handle("/metrics", server.MetricsHandler(registry))
	mux.Handle("/status", server.StatusHandler(modulePoller))
	httpServer := server.NewHTTPServer(cfg.HTTPAddr, mux)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http serve")
		}
	}()

	log.Info().
		Str("http_addr", cfg.HTTPAddr).
		Dur("interval", cfg.PollInterval()).
		Bool("mqtt", cfg.MQTT.Enabled()).
		Msg("emodul bridge started")

	err = modulePoller.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("poller stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("emodul bridge stopped")
}
