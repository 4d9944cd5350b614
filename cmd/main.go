package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"problems-service/internal/api"
	"problems-service/internal/config"
	"problems-service/internal/db"
	"problems-service/internal/kafka"
	"problems-service/internal/logging"
	"problems-service/internal/notify"
	"problems-service/internal/service"
	"problems-service/internal/zabbix"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	location, err := time.LoadLocation(cfg.Export.Timezone)
	if err != nil {
		logger.Fatalf("Invalid export timezone %q: %v", cfg.Export.Timezone, err)
	}

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := dbConn.EnsureSchema(ctx); err != nil {
		logger.Fatalf("Failed to ensure schema: %v", err)
	}

	// Monitoring backend client
	zbx := zabbix.NewClient(
		cfg.Zabbix.URL,
		cfg.Zabbix.Username,
		cfg.Zabbix.Password,
		time.Duration(cfg.Zabbix.TimeoutSeconds)*time.Second,
		logger,
	)
	if err := zbx.Login(ctx); err != nil {
		logger.Fatalf("Failed to authenticate against backend: %v", err)
	}

	// Notification channel
	hub := notify.NewHub(logger)
	var forwarder *notify.TelegramForwarder
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		forwarder, err = notify.NewTelegramForwarder(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.RatePerSecond, logger)
		if err != nil {
			logger.Fatalf("Failed to init telegram forwarder: %v", err)
		}
	}
	notifier := notify.New(hub, forwarder, logger)

	// Audit stream (optional)
	var producer *kafka.Producer
	if cfg.Kafka.Broker != "" {
		producer = kafka.NewProducer(cfg.Kafka.Broker, cfg.Kafka.Topic, logger)
		defer producer.Close()
	}

	scripts := zabbix.NewScriptRegistry(cfg.Zabbix.ScriptNames, logger)
	svc := service.New(zbx, scripts, dbConn, producer, notifier, location, logger)

	// Resolve the named-script capability map once per session; missing
	// names are a reported configuration warning, not a startup failure.
	if err := svc.RefreshScripts(ctx); err != nil {
		logger.Errorf("Initial script resolution failed: %v", err)
	}

	router := api.NewRouter(svc, hub, logger, cfg)
	server := &http.Server{
		Addr:    ":" + cfg.API.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("API listening on :%s%s", cfg.API.Port, cfg.API.BasePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Shutdown failed: %v", err)
	}
}
