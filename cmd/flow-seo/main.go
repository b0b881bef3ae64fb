package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cartermitchell13/flow-seo/core"
	"github.com/cartermitchell13/flow-seo/core/providers"
	"github.com/cartermitchell13/flow-seo/storage"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port string `yaml:"port"`
	Env  string `yaml:"env"`

	DB DBConfig `yaml:"db"`

	Webflow providers.WebflowConfig `yaml:"webflow"`

	Session struct {
		TTLSeconds int `yaml:"ttl_seconds"`
	} `yaml:"session"`
}

type DBConfig struct {
	Type        string `yaml:"type"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

func main() {
	// Optional; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := getEnv("CONFIG_PATH", "config.yaml")
	appConfig := loadConfigFromYAML(configPath)

	log := initLogger(appConfig.Env)
	defer log.Sync()

	coreConfig := &core.Config{
		MasterKey:         os.Getenv("FLOWSEO_MASTER_KEY"),
		SessionSecret:     os.Getenv("FLOWSEO_SESSION_SECRET"),
		SessionTTLSeconds: appConfig.Session.TTLSeconds,
	}
	if err := coreConfig.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	if v := os.Getenv("WEBFLOW_CLIENT_ID"); v != "" {
		appConfig.Webflow.ClientID = v
	}
	if v := os.Getenv("WEBFLOW_CLIENT_SECRET"); v != "" {
		appConfig.Webflow.ClientSecret = v
	}
	if appConfig.Webflow.ClientID == "" || appConfig.Webflow.ClientSecret == "" {
		log.Fatal("WEBFLOW_CLIENT_ID and WEBFLOW_CLIENT_SECRET are required")
	}

	store := initStore(appConfig.DB, log)
	defer store.Close()

	crypto, err := core.NewCryptoService(coreConfig.MasterKey)
	if err != nil {
		log.Fatal("failed to initialize crypto service", zap.Error(err))
	}

	provider := providers.NewWebflowProvider(&appConfig.Webflow)
	flow := core.NewOAuthFlow(provider, store, log.Named("oauth"))
	sessions := core.NewSessionManager(
		coreConfig.SessionSecret,
		time.Duration(coreConfig.SessionTTLSeconds)*time.Second,
		store,
		provider,
	)
	keys := core.NewKeyService(crypto, store, log.Named("keys"))

	server := core.NewServer(flow, sessions, keys, log.Named("http"))

	httpServer := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("starting flow-seo server", zap.String("port", appConfig.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}

func loadConfigFromYAML(path string) *AppConfig {
	data, err := os.ReadFile(path)
	if err != nil {
		// No logger yet; config loading failures go straight to stderr.
		os.Stderr.WriteString("failed to read config file " + path + ": " + err.Error() + "\n")
		os.Exit(1)
	}

	var config AppConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		os.Stderr.WriteString("failed to parse config file: " + err.Error() + "\n")
		os.Exit(1)
	}

	if config.Port == "" {
		config.Port = "8080"
	}

	return &config
}

func initLogger(env string) *zap.Logger {
	if strings.EqualFold(env, "prod") || strings.EqualFold(env, "production") {
		log, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return log
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return log
}

func initStore(dbConfig DBConfig, log *zap.Logger) core.CredentialStore {
	switch strings.ToLower(dbConfig.Type) {
	case "sqlite":
		store, err := storage.NewSQLiteStore(dbConfig.SQLitePath)
		if err != nil {
			log.Fatal("failed to initialize sqlite store", zap.Error(err))
		}
		log.Info("using sqlite store", zap.String("path", dbConfig.SQLitePath))
		return store

	case "postgres":
		store, err := storage.NewPostgresStore(dbConfig.PostgresDSN)
		if err != nil {
			log.Fatal("failed to initialize postgres store", zap.Error(err))
		}
		log.Info("using postgres store")
		return store

	default:
		log.Fatal("unsupported db type (supported: sqlite, postgres)", zap.String("type", dbConfig.Type))
		return nil
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
