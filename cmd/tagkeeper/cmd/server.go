package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/tagkeeper/internal/core/auth"
	"github.com/solatis/tagkeeper/internal/core/config"
	"github.com/solatis/tagkeeper/internal/core/db"
	"github.com/solatis/tagkeeper/internal/core/events"
	"github.com/solatis/tagkeeper/internal/core/httpapi"
	"github.com/solatis/tagkeeper/internal/core/server"
	"github.com/solatis/tagkeeper/internal/core/store"
	"github.com/solatis/tagkeeper/internal/engine"
)

const Version = "0.1.0"

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API and task runner",
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	serverCmd.Flags().Int("port", 8080, "HTTP server port")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		cfg.Server.Host = host
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Server.Port = port
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if dbURL == "" {
		return fmt.Errorf("--db-url required")
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	var migrationID string
	checkQuery := `SELECT migration_id FROM migrations WHERE migration_id = '001_initial_schema.sql'`
	err = database.Get(&migrationID, database.Rebind(checkQuery))
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("migration 001_initial_schema not applied - run 'tagkeeper migrate' first")
		}
		return fmt.Errorf("failed to check migrations: %w", err)
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set TGK_HMAC_SECRET environment variable)")
	}
	authenticator := auth.NewAuthenticator(secrets, queries)

	ruleStore := store.NewRuleStore(queries)
	documentStore := store.NewDocumentStore(queries)
	tagStore := store.NewTagStore(queries)
	taskStore := store.NewTaskStore(queries)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Events.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		publisher = events.NewRedisPublisher(client, cfg.Events.Stream)
	}

	applier := engine.NewApplier(tagStore, publisher, logger)
	trigger := engine.NewTrigger(ruleStore, applier, logger)
	orchestrator := engine.NewOrchestrator(ruleStore, documentStore, taskStore, applier, engine.Config{
		Workers:            cfg.Engine.Workers,
		BatchSize:          cfg.Engine.BatchSize,
		MaxConcurrentTasks: cfg.Engine.MaxConcurrentTasks,
		LeaseDuration:      cfg.Engine.LeaseDuration,
		PollInterval:       cfg.Engine.PollInterval,
	}, logger)

	service := httpapi.NewService(ruleStore, documentStore, tagStore, taskStore, trigger, orchestrator, logger)
	httpServer, err := server.NewHTTPServer(&cfg.Server, service.Router(authenticator))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	runnerCtx, stopRunner := context.WithCancel(context.Background())
	defer stopRunner()
	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		orchestrator.Run(runnerCtx)
	}()

	logger.Info("starting tagkeeper server",
		zap.String("version", Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Start(context.Background())
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		stopRunner()
		<-runnerDone
		return err
	case <-sigChan:
		logger.Info("shutting down gracefully")
		stopRunner()
		err := httpServer.Shutdown(context.Background())
		<-runnerDone
		return err
	}
}
