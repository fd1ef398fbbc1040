package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/agent-relay/internal/activity"
	"github.com/ziadkadry99/agent-relay/internal/agents"
	"github.com/ziadkadry99/agent-relay/internal/bots"
	"github.com/ziadkadry99/agent-relay/internal/config"
	"github.com/ziadkadry99/agent-relay/internal/db"
	"github.com/ziadkadry99/agent-relay/internal/llm"
	"github.com/ziadkadry99/agent-relay/internal/server"
)

// shutdownTimeout bounds how long in-flight requests and background
// dispatches get to finish on shutdown.
const shutdownTimeout = 30 * time.Second

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the webhook relay server",
	Long:  `Starts the relay HTTP server: the shared Slack/Teams webhook endpoint, the dispatch log API and a health check.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		dbPath := cfg.DatabasePath()
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		logger := slog.Default()

		srv := server.New(server.Config{
			Port:     cfg.Server.Port,
			AllowAll: cfg.Server.AllowAllOrigins,
		}, database, logger)

		gateway, err := buildGateway(cfg, database, logger)
		if err != nil {
			return err
		}
		registerAllRoutes(srv, cfg, database, gateway)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		done := make(chan struct{})
		go func() {
			defer close(done)
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutting down server", "err", err)
			}
			gateway.Wait()
		}()

		fmt.Fprintf(os.Stderr, "relay server %s starting on port %d\n", Version, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "  Webhook: %s\n", cfg.Webhook.Path)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		<-done
		return nil
	},
}

// buildGateway wires the agent store, model client, platform senders and
// dispatch log into the webhook gateway.
func buildGateway(cfg *config.Config, database *db.DB, logger *slog.Logger) (*bots.Gateway, error) {
	guard, err := bots.LoopGuardFor(string(cfg.Webhook.LoopGuard))
	if err != nil {
		return nil, err
	}

	agentStore := agents.NewStore(database)
	activityStore := activity.NewStore(database)

	responder := bots.NewResponder(llm.NewOpenAIFactory(cfg.Model.BaseURL, nil), bots.ResponderConfig{
		MaxTokens:           cfg.Model.MaxTokens,
		Temperature:         cfg.Model.Temperature,
		DefaultSystemPrompt: cfg.Model.DefaultSystemPrompt,
		FallbackResponse:    cfg.Model.FallbackResponse,
	})

	dispatcher := bots.NewPlatformDispatcher(
		bots.NewSlackSender(cfg.Slack.APIURL, nil, logger),
		bots.NewTeamsSender(bots.TeamsSenderConfig{
			LoginURL:          cfg.Teams.LoginURL,
			DefaultTenant:     cfg.Teams.DefaultTenant,
			DefaultServiceURL: cfg.Teams.DefaultServiceURL,
			Scope:             cfg.Teams.Scope,
		}, logger),
	)

	return bots.NewGateway(bots.GatewayConfig{
		Agents:           agentStore,
		Guard:            guard,
		Processor:        bots.NewProcessor(responder, dispatcher, activityStore, logger),
		Log:              activityStore,
		VerifySignatures: cfg.Webhook.VerifySlackSignatures,
		AsyncDispatch:    cfg.Webhook.AsyncDispatch,
		Logger:           logger,
	}), nil
}

// registerAllRoutes mounts the webhook and operator endpoints.
func registerAllRoutes(srv *server.Server, cfg *config.Config, database *db.DB, gateway *bots.Gateway) {
	r := srv.Router()

	// Webhook (Slack & Teams)
	bots.RegisterRoutes(r, cfg.Webhook.Path, gateway)

	// Dispatch log
	activity.RegisterRoutes(r, activity.NewStore(database))
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
