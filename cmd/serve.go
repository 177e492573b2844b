package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/gearshop/internal/api"
	"github.com/gearshop/internal/catalog"
	"github.com/gearshop/internal/chat"
	"github.com/gearshop/internal/clarify"
	"github.com/gearshop/internal/config"
	"github.com/gearshop/internal/database"
	"github.com/gearshop/internal/intent"
	"github.com/gearshop/internal/llm"
	"github.com/gearshop/internal/logging"
	"github.com/gearshop/internal/session"
)

// ServeCommand returns the CLI command for starting the API server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the gearshop API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if port := c.Int("port"); port > 0 {
		cfg.Server.Port = port
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	db, err := database.NewDB(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to catalog database: %w", err)
	}
	defer db.Close()

	client, err := llm.NewLangchainClient(llm.Config{
		BaseURL:        cfg.Model.BaseURL,
		APIKey:         cfg.Model.APIKey,
		Model:          cfg.Model.Name,
		RequestsPerSec: cfg.Model.RequestsPerSec,
		Burst:          cfg.Model.Burst,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize model client: %w", err)
	}

	store, err := newSessionStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	defer store.Close()

	accessor := catalog.NewAccessor(db)
	extractor := intent.NewExtractor(client, cfg.Model.ExtractTimeout)
	composer := chat.NewComposer(client, cfg.Model.ComposeTimeout, cfg.Session.ReplayWindow)
	manager := chat.NewManager(store, extractor, clarify.DefaultPolicy(), accessor, composer, chat.Options{
		MaxClarifyRounds: cfg.Chat.MaxClarifyRounds,
		ReplayWindow:     cfg.Session.ReplayWindow,
	})

	log.Info().
		Str("model", cfg.Model.Name).
		Str("session_backend", cfg.Session.Backend).
		Msg("Starting gearshop")

	server := api.NewServer(cfg.Server.Port, manager, accessor, cfg.Auth.JWTSecret)
	return server.Start()
}

func newSessionStore(cfg *config.Config) (session.Store, error) {
	if cfg.Session.Backend == "redis" {
		return session.NewRedisStore(cfg.Session.RedisURL, cfg.Session.TTL, cfg.Session.MaxMessages)
	}
	return session.NewMemoryStore(session.MemoryConfig{
		MaxConversations: cfg.Session.MaxConversations,
		MaxMessages:      cfg.Session.MaxMessages,
		TTL:              cfg.Session.TTL,
	}), nil
}
