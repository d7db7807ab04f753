// Package app wires the application together: configuration, database,
// stores, the AI provider, the pipeline, and the HTTP server.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatly/chatly/db"
	chatai "github.com/chatly/chatly/internal/ai"
	"github.com/chatly/chatly/internal/api"
	"github.com/chatly/chatly/internal/config"
	"github.com/chatly/chatly/internal/conversation"
	"github.com/chatly/chatly/internal/database"
	"github.com/chatly/chatly/internal/knowledge"
	"github.com/chatly/chatly/internal/log"
	"github.com/chatly/chatly/internal/pipeline"
	"github.com/chatly/chatly/internal/realtime"
	"github.com/chatly/chatly/internal/tenant"
	"github.com/chatly/chatly/internal/widget"
)

// App holds the wired application.
type App struct {
	Server *api.Server
	Fanout *realtime.Fanout

	pool   *pgxpool.Pool
	logger log.Logger
}

// Setup migrates the schema, opens the pool, and wires every component.
//
// The remote AI provider is optional: without GEMINI_API_KEY the pipeline
// runs with a nil provider and replies come from the deterministic fallback
// rules.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	pool, err := database.Open(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	conversations := conversation.NewStore(pool)
	entries := knowledge.NewStore(pool)
	widgets := widget.NewStore(pool)
	tenants := tenant.NewStore(pool)
	crawler := knowledge.NewCrawler(time.Duration(cfg.CrawlTimeoutSeconds)*time.Second, logger)

	var provider pipeline.Provider
	if os.Getenv("GEMINI_API_KEY") != "" {
		genkitProvider, err := chatai.NewGenkit(ctx, time.Duration(cfg.AITimeoutSeconds)*time.Second, logger)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("initializing AI provider: %w", err)
		}
		provider = genkitProvider
		logger.Info("remote AI provider enabled", "default_model", cfg.ModelName)
	} else {
		logger.Info("no AI credential found, using local fallback responses")
	}

	fanout := realtime.NewFanout(logger)
	selector := pipeline.NewSelector(provider, logger)
	p := pipeline.New(conversations, entries, widgets, selector, fanout, cfg.ModelName, logger)

	handlers := api.Handlers{
		Health:        api.NewHealthHandler(pool, logger),
		Conversations: api.NewConversationHandler(conversations, p, fanout, logger),
		Knowledge:     api.NewKnowledgeHandler(entries, crawler, logger),
		Widget:        api.NewWidgetHandler(widgets, tenants, publicBaseURL(cfg), logger),
		Stats: api.NewStatsHandler(api.StatsCounters{
			Conversations: conversations.CountByTenant,
			Messages:      conversations.CountMessagesByTenant,
			Knowledge:     entries.CountByTenant,
		}, logger),
		Socket: api.NewSocketHandler(fanout, tenants, conversations, logger),
	}

	server := api.NewServer(cfg, handlers, tenants, logger)

	return &App{
		Server: server,
		Fanout: fanout,
		pool:   pool,
		logger: logger,
	}, nil
}

// Close releases held resources: live websocket connections first, then the
// database pool.
func (a *App) Close() error {
	a.Fanout.Close()
	a.pool.Close()
	return nil
}

// publicBaseURL derives the address baked into embed snippets. CHATLY_BASE_URL
// overrides the listen address for deployments behind a proxy.
func publicBaseURL(cfg *config.Config) string {
	if base := os.Getenv("CHATLY_BASE_URL"); base != "" {
		return strings.TrimRight(base, "/")
	}
	addr := cfg.ListenAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
