package container

import (
	"context"
	"fmt"
	"log"

	"datastory/adapters/filestore"
	"datastory/adapters/llm"
	"datastory/adapters/sqlstore"
	"datastory/ai"
	"datastory/app"
	"datastory/internal"
	"datastory/internal/api"
	"datastory/internal/config"
	"datastory/internal/usage"
	"datastory/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Log    *internal.Logger

	// Infrastructure
	DB    *sqlx.DB
	Store *sqlstore.Store
	Blobs ports.BlobStore

	// Generative providers
	Providers []ports.LLMProvider
	Caller    *ai.Caller
	Prompts   *ai.PromptManager

	// Application services
	Usage    *usage.Service
	Ingest   *app.IngestService
	Analysis *app.AnalysisService
	Stories  *app.StoryService
}

// New builds the parts that need no database: providers, the caller, prompts
// and the blob store.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config:  cfg,
		Log:     internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level)),
		Prompts: ai.NewPromptManager(cfg.AI.PromptsDir),
	}

	for _, pc := range ProviderConfigs(cfg.AI) {
		provider, err := llm.NewProvider(pc)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
		}
		c.Providers = append(c.Providers, provider)
	}
	c.Caller = ai.NewCaller(c.Providers, int64(cfg.AI.MaxConcurrent))

	blobs, err := filestore.NewLocalStore(cfg.Storage.UploadDir)
	if err != nil {
		return nil, err
	}
	c.Blobs = blobs

	log.Printf("[Container] %d provider(s) configured; insight chain %v, story chain %v",
		len(c.Providers), cfg.AI.InsightChain, cfg.AI.StoryChain)
	return c, nil
}

// ProviderConfigs converts configured providers into adapter settings.
func ProviderConfigs(aiCfg config.AIConfig) []llm.Config {
	out := make([]llm.Config, 0, len(aiCfg.Providers))
	for _, p := range aiCfg.Providers {
		out = append(out, llm.Config{
			Name:        p.Name,
			Kind:        p.Kind,
			Model:       p.Model,
			APIKey:      p.APIKey,
			BaseURL:     p.BaseURL,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
			Timeout:     aiCfg.Timeout,
		})
	}
	return out
}

// InitWithDatabase wires repositories and services over db
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db
	c.Store = sqlstore.NewStore(db)
	c.Usage = usage.NewService(c.Store.Usage)

	insights := app.NewInsightOrchestrator(c.Caller, c.Prompts, ai.Policy{
		Stage:   "insights",
		Chain:   c.Config.AI.InsightChain,
		Timeout: c.Config.AI.Timeout,
	})
	stories := app.NewStoryOrchestrator(c.Caller, c.Prompts, ai.Policy{
		Stage:   "story",
		Chain:   c.Config.AI.StoryChain,
		Timeout: c.Config.AI.Timeout,
	})

	c.Ingest = app.NewIngestService(c.Store.Sources, c.Blobs, app.IngestLimits{
		MaxFileSize:   c.Config.Storage.MaxFileSize,
		MaxStoredRows: c.Config.Storage.MaxStoredRows,
	})
	c.Analysis = app.NewAnalysisService(c.Store.Sources, c.Store.Analyses, c.Blobs, insights, c.Usage)
	c.Stories = app.NewStoryService(c.Store.Sources, c.Store.Analyses, c.Store.Drafts, stories, c.Usage)
	return nil
}

// Open connects to the configured database, applies migrations and wires
// the services.
func (c *Container) Open(ctx context.Context) error {
	db, err := sqlstore.OpenAndMigrate(ctx, c.Config.Database.Driver, c.Config.Database.URL)
	if err != nil {
		return err
	}
	return c.InitWithDatabase(db)
}

// APIServices returns the services the HTTP layer needs.
func (c *Container) APIServices() api.Services {
	return api.Services{
		Ingest:   c.Ingest,
		Analysis: c.Analysis,
		Stories:  c.Stories,
		Usage:    c.Usage,
	}
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	// Let pending usage writes land before the pool closes
	done := make(chan struct{})
	go func() {
		c.Usage.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Printf("[Container] Shutdown deadline reached with usage writes pending")
	}

	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
