package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/config"
	"github.com/lumera-ai/lumera-engine/pkg/datasource"
	"github.com/lumera-ai/lumera-engine/pkg/datasource/mssql"
	"github.com/lumera-ai/lumera-engine/pkg/datasource/postgres"
	"github.com/lumera-ai/lumera-engine/pkg/filters"
	"github.com/lumera-ai/lumera-engine/pkg/knowledge"
	"github.com/lumera-ai/lumera-engine/pkg/llm"
	"github.com/lumera-ai/lumera-engine/pkg/logging"
	"github.com/lumera-ai/lumera-engine/pkg/mcp"
	"github.com/lumera-ai/lumera-engine/pkg/mcp/tools"
	"github.com/lumera-ai/lumera-engine/pkg/pipeline"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (default config.yaml, or CONFIG_PATH)")
	question := flag.String("question", "", "answer one question, print the bundle as JSON, and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath, Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting lumera-engine",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("warehouse", cfg.Warehouse.Type),
		zap.String("llm_provider", cfg.LLM.Provider))

	kb, err := knowledge.Load(cfg.KnowledgebasePaths()...)
	if err != nil {
		logger.Fatal("failed to load knowledgebase", zap.Error(err))
	}
	kb.SetAliases(cfg.Knowledgebase.Aliases)
	kb.SetFuzzyThreshold(cfg.Knowledgebase.FuzzyThreshold)
	logger.Info("knowledgebase loaded", zap.Int("tables", len(kb.Keys())))

	ctx := context.Background()
	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to warehouse",
			zap.String("type", cfg.Warehouse.Type),
			zap.String("host", cfg.Warehouse.Host),
			zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	completer, err := llm.NewCompleter(cfg.LLM.Provider, &llm.Config{
		Endpoint: cfg.LLM.Endpoint,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create completion client", zap.Error(err))
	}

	resolver := filters.NewResolver(store, filters.Config{
		MatchThreshold: cfg.Filters.MatchThreshold,
		DistinctLimit:  cfg.Filters.DistinctLimit,
		CacheTTL:       time.Duration(cfg.Filters.CacheTTLMinutes) * time.Minute,
		RedirectTables: cfg.Filters.RedirectTables,
	}, logger)
	defer resolver.Close()

	orch := pipeline.New(completer, store, kb, resolver, pipelineConfig(cfg), logger)

	if *question != "" {
		runOnce(ctx, orch, logger, *question)
		return
	}

	srv := mcp.NewServer("lumera-engine", cfg.Version, logger)
	tools.RegisterAskTool(srv.MCP(), orch, logger)
	tools.RegisterHealthTool(srv.MCP(), cfg.Version, completer.Model(), string(store.Dialect()))
	if err := srv.ServeStdio(); err != nil {
		logger.Fatal("MCP server failed", zap.Error(err))
	}
}

// runOnce answers a single question and prints the bundle to stdout.
func runOnce(ctx context.Context, orch *pipeline.Orchestrator, logger *zap.Logger, question string) {
	bundle, err := orch.Run(ctx, question)
	if err != nil {
		logger.Fatal("pipeline run failed", zap.Error(err))
	}
	payload, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		logger.Fatal("failed to marshal bundle", zap.Error(err))
	}
	fmt.Fprintln(os.Stdout, string(payload))
}

func newStore(ctx context.Context, cfg *config.Config) (datasource.Store, error) {
	switch cfg.Warehouse.Type {
	case "postgres":
		return postgres.NewStore(ctx, &postgres.Config{
			Host:     cfg.Warehouse.Host,
			Port:     cfg.Warehouse.Port,
			User:     cfg.Warehouse.User,
			Password: cfg.Warehouse.Password,
			Database: cfg.Warehouse.Database,
			SSLMode:  cfg.Warehouse.SSLMode,
		})
	case "sqlserver":
		return mssql.NewStore(ctx, &mssql.Config{
			Host:                   cfg.Warehouse.Host,
			Port:                   cfg.Warehouse.Port,
			Database:               cfg.Warehouse.Database,
			Username:               cfg.Warehouse.User,
			Password:               cfg.Warehouse.Password,
			Encrypt:                cfg.Warehouse.Encrypt,
			TrustServerCertificate: cfg.Warehouse.TrustServerCertificate,
			ConnectionTimeout:      cfg.Warehouse.ConnectionTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported warehouse type %q", cfg.Warehouse.Type)
	}
}

// pipelineConfig maps the loaded configuration onto the orchestrator,
// with group names sorted for a stable router prompt.
func pipelineConfig(cfg *config.Config) pipeline.Config {
	names := make([]string, 0, len(cfg.Groups))
	for name := range cfg.Groups {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]pipeline.GroupDef, 0, len(names))
	for _, name := range names {
		g := cfg.Groups[name]
		groups = append(groups, pipeline.GroupDef{
			Name:        name,
			Description: g.Description,
			Tables:      g.Tables,
		})
	}

	return pipeline.Config{
		MaxRetries:    cfg.Pipeline.MaxRetries,
		RowLimit:      cfg.Pipeline.RowLimit,
		SQLErrorLimit: cfg.Pipeline.SQLErrorLimit,
		VizErrorLimit: cfg.Pipeline.VizErrorLimit,
		VizTimeout:    time.Duration(cfg.Pipeline.VizTimeoutSeconds) * time.Second,
		DefaultGroup:  cfg.Pipeline.DefaultGroup,
		SampleRows:    cfg.Pipeline.SampleRows,
		Temperature:   cfg.LLM.Temperature,
		Groups:        groups,
	}
}
