// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command stockagent serves the multi-agent stock/financial analysis
// pipeline over a single streaming HTTP endpoint.
//
// Usage:
//
//	stockagent serve --config config.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finrag/stockagent/internal/agents"
	"github.com/finrag/stockagent/internal/config"
	"github.com/finrag/stockagent/internal/embedfabric"
	"github.com/finrag/stockagent/internal/financial"
	"github.com/finrag/stockagent/internal/graph"
	"github.com/finrag/stockagent/internal/httpapi"
	"github.com/finrag/stockagent/internal/llmfabric"
	"github.com/finrag/stockagent/internal/observability"
	"github.com/finrag/stockagent/internal/retrieval"
	"github.com/finrag/stockagent/internal/technical"
	"github.com/finrag/stockagent/internal/tokenusage"
	"github.com/finrag/stockagent/internal/vectorstore"
	"github.com/finrag/stockagent/pkg/logger"
)

// CLI defines the command-line interface, grounded on cmd/hector/main.go's
// kong.CLI{Version, Serve, ...} command-struct shape.
type CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Start the streaming HTTP server."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("stockagent dev")
	return nil
}

// ServeCmd loads config, wires every provider and agent, and serves
// spec.md §6's streaming endpoint.
type ServeCmd struct {
	Config        string        `short:"c" help:"Path to config.yaml." default:"config.yaml" type:"path"`
	LLMConfig     string        `help:"Path to the per-agent LLM provider config file." type:"path"`
	Watch         bool          `help:"Watch config file for changes (logs reloads; does not hot-swap providers)."`
	LLMPollPeriod time.Duration `name:"llm-poll-period" help:"How often the LLM config file's mtime is checked." default:"5s"`
}

func (c *ServeCmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.Logger.Level)
	if err != nil {
		return err
	}
	logger.Init(level, os.Stderr, cfg.Logger.Format)
	log := logger.GetLogger()

	if c.Watch {
		watcher := config.NewWatcher(c.Config, func(newCfg *config.Config, err error) {
			if err != nil {
				log.Error("config reload failed", "error", err)
				return
			}
			log.Info("config file changed; provider wiring requires a process restart to take effect", "path", c.Config)
			_ = newCfg
		})
		if err := watcher.Start(ctx); err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	queue, closeQueue, err := buildTokenUsageQueue(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeQueue()

	llmConfigs, err := buildLLMConfigStore(c.LLMConfig, c.LLMPollPeriod)
	if err != nil {
		return err
	}

	embedder, err := buildEmbedder(ctx, cfg, queue)
	if err != nil {
		return err
	}
	defer embedder.Close()

	store, err := buildVectorStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	financialRepo, closeRepo, err := buildFinancialRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	technicalClient := technical.NewClient(cfg.Server.TechnicalDataServiceURL)

	semantic := retrieval.NewSemanticRetriever(embedder, store)
	reranker, err := buildReranker(ctx, llmConfigs, queue)
	if err != nil {
		return err
	}

	telegramLoop := retrieval.NewTelegramLoop(semantic, reranker, retrieval.TelegramLoopConfig{
		Collection: "telegram_messages",
	})
	reportLoop := retrieval.NewReportLoop(semantic, reranker, retrieval.ReportLoopConfig{
		Collection: "analyst_reports",
		ReportType: "기업리포트",
	})
	confidentialLoop := retrieval.NewReportLoop(semantic, reranker, retrieval.ReportLoopConfig{
		Collection: "confidential_reports",
		ReportType: "기밀자료",
	})

	reg := graph.NewRegistry()
	reg.MustRegister(
		agents.NewQuestionAnalyzer(llmfabric.NewAgentLLM("question_analyzer", llmConfigs, queue)),
		agents.NewTelegramRetriever(telegramLoop),
		agents.NewReportRetriever(reportLoop),
		agents.NewConfidentialRetriever(confidentialLoop),
		agents.NewFinancialRetriever(financialRepo),
		agents.NewTechnicalAnalyzer(technicalClient, llmfabric.NewAgentLLM("technical_analyzer", llmConfigs, queue)),
		agents.NewReportAnalyzer(llmfabric.NewAgentLLM("report_analyzer", llmConfigs, queue)),
		agents.NewConfidentialAnalyzer(llmfabric.NewAgentLLM("confidential_analyzer", llmConfigs, queue)),
		agents.NewIntegrator(),
		agents.NewContextResponseAgent(),
		agents.NewSummarizer(llmfabric.NewAgentLLM("summarizer", llmConfigs, queue)),
		agents.NewResponseFormatter(llmfabric.NewAgentLLM("response_formatter", llmConfigs, queue)),
	)

	metrics, err := buildMetrics(cfg)
	if err != nil {
		return err
	}
	if metrics != nil {
		defer metrics.Shutdown(context.Background())
	}

	g := graph.New(reg).WithRecorder(metrics)
	srv := httpapi.NewServer(g, log).WithMetrics(metrics)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("stockagent listening", "port", cfg.Server.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func buildTokenUsageQueue(ctx context.Context, cfg *config.Config, log *slog.Logger) (*tokenusage.Queue, func(), error) {
	if cfg.Database.DSN == "" {
		log.Warn("database.dsn not set; token usage accounting disabled")
		return nil, func() {}, nil
	}
	writer, err := tokenusage.NewPgxWriter(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("stockagent: token usage writer: %w", err)
	}
	queue := tokenusage.NewQueue(writer, 1000, 50, 5*time.Second)
	return queue, func() { queue.Close(); writer.Pool().Close() }, nil
}

func buildLLMConfigStore(path string, pollPeriod time.Duration) (*llmfabric.ConfigStore, error) {
	if path == "" {
		return llmfabric.NewConfigStore(map[string]llmfabric.AgentConfig{}), nil
	}
	return llmfabric.NewFileConfigStore(path, pollPeriod, llmfabric.LoadAgentConfigFile)
}

func buildEmbedder(ctx context.Context, cfg *config.Config, queue *tokenusage.Queue) (embedfabric.Provider, error) {
	embedCfg, ok := cfg.Embedder["default"]
	if !ok {
		for _, v := range cfg.Embedder {
			embedCfg = v
			break
		}
	}
	return embedfabric.New(ctx, embedCfg.ToEmbedfabricConfig("default"), queue)
}

func buildVectorStore(cfg *config.Config) (vectorstore.Provider, error) {
	vsCfg, ok := cfg.VectorStore["default"]
	if !ok {
		for _, v := range cfg.VectorStore {
			vsCfg = v
			break
		}
	}
	return vectorstore.New(vsCfg.ToVectorStoreConfig())
}

func buildFinancialRepository(ctx context.Context, cfg *config.Config) (financial.Repository, func(), error) {
	if cfg.Database.DSN == "" {
		return nil, nil, fmt.Errorf("stockagent: database.dsn is required for the financial repository")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("stockagent: parse database dsn: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	if cfg.Database.MinConns > 0 {
		poolCfg.MinConns = cfg.Database.MinConns
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("stockagent: connect financial database: %w", err)
	}
	return financial.NewPgxRepository(pool), pool.Close, nil
}

// buildMetrics constructs the Prometheus metrics collector when
// observability.metrics.enabled is set, else returns a nil *Metrics (every
// method on it is a no-op, so callers wire it unconditionally).
func buildMetrics(cfg *config.Config) (*observability.Metrics, error) {
	if !cfg.Observability.Metrics.Enabled {
		return nil, nil
	}
	m, err := observability.New(cfg.Observability.Metrics.Namespace)
	if err != nil {
		return nil, fmt.Errorf("stockagent: metrics: %w", err)
	}
	return m, nil
}

// buildReranker resolves the reranker's LLM once at startup via a
// dedicated AgentLLM, rather than wiring the full invoke/fallback/stream
// capability the retrieval loops don't need for rerank scoring.
func buildReranker(ctx context.Context, configs *llmfabric.ConfigStore, queue *tokenusage.Queue) (retrieval.Reranker, error) {
	llm := llmfabric.NewAgentLLM("reranker", configs, queue)
	p, err := llm.GetLLM(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("stockagent: reranker provider: %w", err)
	}
	return retrieval.NewLLMReranker(p, 20), nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("stockagent"),
		kong.Description("Multi-agent stock/financial analysis service."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(); err != nil {
		slog.Error("stockagent: fatal", "error", err)
		os.Exit(1)
	}
}
