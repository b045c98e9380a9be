package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seika-studio/scriptforge/internal/api"
	"github.com/seika-studio/scriptforge/internal/config"
	"github.com/seika-studio/scriptforge/internal/engine"
	"github.com/seika-studio/scriptforge/internal/exemplar"
	"github.com/seika-studio/scriptforge/internal/llm"
	"github.com/seika-studio/scriptforge/internal/telemetry"
	"github.com/seika-studio/scriptforge/internal/template"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the script generation HTTP server",
	Long: `Run the HTTP server that exposes script generation, template listing
and performance stats.

Required environment variables:
  OPENAI_API_KEY     - completion and embedding API key
Optional:
  MILVUS_ADDRESS     - enables few-shot exemplar retrieval when set

Examples:
  scriptforge serve
  scriptforge serve --listen :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	client, err := llm.NewOpenAIClient(llm.Config{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("completion client: %w", err)
	}

	registry := template.NewRegistry(cfg.WriterPersona)
	store := telemetry.NewStore(cfg.StoreCapacity)
	eng := engine.New(registry, store, client, logger)
	eng.SetMaxRetries(cfg.MaxRetries)

	if cfg.MilvusAddress != "" {
		retriever, err := buildRetriever(cfg)
		if err != nil {
			logger.Warn("exemplar store unavailable, running without few-shot retrieval", zap.Error(err))
		} else {
			eng.SetRetriever(retriever)
			logger.Info("exemplar retrieval enabled",
				zap.String("milvus_address", cfg.MilvusAddress),
				zap.String("collection", cfg.MilvusCollection))
		}
	}

	router := api.NewRouter(eng, registry, store, logger)

	logger.Info("listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("model", cfg.Model),
		zap.String("persona", cfg.WriterPersona))
	return router.Run(cfg.ListenAddr)
}

func buildRetriever(cfg config.Config) (*exemplar.Retriever, error) {
	embedder, err := exemplar.NewOpenAIEmbedder(cfg.EmbeddingModel, cfg.EmbeddingDim)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	milvusCfg := exemplar.DefaultMilvusConfig(cfg.MilvusAddress)
	milvusCfg.CollectionName = cfg.MilvusCollection
	milvusCfg.Dimension = cfg.EmbeddingDim

	vs, err := exemplar.NewMilvusStore(ctx, milvusCfg)
	if err != nil {
		return nil, err
	}
	return exemplar.NewRetriever(embedder, vs)
}
