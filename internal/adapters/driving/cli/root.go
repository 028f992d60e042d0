// Package cli wires the cobra command tree that drives the pipeline.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/gramsync/internal/adapters/driven/embedding/openai"
	"github.com/meridian-labs/gramsync/internal/adapters/driven/storage/sqlite"
	"github.com/meridian-labs/gramsync/internal/adapters/driven/vectorstore/pinecone"
	"github.com/meridian-labs/gramsync/internal/config"
	"github.com/meridian-labs/gramsync/internal/connectors/instagram"
	"github.com/meridian-labs/gramsync/internal/core/ports/driven"
	"github.com/meridian-labs/gramsync/internal/core/ports/driving"
	"github.com/meridian-labs/gramsync/internal/core/services"
	"github.com/meridian-labs/gramsync/internal/logger"
	"github.com/meridian-labs/gramsync/internal/transform"
	"github.com/meridian-labs/gramsync/internal/writer"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var (
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gramsync",
	Short: "Incremental social content sync into SQL and a vector index",
	Long: `gramsync incrementally synchronises posts, comments and replies from
a Graph-style social API into a relational store and a vector index,
advancing a persistent watermark only for fully processed items.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default ~/.gramsync/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// pipeline bundles the wired services a command needs, plus teardown.
type pipeline struct {
	cfg    *config.Config
	runner driving.SyncRunner
	rel    driven.RelationalStore
	marks  driven.WatermarkStore

	closers []func() error
}

// close tears down in reverse construction order.
func (p *pipeline) close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			logger.Warn("Close failed: %v", err)
		}
	}
}

// newPipeline loads config and wires every stage of the sync pipeline.
func newPipeline() (*pipeline, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	p := &pipeline{cfg: cfg}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	p.closers = append(p.closers, store.Close)
	p.rel = store.RelationalStore()
	p.marks = store.WatermarkStore()

	source, err := instagram.NewClient(instagram.Config{
		AccessToken:       cfg.Instagram.AccessToken,
		BaseURL:           cfg.Instagram.BaseURL,
		PageSize:          cfg.Instagram.PageSize,
		RequestsPerSecond: cfg.Instagram.RequestsPerSecond,
		Burst:             cfg.Instagram.Burst,
	})
	if err != nil {
		p.close()
		return nil, err
	}
	p.closers = append(p.closers, source.Close)

	embedder, err := openai.NewEmbeddingService(openai.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.Model,
		Dimensions: cfg.OpenAI.Dimensions,
	})
	if err != nil {
		p.close()
		return nil, err
	}
	p.closers = append(p.closers, embedder.Close)

	vec, err := pinecone.NewVectorStore(pinecone.Config{
		APIKey:    cfg.Pinecone.APIKey,
		IndexHost: cfg.Pinecone.IndexHost,
		Namespace: cfg.Pinecone.Namespace,
	})
	if err != nil {
		p.close()
		return nil, err
	}
	p.closers = append(p.closers, vec.Close)

	transformer := transform.New(
		transform.WithChunkSize(cfg.Sync.ChunkSize),
		transform.WithOverlap(cfg.Sync.ChunkOverlap),
	)

	lookback, err := cfg.Lookback()
	if err != nil {
		p.close()
		return nil, err
	}

	p.runner = services.NewSyncOrchestrator(
		instagram.NewFetcher(source),
		transformer,
		writer.New(p.rel, vec, embedder, transformer),
		p.marks,
		services.WithLookback(lookback),
	)

	return p, nil
}
