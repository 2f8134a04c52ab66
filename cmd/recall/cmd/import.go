package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/contextlab/recall/internal/embed"
	"github.com/contextlab/recall/internal/memory"
	"github.com/contextlab/recall/internal/output"
)

// importChunk is one chunk entry in an import file.
type importChunk struct {
	ID            string   `yaml:"id" json:"id"`
	Text          string   `yaml:"text" json:"text"`
	SequenceIndex int      `yaml:"sequence_index" json:"sequence_index"`
	Tags          []string `yaml:"tags" json:"tags"`
}

// importFact is one entity fact entry in an import file.
type importFact struct {
	Entity string `yaml:"entity" json:"entity"`
	Fact   string `yaml:"fact" json:"fact"`
}

// importFile is the on-disk import format (YAML or JSON).
type importFile struct {
	Chunks []importChunk `yaml:"chunks" json:"chunks"`
	Facts  []importFact  `yaml:"facts" json:"facts"`
}

// importOptions holds CLI flags for import.
type importOptions struct {
	scope string
	json  bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import memory chunks and entity facts",
		Long: `Load chunks and entity facts from a YAML or JSON file into the
memory store. Chunk embeddings are computed with the configured
embedding provider so semantic search covers the new data.

The file format:

  chunks:
    - text: "My uncle Bob is a carpenter in Portland."
      tags: ["entity:bob"]
  facts:
    - entity: Bob
      fact: "works as a carpenter"

Examples:
  recall import memory.yaml
  recall import memory.json --scope alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.scope, "scope", "s", "default", "User scope to import into")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output result as JSON")

	return cmd
}

func runImport(cmd *cobra.Command, path string, opts importOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	var file importFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse import file %s: %w", path, err)
	}
	if len(file.Chunks) == 0 && len(file.Facts) == 0 {
		return fmt.Errorf("import file %s contains no chunks or facts", path)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := memory.NewSQLiteStore(cfg.Storage.Path, cfg.Storage.CacheSizeMB)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := embed.New(embed.Config{
		Provider:   cfg.Embeddings.Provider,
		Endpoint:   cfg.Embeddings.Endpoint,
		Model:      cfg.Embeddings.Model,
		APIKeyEnv:  cfg.Embeddings.APIKeyEnv,
		Dimensions: cfg.Embeddings.Dimensions,
		Timeout:    cfg.Embeddings.Timeout,
		CacheSize:  cfg.Embeddings.CacheSize,
	}, slog.Default())
	if err != nil {
		return err
	}
	if embedder != nil {
		defer embedder.Close()
	}

	ctx := cmd.Context()
	now := time.Now()

	chunks := make([]*memory.Chunk, 0, len(file.Chunks))
	texts := make([]string, 0, len(file.Chunks))
	for _, c := range file.Chunks {
		if c.Text == "" {
			return fmt.Errorf("import file %s contains a chunk with empty text", path)
		}
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		chunks = append(chunks, &memory.Chunk{
			ID:            id,
			Scope:         opts.scope,
			Text:          c.Text,
			SequenceIndex: c.SequenceIndex,
			Tags:          c.Tags,
			CreatedAt:     now,
		})
		texts = append(texts, c.Text)
	}

	if embedder != nil && len(chunks) > 0 {
		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			// Chunks stay searchable via exact and entity matching.
			slog.Warn("embedding import chunks failed, storing without vectors",
				slog.String("error", err.Error()))
		} else {
			for i, vec := range vectors {
				chunks[i].Embedding = vec
			}
		}
	}

	if len(chunks) > 0 {
		if err := store.SaveChunks(ctx, chunks); err != nil {
			return err
		}
	}

	facts := make([]*memory.EntityFact, 0, len(file.Facts))
	for _, f := range file.Facts {
		if f.Entity == "" || f.Fact == "" {
			return fmt.Errorf("import file %s contains a fact with empty entity or text", path)
		}
		facts = append(facts, &memory.EntityFact{
			Scope:  opts.scope,
			Entity: f.Entity,
			Fact:   f.Fact,
		})
	}
	if len(facts) > 0 {
		if err := store.SaveEntityFacts(ctx, facts); err != nil {
			return err
		}
	}

	return output.NewWriter(cmd.OutOrStdout(), opts.json).Imported(len(chunks), len(facts))
}
