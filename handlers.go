package codesense

import (
	"log/slog"

	"github.com/codesense-ai/codesense/application/handler/ingestion"
	"github.com/codesense-ai/codesense/application/handler/repos"
	"github.com/codesense-ai/codesense/domain/task"
	"github.com/codesense-ai/codesense/infrastructure/analysis"
	"github.com/codesense-ai/codesense/infrastructure/chunking"
	"github.com/codesense-ai/codesense/infrastructure/git"
	"github.com/codesense-ai/codesense/infrastructure/indexing"
	"github.com/codesense-ai/codesense/infrastructure/parsing"
	"github.com/codesense-ai/codesense/infrastructure/provider"
)

// registerHandlers wires every queue operation to its handler.
func (c *Client) registerHandlers(
	cloner *git.Cloner,
	parser *parsing.Parser,
	embedder *provider.BatchEmbedder,
	chunker *chunking.Chunker,
) {
	stores := ingestion.Stores{
		Repositories:  c.stores.repositories,
		Runs:          c.stores.runs,
		Symbols:       c.stores.symbols,
		Relationships: c.stores.relationships,
		Chunks:        c.stores.chunks,
	}

	c.registry.Register(task.OperationIngestRepository, ingestion.NewRun(
		stores,
		cloner,
		parser,
		indexing.NewIndexer(c.logger),
		analysis.NewImportResolver(c.logger),
		analysis.NewCallGraphBuilder(parser, c.logger),
		chunker,
		embedder,
		c.vectors,
		c.objects,
		c.logger,
	))

	c.registry.Register(task.OperationDeleteRepository, repos.NewDelete(
		c.stores.repositories,
		c.stores.runs,
		c.stores.symbols,
		c.stores.relationships,
		c.stores.chunks,
		c.vectors,
		c.objects,
		c.logger,
	))

	c.logger.Info("registered task handlers", slog.Int("count", len(c.registry.Operations())))
}
