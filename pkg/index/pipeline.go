// Package index implements the offline document ingestion pipeline: chunk a
// document, extract candidate entities and relationships per chunk, resolve
// duplicates across the batch, and write the merged graph plus the document
// itself into the stores.
package index

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/trellis-ai/trellis/backend/internal/timing"
	"github.com/trellis-ai/trellis/backend/internal/util"
	"github.com/trellis-ai/trellis/backend/pkg/ai"
	"github.com/trellis-ai/trellis/backend/pkg/common"
	"github.com/trellis-ai/trellis/backend/pkg/extract"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
	"github.com/trellis-ai/trellis/backend/pkg/store"
)

type graphWriter interface {
	store.GraphStore
	store.DocumentStore
}

type Pipeline struct {
	extractor   *extract.Extractor
	resolver    *extract.Resolver
	graphStore  graphWriter
	aiClient    ai.GraphAIClient
	encoder     string
	maxTokens   int
	maxParallel int
}

type NewPipelineParams struct {
	Extractor  *extract.Extractor
	Resolver   *extract.Resolver
	GraphStore graphWriter
	AIClient   ai.GraphAIClient
}

func NewPipeline(params NewPipelineParams) *Pipeline {
	return &Pipeline{
		extractor:   params.Extractor,
		resolver:    params.Resolver,
		graphStore:  params.GraphStore,
		aiClient:    params.AIClient,
		encoder:     util.GetEnvString("TOKEN_ENCODER", "cl100k_base"),
		maxTokens:   int(util.GetEnvNumeric("CHUNK_MAX_TOKENS", 1200)),
		maxParallel: int(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
	}
}

// Stats reports what one document contributed to the graph.
type Stats struct {
	Chunks        int `json:"chunks"`
	Entities      int `json:"entities"`
	Relationships int `json:"relationships"`
	Merged        int `json:"merged"`
}

// IndexDocument runs the full ingestion flow for one document. Extraction
// parse failures on individual chunks degrade to empty contributions; a
// model outage fails the whole document so the caller can retry it.
func (p *Pipeline) IndexDocument(ctx context.Context, doc *store.Document) (*Stats, error) {
	done := timing.Observe("index_document")

	if err := p.storeDocument(ctx, doc); err != nil {
		done(err)
		return nil, err
	}

	chunks, err := SplitText(doc.Content, p.encoder, p.maxTokens)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to chunk document %s: %w", doc.ID, err)
	}

	entities, relationships, err := p.extractChunks(ctx, chunks, doc.ID)
	if err != nil {
		done(err)
		return nil, err
	}

	mapping := p.resolver.Resolve(ctx, entities)
	entities, relationships = ApplyResolution(entities, relationships, mapping)
	p.consolidateDescriptions(ctx, entities)

	if err := p.writeGraph(ctx, entities, relationships); err != nil {
		done(err)
		return nil, err
	}

	stats := &Stats{
		Chunks:        len(chunks),
		Entities:      len(entities),
		Relationships: len(relationships),
		Merged:        len(mapping),
	}
	logger.Info("indexed document",
		"document_id", doc.ID,
		"chunks", stats.Chunks,
		"entities", stats.Entities,
		"relationships", stats.Relationships,
		"merged", stats.Merged,
	)
	done(nil)
	return stats, nil
}

func (p *Pipeline) storeDocument(ctx context.Context, doc *store.Document) error {
	if len(doc.Embedding) == 0 {
		embedding, err := p.aiClient.GenerateEmbedding(ctx, []byte(doc.Content))
		if err != nil {
			return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
		}
		doc.Embedding = embedding
	}
	return p.graphStore.CreateDocument(ctx, doc)
}

// extractChunks fans extraction out over the chunks with bounded
// concurrency. Result order across chunks is not significant; the merge in
// ApplyResolution is order-insensitive by name.
func (p *Pipeline) extractChunks(ctx context.Context, chunks []Chunk, documentID string) ([]extract.ExtractedEntity, []extract.ExtractedRelationship, error) {
	var lock sync.Mutex
	entities := []extract.ExtractedEntity{}
	relationships := []extract.ExtractedRelationship{}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.maxParallel)

	for _, chunk := range chunks {
		c := chunk
		eg.Go(func() error {
			result, err := p.extractor.Extract(gCtx, c.Text, documentID)
			if err != nil {
				return fmt.Errorf("failed to extract chunk %d: %w", c.Index, err)
			}
			if result.Error != "" {
				logger.Warn("chunk extraction degraded", "chunk", c.Index, "reason", result.Error)
				return nil
			}
			lock.Lock()
			entities = append(entities, result.Entities...)
			relationships = append(relationships, result.Relationships...)
			lock.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return entities, relationships, nil
}

// ApplyResolution folds the duplicate mapping into the batch: duplicate
// entities are absorbed into their canonical entry (descriptions merged),
// same-named extractions from different chunks collapse, and relationship
// endpoints are rewritten to canonical names.
func ApplyResolution(entities []extract.ExtractedEntity, relationships []extract.ExtractedRelationship, mapping map[string]string) ([]extract.ExtractedEntity, []extract.ExtractedRelationship) {
	canonical := func(name string) string {
		if target, ok := mapping[name]; ok && target != "" {
			return target
		}
		return name
	}

	merged := []extract.ExtractedEntity{}
	byName := map[string]int{}
	for _, entity := range entities {
		name := canonical(entity.Name)
		key := strings.ToLower(name)
		idx, seen := byName[key]
		if !seen {
			entity.Name = name
			byName[key] = len(merged)
			merged = append(merged, entity)
			continue
		}
		existing := &merged[idx]
		if entity.Description != "" && !strings.Contains(existing.Description, entity.Description) {
			if existing.Description == "" {
				existing.Description = entity.Description
			} else {
				existing.Description += "\n" + entity.Description
			}
		}
		if existing.Type == "" {
			existing.Type = entity.Type
		}
	}

	rewritten := make([]extract.ExtractedRelationship, 0, len(relationships))
	for _, rel := range relationships {
		rel.Source = canonical(rel.Source)
		rel.Target = canonical(rel.Target)
		rewritten = append(rewritten, rel)
	}

	return merged, rewritten
}

// maxMergedDescription is the length past which a merged description gets
// rewritten by the model instead of stored as raw concatenation.
const maxMergedDescription = 500

// consolidateDescriptions rewrites entities whose merge accumulated several
// chunk descriptions into one short description. Generation failures keep a
// placeholder, never block the write.
func (p *Pipeline) consolidateDescriptions(ctx context.Context, entities []extract.ExtractedEntity) {
	for i := range entities {
		entity := &entities[i]
		snippets := strings.Split(entity.Description, "\n")
		if len(snippets) < 2 || len(entity.Description) <= maxMergedDescription {
			continue
		}
		entity.Description = p.extractor.GenerateDescription(ctx, entity.Name, entity.Type, snippets)
	}
}

// writeGraph persists the merged batch. Entities get embeddings from their
// descriptions; relationships referencing names outside the batch are
// dropped and logged, never written dangling by construction.
func (p *Pipeline) writeGraph(ctx context.Context, entities []extract.ExtractedEntity, relationships []extract.ExtractedRelationship) error {
	idsByName := map[string]string{}

	for _, extracted := range entities {
		embedText := extracted.Name
		if extracted.Description != "" {
			embedText += ": " + extracted.Description
		}
		embedding, err := p.aiClient.GenerateEmbedding(ctx, []byte(embedText))
		if err != nil {
			return fmt.Errorf("failed to embed entity %q: %w", extracted.Name, err)
		}

		entity := &common.Entity{
			Name:             extracted.Name,
			Type:             extracted.Type,
			Description:      extracted.Description,
			Embedding:        embedding,
			SourceDocumentID: extracted.SourceDocumentID,
		}
		if err := p.graphStore.CreateEntity(ctx, entity); err != nil {
			return fmt.Errorf("failed to store entity %q: %w", extracted.Name, err)
		}
		idsByName[strings.ToLower(entity.Name)] = entity.ID
	}

	for _, extracted := range relationships {
		sourceID, okSource := idsByName[strings.ToLower(extracted.Source)]
		targetID, okTarget := idsByName[strings.ToLower(extracted.Target)]
		if !okSource || !okTarget {
			logger.Warn("skipping relationship with unknown endpoint",
				"source", extracted.Source, "target", extracted.Target)
			continue
		}

		rel := &common.Relationship{
			SourceID:         sourceID,
			TargetID:         targetID,
			Type:             extracted.Type,
			Weight:           1.0,
			Description:      extracted.Description,
			SourceDocumentID: extracted.SourceDocumentID,
		}
		if err := p.graphStore.CreateRelationship(ctx, rel); err != nil {
			return fmt.Errorf("failed to store relationship %s -> %s: %w", extracted.Source, extracted.Target, err)
		}
	}

	return nil
}
