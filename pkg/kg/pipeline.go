package kg

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/textgraph-ai/textgraph/internal/util"
	"github.com/textgraph-ai/textgraph/pkg/ai"
	"github.com/textgraph-ai/textgraph/pkg/logger"
	"github.com/textgraph-ai/textgraph/pkg/store"
)

// Pipeline is the single entry point for turning document text into
// persisted knowledge graph state. All collaborators are explicit; the
// pipeline holds no global or per-document state and is safe for
// concurrent use across documents.
type Pipeline struct {
	model      ai.Client
	store      store.GraphStore
	extractor  *Extractor
	normalizer *Normalizer

	maxWords     int
	tokenEncoder string
	maxTokens    int
	parallel     int
	maxRetries   int
}

// NewPipelineParams defines the configuration for creating a Pipeline.
//
// Model and Store are required. MaxWords bounds chunk size in words
// (default 600). TokenEncoder plus MaxTokens optionally re-split chunks
// that exceed a model context budget. ParallelExtractions controls how
// many chunks are extracted concurrently (default 1, strictly
// sequential). MaxRetries is the per-chunk retry budget for model calls.
type NewPipelineParams struct {
	Model ai.Client
	Store store.GraphStore

	MaxWords     int
	TokenEncoder string
	MaxTokens    int

	AllowedNodeTypes         []string
	AllowedRelationshipTypes []string

	ConflictPolicy ConflictPolicy

	ParallelExtractions int
	MaxRetries          int

	// Options are forwarded to every extraction call, e.g. ai.WithModel.
	Options []ai.GenerateOption
}

// NewPipeline creates a Pipeline from the given parameters. A missing
// model or store is a configuration error and fails here, before any
// document is processed.
func NewPipeline(params NewPipelineParams) (*Pipeline, error) {
	if params.Model == nil {
		return nil, errors.New("pipeline requires a configured model client")
	}
	if params.Store == nil {
		return nil, errors.New("pipeline requires a configured graph store")
	}

	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	parallel := params.ParallelExtractions
	if parallel <= 0 {
		parallel = 1
	}

	p := &Pipeline{
		model: params.Model,
		store: params.Store,
		extractor: NewExtractor(ExtractorParams{
			Client:                   params.Model,
			AllowedNodeTypes:         params.AllowedNodeTypes,
			AllowedRelationshipTypes: params.AllowedRelationshipTypes,
			Options:                  params.Options,
		}),
		normalizer:   NewNormalizer(NormalizerParams{Policy: params.ConflictPolicy}),
		maxWords:     params.MaxWords,
		tokenEncoder: params.TokenEncoder,
		maxTokens:    params.MaxTokens,
		parallel:     parallel,
		maxRetries:   maxRetries,
	}

	return p, nil
}

// ChunkFailure records one chunk whose extraction failed after retries.
type ChunkFailure struct {
	Index int
	Err   error
}

// IndexReport summarizes one IndexDocument run. Failed chunks and dropped
// relationships never vanish silently; they are counted here alongside
// the merge outcome.
type IndexReport struct {
	DocID  string
	Chunks int

	FailedChunks         []ChunkFailure
	DroppedRelationships int

	Merge MergeReport
}

// IndexDocument runs chunk, extract, normalize and merge for one document
// and reports what happened. Chunk extractions run concurrently up to the
// configured limit; a chunk that fails after retries is skipped and
// recorded, it does not abort its siblings. Cancellation stops dispatch
// of further chunks and is the only condition under which IndexDocument
// returns a non-nil error alongside the partial report.
func (p *Pipeline) IndexDocument(ctx context.Context, docID, text string) (*IndexReport, error) {
	chunks := slices.Collect(ChunkText(docID, text, p.maxWords))
	if p.tokenEncoder != "" && p.maxTokens > 0 {
		resplit, err := resplitByTokens(chunks, p.tokenEncoder, p.maxTokens)
		if err != nil {
			return nil, fmt.Errorf("failed to apply token budget: %w", err)
		}
		chunks = resplit
	}

	report := &IndexReport{DocID: docID, Chunks: len(chunks)}
	if len(chunks) == 0 {
		return report, nil
	}

	logger.Info("[Index] Processing document", "doc_id", docID, "chunks", len(chunks))

	var (
		entities  []CandidateEntity
		relations []CandidateRelationship
		mergeMu   sync.Mutex
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallel)
	for _, chunk := range chunks {
		c := chunk
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return nil
			default:
				e, r, err := util.Retry2WithContext(gCtx, p.maxRetries, func(ctx context.Context) ([]CandidateEntity, []CandidateRelationship, error) {
					return p.extractor.Extract(ctx, c)
				})
				if err != nil {
					if ctxErr := gCtx.Err(); ctxErr != nil {
						return ctxErr
					}
					logger.Warn("[Index] Chunk extraction failed", "doc_id", docID, "chunk", c.Index, "error", err)
					mergeMu.Lock()
					report.FailedChunks = append(report.FailedChunks, ChunkFailure{Index: c.Index, Err: err})
					mergeMu.Unlock()
					return nil
				}

				mergeMu.Lock()
				entities = append(entities, e...)
				relations = append(relations, r...)
				mergeMu.Unlock()
				return nil
			}
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	slices.SortFunc(report.FailedChunks, func(a, b ChunkFailure) int { return a.Index - b.Index })

	normalized := p.normalizer.Normalize(entities, relations)
	report.DroppedRelationships = len(normalized.DroppedRelationships)
	for _, rel := range normalized.DroppedRelationships {
		logger.Warn("[Index] Dropped relationship with unresolved endpoint",
			"doc_id", docID, "source", rel.Source, "target", rel.Target, "type", rel.Type)
	}

	merge, err := Merge(ctx, p.store, normalized.Entities, normalized.Relationships)
	report.Merge = merge
	if err != nil {
		return report, err
	}

	logger.Info("[Index] Document processed",
		"doc_id", docID,
		"nodes_created", merge.NodesCreated,
		"nodes_updated", merge.NodesUpdated,
		"edges_created", merge.EdgesCreated,
		"failed_chunks", len(report.FailedChunks))

	return report, nil
}
