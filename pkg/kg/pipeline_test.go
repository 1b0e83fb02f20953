package kg

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/textgraph-ai/textgraph/pkg/ai"
	"github.com/textgraph-ai/textgraph/pkg/store/memory"
)

// fakeModel satisfies ai.Client for pipeline tests. The extract hook
// decides what each structured call yields per prompt.
type fakeModel struct {
	mu      sync.Mutex
	prompts []string

	extract     func(prompt string, out *knowledgeGraphResponse) error
	completion  string
	completeErr error
}

func (f *fakeModel) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.completion, nil
}

func (f *fakeModel) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	response, ok := out.(*knowledgeGraphResponse)
	if !ok {
		return errors.New("unexpected output type")
	}
	if f.extract == nil {
		return nil
	}
	return f.extract(prompt, response)
}

func (f *fakeModel) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return []float32{0, 0, 0}, nil
}

func (f *fakeModel) ResetMetrics()               {}
func (f *fakeModel) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func aliceAcmeResponse() knowledgeGraphResponse {
	return knowledgeGraphResponse{
		Nodes: []extractedNode{
			{ID: "Alice", Type: "person"},
			{ID: "Bob", Type: "person"},
			{ID: "Acme Corp", Type: "organization"},
		},
		Rels: []extractedRelationship{
			{Source: "Alice", Target: "Acme Corp", Type: "WORKS_AT"},
			{Source: "Bob", Target: "Acme Corp", Type: "WORKS_AT"},
		},
	}
}

func TestNewPipeline_RequiresCollaborators(t *testing.T) {
	_, err := NewPipeline(NewPipelineParams{Store: memory.New()})
	if err == nil {
		t.Fatal("expected error for missing model")
	}

	_, err = NewPipeline(NewPipelineParams{Model: &fakeModel{}})
	if err == nil {
		t.Fatal("expected error for missing store")
	}
}

func TestIndexDocument_EndToEnd(t *testing.T) {
	model := &fakeModel{
		extract: func(prompt string, out *knowledgeGraphResponse) error {
			*out = aliceAcmeResponse()
			return nil
		},
	}
	st := memory.New()

	pipeline, err := NewPipeline(NewPipelineParams{Model: model, Store: st})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	text := "Alice works at Acme Corp. Bob also works at Acme Corp."
	report, err := pipeline.IndexDocument(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}

	if report.Chunks != 1 {
		t.Fatalf("expected 1 chunk, got %d", report.Chunks)
	}
	if len(report.FailedChunks) != 0 {
		t.Fatalf("expected no failed chunks, got %v", report.FailedChunks)
	}
	if report.Merge.NodesCreated != 3 || report.Merge.EdgesCreated != 2 {
		t.Fatalf("expected 3 nodes and 2 edges created, got %d/%d",
			report.Merge.NodesCreated, report.Merge.EdgesCreated)
	}
	if st.NodeCount() != 3 || st.EdgeCount() != 2 {
		t.Fatalf("expected 3 nodes and 2 edges stored, got %d/%d", st.NodeCount(), st.EdgeCount())
	}

	// Re-running the identical input must not create anything new.
	report, err = pipeline.IndexDocument(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("IndexDocument rerun: %v", err)
	}
	if report.Merge.NodesCreated != 0 || report.Merge.EdgesCreated != 0 {
		t.Fatalf("expected idempotent rerun, got %d nodes / %d edges created",
			report.Merge.NodesCreated, report.Merge.EdgesCreated)
	}
	if report.Merge.NodesUpdated != 3 || report.Merge.EdgesUpdated != 2 {
		t.Fatalf("expected 3 nodes / 2 edges updated on rerun, got %d/%d",
			report.Merge.NodesUpdated, report.Merge.EdgesUpdated)
	}
	if st.NodeCount() != 3 || st.EdgeCount() != 2 {
		t.Fatalf("store grew on rerun: %d nodes / %d edges", st.NodeCount(), st.EdgeCount())
	}
}

func TestIndexDocument_FailedChunkDoesNotAbortBatch(t *testing.T) {
	model := &fakeModel{
		extract: func(prompt string, out *knowledgeGraphResponse) error {
			if strings.Contains(prompt, "poison") {
				return errors.New("model refused")
			}
			*out = knowledgeGraphResponse{
				Nodes: []extractedNode{{ID: "Alice", Type: "person"}},
			}
			return nil
		},
	}
	st := memory.New()

	pipeline, err := NewPipeline(NewPipelineParams{
		Model:      model,
		Store:      st,
		MaxWords:   3,
		MaxRetries: 2,
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	// Three words per chunk: chunk 0 is fine, chunk 1 is poisoned.
	report, err := pipeline.IndexDocument(context.Background(), "doc-1", "Alice works here poison poison poison")
	if err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}

	if report.Chunks != 2 {
		t.Fatalf("expected 2 chunks, got %d", report.Chunks)
	}
	if len(report.FailedChunks) != 1 {
		t.Fatalf("expected 1 failed chunk, got %d", len(report.FailedChunks))
	}
	if report.FailedChunks[0].Index != 1 {
		t.Fatalf("expected chunk 1 to fail, got %d", report.FailedChunks[0].Index)
	}
	if st.NodeCount() != 1 {
		t.Fatalf("expected surviving chunk's node to be merged, got %d nodes", st.NodeCount())
	}
}

func TestIndexDocument_Cancellation(t *testing.T) {
	model := &fakeModel{
		extract: func(prompt string, out *knowledgeGraphResponse) error {
			*out = aliceAcmeResponse()
			return nil
		},
	}
	pipeline, err := NewPipeline(NewPipelineParams{Model: model, Store: memory.New()})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = pipeline.IndexDocument(ctx, "doc-1", "Alice works at Acme Corp.")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIndexDocument_EmptyText(t *testing.T) {
	pipeline, err := NewPipeline(NewPipelineParams{Model: &fakeModel{}, Store: memory.New()})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	report, err := pipeline.IndexDocument(context.Background(), "doc-1", "   \n\t  ")
	if err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if report.Chunks != 0 {
		t.Fatalf("expected 0 chunks, got %d", report.Chunks)
	}
}

func TestRetrieveAndAsk(t *testing.T) {
	model := &fakeModel{
		extract: func(prompt string, out *knowledgeGraphResponse) error {
			*out = aliceAcmeResponse()
			return nil
		},
		completion: "Alice and Bob work at Acme Corp.",
	}
	st := memory.New()
	pipeline, err := NewPipeline(NewPipelineParams{Model: model, Store: st})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	if _, err := pipeline.IndexDocument(context.Background(), "doc-1", "Alice works at Acme Corp. Bob also works at Acme Corp."); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}

	records, err := pipeline.Retrieve(context.Background(), "Acme", 10)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(records) != 1 || records[0].Key != "Acme Corp" {
		t.Fatalf("expected the Acme Corp node, got %v", records)
	}

	records, err = pipeline.Retrieve(context.Background(), "Nonexistent", 10)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no matches, got %v", records)
	}

	answer, err := pipeline.Ask(context.Background(), "Who works at Acme?", 10)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "Alice and Bob work at Acme Corp." {
		t.Fatalf("unexpected answer: %q", answer)
	}

	// The answer prompt must carry the retrieved context.
	last := model.prompts[len(model.prompts)-1]
	if !strings.Contains(last, "Acme Corp") || !strings.Contains(last, "Who works at Acme?") {
		t.Fatalf("answer prompt missing context or query:\n%s", last)
	}
}

func TestRespond_NoRecords(t *testing.T) {
	model := &fakeModel{completion: "No indexed data covers this question."}
	pipeline, err := NewPipeline(NewPipelineParams{Model: model, Store: memory.New()})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	answer, err := pipeline.Respond(context.Background(), "Who is Alice?", nil)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if answer != "No indexed data covers this question." {
		t.Fatalf("unexpected answer: %q", answer)
	}

	last := model.prompts[len(model.prompts)-1]
	if strings.Contains(last, "Context:") {
		t.Fatalf("no-data prompt should not carry a context block:\n%s", last)
	}
}
