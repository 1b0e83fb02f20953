package kg

import (
	"context"
	"fmt"
	"strings"

	"github.com/textgraph-ai/textgraph/pkg/ai"
	"github.com/textgraph-ai/textgraph/pkg/store"
)

// DefaultRetrieveLimit bounds retrieval when the caller passes no limit.
const DefaultRetrieveLimit = 10

// maxContextChars bounds the context block handed to the model.
const maxContextChars = 8000

// Retrieve returns up to limit nodes whose identity key matches the query
// text. Matching is delegated to the store: containment of significant
// query terms at minimum, embedding similarity where the store supports
// it, so a full natural-language question finds the entities it mentions.
func (p *Pipeline) Retrieve(ctx context.Context, query string, limit int) ([]store.Node, error) {
	if limit <= 0 {
		limit = DefaultRetrieveLimit
	}
	nodes, err := p.store.QueryNodes(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query graph store: %w", err)
	}
	return nodes, nil
}

// Respond answers the query from the given context records via one model
// completion. With no records it asks the model for a brief "no indexed
// data" reply instead of letting it invent an answer.
func (p *Pipeline) Respond(ctx context.Context, query string, records []store.Node, opts ...ai.GenerateOption) (string, error) {
	var prompt string
	if len(records) == 0 {
		prompt = fmt.Sprintf(ai.NoDataPrompt, query)
	} else {
		prompt = fmt.Sprintf(ai.AnswerPrompt, formatContext(records), query)
	}

	answer, err := p.model.GenerateCompletion(ctx, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// Ask is Retrieve followed by Respond.
func (p *Pipeline) Ask(ctx context.Context, query string, limit int, opts ...ai.GenerateOption) (string, error) {
	records, err := p.Retrieve(ctx, query, limit)
	if err != nil {
		return "", err
	}
	return p.Respond(ctx, query, records, opts...)
}

func formatContext(records []store.Node) string {
	var b strings.Builder
	for _, node := range records {
		line := formatNode(node)
		if b.Len()+len(line)+1 > maxContextChars {
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatNode(node store.Node) string {
	var b strings.Builder
	b.WriteString("- ")
	b.WriteString(node.Key)
	if node.Type != "" {
		fmt.Fprintf(&b, " (%s)", node.Type)
	}
	if len(node.Properties) > 0 {
		b.WriteString(": ")
		first := true
		for _, key := range Properties(node.Properties).SortedKeys() {
			if !first {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", key, node.Properties[key])
			first = false
		}
	}
	return b.String()
}
