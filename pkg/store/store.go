package store

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// ErrMissingEndpoint is returned by UpsertEdge when either endpoint node
// does not exist in the store. The merge engine counts these edges as
// skipped rather than failing the batch.
var ErrMissingEndpoint = errors.New("store: edge endpoint does not exist")

// Node is a canonical entity record in the property graph. Key is the
// stable identity key, unique within a knowledge graph.
type Node struct {
	Key        string            `json:"key"`
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
	Embedding  []float32         `json:"-"`
}

// Edge is a directed relationship between two nodes, addressed by their
// identity keys.
type Edge struct {
	SourceKey  string            `json:"source_key"`
	TargetKey  string            `json:"target_key"`
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

// GraphStore is the persistent property-graph capability. All write
// operations have merge-on-key semantics: create if absent, update if
// present, never duplicate. The store is the single source of truth;
// the pipeline holds no graph state beyond one merge batch.
type GraphStore interface {
	// UpsertNode creates or updates a node keyed on (type, key). On
	// update, the incoming properties are unioned into the stored ones
	// with the incoming value winning per key. Returns whether the node
	// was newly created.
	UpsertNode(ctx context.Context, node Node) (created bool, err error)

	// UpsertEdge creates or updates an edge keyed on (source key,
	// target key, type). Both endpoints must already exist; otherwise
	// ErrMissingEndpoint is returned. Returns whether the edge was
	// newly created.
	UpsertEdge(ctx context.Context, edge Edge) (created bool, err error)

	// QueryNodes returns up to limit nodes matching the query text:
	// case-insensitive containment of any significant query term (see
	// QueryTerms) in the identity key. A natural-language question hits
	// the nodes of the entities it mentions. Implementations may
	// additionally rank by semantic similarity.
	QueryNodes(ctx context.Context, query string, limit int) ([]Node, error)
}

// queryStopwords are question scaffolding words carrying no entity
// signal, skipped when matching query text against identity keys.
var queryStopwords = map[string]bool{
	"who": true, "whom": true, "whose": true, "what": true, "when": true,
	"where": true, "which": true, "why": true, "how": true,
	"the": true, "and": true, "but": true, "for": true, "are": true,
	"was": true, "were": true, "does": true, "did": true, "has": true,
	"have": true, "had": true, "with": true, "that": true, "this": true,
	"these": true, "those": true, "from": true, "about": true,
	"into": true, "they": true, "them": true, "their": true,
	"there": true, "can": true, "could": true, "will": true,
	"would": true, "should": true, "tell": true, "list": true,
	"show": true, "all": true, "any": true, "not": true,
}

// QueryTerms splits query text into the significant terms used for
// containment matching: lowercased words trimmed of surrounding
// punctuation, with stopwords, tokens shorter than three runes, and
// duplicates dropped. When nothing significant remains, the whole
// trimmed query is the single term, so exact-key lookups keep working.
func QueryTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, field := range strings.Fields(query) {
		term := strings.ToLower(strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if len([]rune(term)) < 3 || queryStopwords[term] || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
			terms = append(terms, q)
		}
	}
	return terms
}
