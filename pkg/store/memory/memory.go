// Package memory provides an in-memory GraphStore used in tests and
// local development. It mirrors the merge-on-key semantics of the
// PostgreSQL store without any external dependency.
package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/textgraph-ai/textgraph/pkg/store"
)

type nodeKey struct {
	typ string
	key string
}

type edgeKey struct {
	source string
	target string
	typ    string
}

// Store is a mutex-guarded in-memory property graph.
type Store struct {
	mu    sync.Mutex
	nodes map[nodeKey]store.Node
	edges map[edgeKey]store.Edge
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nodes: make(map[nodeKey]store.Node),
		edges: make(map[edgeKey]store.Edge),
	}
}

// UpsertNode creates or updates a node keyed on (type, key), unioning
// properties with the incoming value winning per key.
func (s *Store) UpsertNode(ctx context.Context, node store.Node) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := nodeKey{typ: node.Type, key: node.Key}
	existing, ok := s.nodes[k]
	if !ok {
		stored := node
		stored.Properties = cloneProps(node.Properties)
		s.nodes[k] = stored
		return true, nil
	}

	if existing.Properties == nil {
		existing.Properties = make(map[string]string)
	}
	maps.Copy(existing.Properties, node.Properties)
	if node.Embedding != nil {
		existing.Embedding = node.Embedding
	}
	s.nodes[k] = existing
	return false, nil
}

// UpsertEdge creates or updates an edge keyed on (source, target, type).
// Both endpoint keys must resolve to existing nodes.
func (s *Store) UpsertEdge(ctx context.Context, edge store.Edge) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasNodeKey(edge.SourceKey) || !s.hasNodeKey(edge.TargetKey) {
		return false, store.ErrMissingEndpoint
	}

	k := edgeKey{source: edge.SourceKey, target: edge.TargetKey, typ: edge.Type}
	existing, ok := s.edges[k]
	if !ok {
		stored := edge
		stored.Properties = cloneProps(edge.Properties)
		s.edges[k] = stored
		return true, nil
	}

	if existing.Properties == nil {
		existing.Properties = make(map[string]string)
	}
	maps.Copy(existing.Properties, edge.Properties)
	s.edges[k] = existing
	return false, nil
}

// QueryNodes returns up to limit nodes whose identity key contains any
// significant query term, case-insensitive, in stable key order. An
// empty query matches everything.
func (s *Store) QueryNodes(ctx context.Context, query string, limit int) ([]store.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	terms := store.QueryTerms(query)

	matches := make([]store.Node, 0)
	for _, node := range s.nodes {
		if !containsAnyTerm(node.Key, terms) {
			continue
		}
		matches = append(matches, node)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Key != matches[j].Key {
			return matches[i].Key < matches[j].Key
		}
		return matches[i].Type < matches[j].Type
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// NodeCount returns the number of stored nodes.
func (s *Store) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// EdgeCount returns the number of stored edges.
func (s *Store) EdgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edges)
}

func (s *Store) hasNodeKey(key string) bool {
	for k := range s.nodes {
		if k.key == key {
			return true
		}
	}
	return false
}

func containsAnyTerm(key string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	lowered := strings.ToLower(key)
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

func cloneProps(p map[string]string) map[string]string {
	out := make(map[string]string, len(p))
	maps.Copy(out, p)
	return out
}
