// Package pgx implements the GraphStore interface on PostgreSQL with
// pgvector for semantic ranking of retrieval queries.
package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/textgraph-ai/textgraph/pkg/ai"
	"github.com/textgraph-ai/textgraph/pkg/logger"
	"github.com/textgraph-ai/textgraph/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// GraphDBStore implements store.GraphStore using PostgreSQL. When an AI
// client is configured, node upserts also write a pgvector embedding of
// the node key and properties, and retrieval falls back to similarity
// ranking when containment matching finds too little.
type GraphDBStore struct {
	conn     pgxIConn
	aiClient ai.Client
}

// GraphDBStoreOption configures a GraphDBStore.
type GraphDBStoreOption func(*GraphDBStore)

// WithEmbeddings enables embedding generation through the given client.
func WithEmbeddings(client ai.Client) GraphDBStoreOption {
	return func(s *GraphDBStore) {
		s.aiClient = client
	}
}

// NewGraphDBStore creates a GraphDBStore using an existing connection or
// pool.
func NewGraphDBStore(conn pgxIConn, opts ...GraphDBStoreOption) *GraphDBStore {
	s := &GraphDBStore{conn: conn}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// UpsertNode creates or updates a node keyed on (type, key). The stored
// property map is unioned with the incoming one, incoming values winning
// per key (jsonb concatenation).
func (s *GraphDBStore) UpsertNode(ctx context.Context, node store.Node) (bool, error) {
	props, err := json.Marshal(nonNilProps(node.Properties))
	if err != nil {
		return false, fmt.Errorf("failed to encode node properties: %w", err)
	}

	embedding := node.Embedding
	if embedding == nil && s.aiClient != nil {
		embedding, err = s.aiClient.GenerateEmbedding(ctx, []byte(embeddingInput(node)))
		if err != nil {
			// The node is still written; similarity search just won't see it
			// until a later merge refreshes the embedding.
			logger.Warn("[Store] Failed to generate node embedding", "key", node.Key, "err", err)
			embedding = nil
		}
	}

	var created bool
	if embedding != nil {
		err = s.conn.QueryRow(ctx, `
			INSERT INTO kg_nodes (type, key, properties, embedding)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (type, key) DO UPDATE
			SET properties = kg_nodes.properties || EXCLUDED.properties,
			    embedding  = EXCLUDED.embedding
			RETURNING (xmax = 0)`,
			node.Type, node.Key, props, pgvector.NewVector(embedding),
		).Scan(&created)
	} else {
		err = s.conn.QueryRow(ctx, `
			INSERT INTO kg_nodes (type, key, properties)
			VALUES ($1, $2, $3)
			ON CONFLICT (type, key) DO UPDATE
			SET properties = kg_nodes.properties || EXCLUDED.properties
			RETURNING (xmax = 0)`,
			node.Type, node.Key, props,
		).Scan(&created)
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert node %q: %w", node.Key, err)
	}
	return created, nil
}

// UpsertEdge creates or updates an edge keyed on (source key, target key,
// type). Both endpoints must already exist as nodes.
func (s *GraphDBStore) UpsertEdge(ctx context.Context, edge store.Edge) (bool, error) {
	sourceID, err := s.nodeIDByKey(ctx, edge.SourceKey)
	if err != nil {
		return false, err
	}
	targetID, err := s.nodeIDByKey(ctx, edge.TargetKey)
	if err != nil {
		return false, err
	}

	props, err := json.Marshal(nonNilProps(edge.Properties))
	if err != nil {
		return false, fmt.Errorf("failed to encode edge properties: %w", err)
	}

	var created bool
	err = s.conn.QueryRow(ctx, `
		INSERT INTO kg_edges (source_id, target_id, type, properties)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_id, target_id, type) DO UPDATE
		SET properties = kg_edges.properties || EXCLUDED.properties
		RETURNING (xmax = 0)`,
		sourceID, targetID, edge.Type, props,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert edge %q->%q: %w", edge.SourceKey, edge.TargetKey, err)
	}
	return created, nil
}

// QueryNodes matches significant query terms against node identity keys
// by case-insensitive containment, so entity mentions inside a question
// hit their nodes. When embeddings are enabled and containment finds
// fewer than limit nodes, remaining slots are filled by
// cosine-similarity ranking of the query embedding.
func (s *GraphDBStore) QueryNodes(ctx context.Context, query string, limit int) ([]store.Node, error) {
	if limit <= 0 {
		limit = 10
	}

	terms := store.QueryTerms(query)
	patterns := make([]string, 0, len(terms))
	for _, term := range terms {
		patterns = append(patterns, "%"+term+"%")
	}
	if len(patterns) == 0 {
		patterns = append(patterns, "%")
	}

	rows, err := s.conn.Query(ctx, `
		SELECT key, type, properties
		FROM kg_nodes
		WHERE key ILIKE ANY($1)
		ORDER BY key, type
		LIMIT $2`,
		patterns, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, err
	}

	if len(nodes) >= limit || s.aiClient == nil {
		return nodes, nil
	}

	embedding, err := s.aiClient.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		logger.Warn("[Store] Failed to embed query, returning containment matches only", "err", err)
		return nodes, nil
	}

	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		seen[n.Type+"\x00"+n.Key] = true
	}

	rows, err = s.conn.Query(ctx, `
		SELECT key, type, properties
		FROM kg_nodes
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes by similarity: %w", err)
	}
	similar, err := scanNodes(rows)
	if err != nil {
		return nil, err
	}

	for _, n := range similar {
		if len(nodes) >= limit {
			break
		}
		if seen[n.Type+"\x00"+n.Key] {
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (s *GraphDBStore) nodeIDByKey(ctx context.Context, key string) (int64, error) {
	var id int64
	err := s.conn.QueryRow(ctx,
		`SELECT id FROM kg_nodes WHERE key = $1 ORDER BY id LIMIT 1`, key,
	).Scan(&id)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return 0, store.ErrMissingEndpoint
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve node %q: %w", key, err)
	}
	return id, nil
}

func scanNodes(rows pgxv5.Rows) ([]store.Node, error) {
	defer rows.Close()

	var nodes []store.Node
	for rows.Next() {
		var (
			node  store.Node
			props []byte
		)
		if err := rows.Scan(&node.Key, &node.Type, &props); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		if err := json.Unmarshal(props, &node.Properties); err != nil {
			return nil, fmt.Errorf("failed to decode node properties: %w", err)
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// embeddingInput builds the text embedded for a node: the identity key
// plus its properties in sorted key order, so re-merges produce identical
// embedding input.
func embeddingInput(node store.Node) string {
	out := node.Key
	keys := make([]string, 0, len(node.Properties))
	for k := range node.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out += "\n" + k + ": " + node.Properties[k]
	}
	return out
}

func nonNilProps(p map[string]string) map[string]string {
	if p == nil {
		return map[string]string{}
	}
	return p
}
