package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/textgraph-ai/textgraph/pkg/store"
)

func TestUpsertNode_MergeOnKey(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.UpsertNode(ctx, store.Node{Key: "Alice", Type: "Person", Properties: map[string]string{"age": "30"}})
	if err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	if !created {
		t.Fatal("expected first upsert to create")
	}

	created, err = s.UpsertNode(ctx, store.Node{Key: "Alice", Type: "Person", Properties: map[string]string{"age": "31", "city": "Berlin"}})
	if err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	if created {
		t.Fatal("expected second upsert to update")
	}
	if s.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", s.NodeCount())
	}

	nodes, err := s.QueryNodes(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("QueryNodes: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 match, got %d", len(nodes))
	}
	if nodes[0].Properties["age"] != "31" || nodes[0].Properties["city"] != "Berlin" {
		t.Fatalf("expected incoming properties to win on union, got %v", nodes[0].Properties)
	}
}

func TestUpsertNode_SameKeyDifferentType(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.UpsertNode(ctx, store.Node{Key: "Mercury", Type: "Planet"}); err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	created, err := s.UpsertNode(ctx, store.Node{Key: "Mercury", Type: "Element"})
	if err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	if !created {
		t.Fatal("nodes are keyed on (type, key); a new type must create")
	}
	if s.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", s.NodeCount())
	}
}

func TestUpsertEdge_RequiresEndpoints(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.UpsertEdge(ctx, store.Edge{SourceKey: "Alice", TargetKey: "Acme Corp", Type: "WORKS_AT"})
	if !errors.Is(err, store.ErrMissingEndpoint) {
		t.Fatalf("expected ErrMissingEndpoint, got %v", err)
	}

	if _, err := s.UpsertNode(ctx, store.Node{Key: "Alice", Type: "Person"}); err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	if _, err := s.UpsertNode(ctx, store.Node{Key: "Acme Corp", Type: "Organization"}); err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}

	created, err := s.UpsertEdge(ctx, store.Edge{SourceKey: "Alice", TargetKey: "Acme Corp", Type: "WORKS_AT"})
	if err != nil {
		t.Fatalf("UpsertEdge: %v", err)
	}
	if !created {
		t.Fatal("expected edge creation once endpoints exist")
	}

	created, err = s.UpsertEdge(ctx, store.Edge{SourceKey: "Alice", TargetKey: "Acme Corp", Type: "WORKS_AT"})
	if err != nil {
		t.Fatalf("UpsertEdge: %v", err)
	}
	if created {
		t.Fatal("expected identical edge to update, not duplicate")
	}
	if s.EdgeCount() != 1 {
		t.Fatalf("expected 1 edge, got %d", s.EdgeCount())
	}
}

func TestQueryNodes_MatchesTermsInsideQuestion(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, n := range []store.Node{
		{Key: "Alice", Type: "Person"},
		{Key: "Acme Corp", Type: "Organization"},
		{Key: "Berlin", Type: "City"},
	} {
		if _, err := s.UpsertNode(ctx, n); err != nil {
			t.Fatalf("UpsertNode: %v", err)
		}
	}

	nodes, err := s.QueryNodes(ctx, "Who works at Acme?", 10)
	if err != nil {
		t.Fatalf("QueryNodes: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Key != "Acme Corp" {
		t.Fatalf("expected the question to hit the Acme Corp node, got %v", nodes)
	}

	nodes, err = s.QueryNodes(ctx, "Does Alice live in Berlin?", 10)
	if err != nil {
		t.Fatalf("QueryNodes: %v", err)
	}
	if len(nodes) != 2 || nodes[0].Key != "Alice" || nodes[1].Key != "Berlin" {
		t.Fatalf("expected both mentioned nodes, got %v", nodes)
	}
}

func TestQueryNodes_LimitAndOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, key := range []string{"Charlie", "Alice", "Bob"} {
		if _, err := s.UpsertNode(ctx, store.Node{Key: key, Type: "Person"}); err != nil {
			t.Fatalf("UpsertNode: %v", err)
		}
	}

	nodes, err := s.QueryNodes(ctx, "", 2)
	if err != nil {
		t.Fatalf("QueryNodes: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(nodes))
	}
	if nodes[0].Key != "Alice" || nodes[1].Key != "Bob" {
		t.Fatalf("expected stable key order, got %v", nodes)
	}

	nodes, err = s.QueryNodes(ctx, "nonexistent", 10)
	if err != nil {
		t.Fatalf("QueryNodes: %v", err)
	}
	if len(nodes) != 0 {
		t.Fatalf("expected no matches, got %v", nodes)
	}
}
