package kg

import (
	"maps"
	"sort"
)

// Properties is a string-keyed map of primitive values attached to a node
// or an edge. Keys follow the camelCase convention produced by
// FormatPropertyKey.
type Properties map[string]string

// Clone returns a copy of the property map. A nil map clones to nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// SortedKeys returns the property keys in lexical order. Used wherever
// deterministic iteration matters.
func (p Properties) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Chunk is a contiguous span of cleaned document text. Chunks are created
// by the chunker, consumed once by the extractor, and never persisted.
type Chunk struct {
	DocID string `json:"doc_id"`
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// CandidateEntity is the raw, per-chunk extraction output for one entity
// mention. The surface form and type label are free text until the
// normalizer canonicalizes them.
type CandidateEntity struct {
	Surface    string
	Type       string
	Properties Properties
	ChunkIndex int
}

// CandidateRelationship is the raw extraction output for one edge between
// two entity surface forms of the same extraction call.
type CandidateRelationship struct {
	Source     string
	Target     string
	Type       string
	Properties Properties
	ChunkIndex int
}

// CanonicalEntity is the normalized, graph-ready form of an entity. The
// identity key is unique within a knowledge graph and serves as the merge
// key across chunks, calls, and runs.
type CanonicalEntity struct {
	Key        string
	Type       string
	Properties Properties
}

// CanonicalRelationship is a normalized edge between two canonical
// identity keys. Both endpoints resolve to canonical entities of the same
// batch before the edge is handed to the merge engine.
type CanonicalRelationship struct {
	SourceKey  string
	TargetKey  string
	Type       string
	Properties Properties
}
