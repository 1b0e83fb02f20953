package kg

import (
	"context"
	"fmt"
	"strings"

	"github.com/textgraph-ai/textgraph/pkg/ai"
)

// Wire shape of a structured extraction response. Properties arrive as
// key/value pairs rather than a map so the schema stays strict for models
// that reject open-ended objects.
type extractedProperty struct {
	Key   string `json:"key" jsonschema_description:"Property name in camelCase"`
	Value string `json:"value" jsonschema_description:"Property value as plain text"`
}

type extractedNode struct {
	ID         string              `json:"id" jsonschema_description:"Human-readable identifier of the entity"`
	Type       string              `json:"type" jsonschema_description:"Basic entity type such as Person or Organization"`
	Properties []extractedProperty `json:"properties" jsonschema_description:"Attributes of the entity"`
}

type extractedRelationship struct {
	Source     string              `json:"source" jsonschema_description:"ID of the source entity"`
	Target     string              `json:"target" jsonschema_description:"ID of the target entity"`
	Type       string              `json:"type" jsonschema_description:"Relationship type such as WORKS_AT"`
	Properties []extractedProperty `json:"properties" jsonschema_description:"Attributes of the relationship"`
}

type knowledgeGraphResponse struct {
	Nodes []extractedNode         `json:"nodes" jsonschema_description:"Entities found in the text"`
	Rels  []extractedRelationship `json:"rels" jsonschema_description:"Relationships between the entities"`
}

// Extractor turns one chunk of text into candidate entities and
// relationships via a single structured model call. It is stateless and
// safe for concurrent use.
type Extractor struct {
	client       ai.Client
	systemPrompt string
	options      []ai.GenerateOption
}

type ExtractorParams struct {
	Client ai.Client

	// AllowedNodeTypes and AllowedRelationshipTypes restrict the labels
	// the model may emit. Empty slices leave the label space open.
	AllowedNodeTypes         []string
	AllowedRelationshipTypes []string

	// Options are forwarded to every generation call, e.g. ai.WithModel.
	Options []ai.GenerateOption
}

func NewExtractor(params ExtractorParams) *Extractor {
	return &Extractor{
		client:       params.Client,
		systemPrompt: buildExtractPrompt(params.AllowedNodeTypes, params.AllowedRelationshipTypes),
		options:      params.Options,
	}
}

func buildExtractPrompt(nodeTypes, relationshipTypes []string) string {
	var nodeLine, relLine string
	if len(nodeTypes) > 0 {
		nodeLine = fmt.Sprintf("- **Allowed Node Labels**: %s\n", strings.Join(nodeTypes, ", "))
	}
	if len(relationshipTypes) > 0 {
		relLine = fmt.Sprintf("- **Allowed Relationship Types**: %s\n", strings.Join(relationshipTypes, ", "))
	}
	return fmt.Sprintf(ai.ExtractPrompt, nodeLine, relLine)
}

// Extract runs one structured completion over the chunk text and converts
// the response into candidates. Nodes without an ID and properties without
// a key are dropped; relationship endpoints are resolved later by the
// normalizer. A response with no extractable content is not an error.
func (e *Extractor) Extract(ctx context.Context, chunk Chunk) ([]CandidateEntity, []CandidateRelationship, error) {
	opts := append([]ai.GenerateOption{ai.WithSystemPrompts(e.systemPrompt)}, e.options...)

	var response knowledgeGraphResponse
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"knowledge_graph",
		"Entities and relationships extracted from the input text",
		chunk.Text,
		&response,
		opts...,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract from chunk %d: %w", chunk.Index, err)
	}

	entities := make([]CandidateEntity, 0, len(response.Nodes))
	for _, node := range response.Nodes {
		if strings.TrimSpace(node.ID) == "" {
			continue
		}
		entities = append(entities, CandidateEntity{
			Surface:    node.ID,
			Type:       node.Type,
			Properties: propertiesFromPairs(node.Properties),
			ChunkIndex: chunk.Index,
		})
	}

	relationships := make([]CandidateRelationship, 0, len(response.Rels))
	for _, rel := range response.Rels {
		if strings.TrimSpace(rel.Source) == "" || strings.TrimSpace(rel.Target) == "" {
			continue
		}
		relationships = append(relationships, CandidateRelationship{
			Source:     rel.Source,
			Target:     rel.Target,
			Type:       rel.Type,
			Properties: propertiesFromPairs(rel.Properties),
			ChunkIndex: chunk.Index,
		})
	}

	return entities, relationships, nil
}

func propertiesFromPairs(pairs []extractedProperty) Properties {
	if len(pairs) == 0 {
		return nil
	}
	props := make(Properties, len(pairs))
	for _, pair := range pairs {
		if strings.TrimSpace(pair.Key) == "" {
			continue
		}
		props[pair.Key] = pair.Value
	}
	if len(props) == 0 {
		return nil
	}
	return props
}
