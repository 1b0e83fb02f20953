package kg

import (
	"sort"
	"strings"
	"unicode"
)

// ConflictPolicy controls which value survives when two candidates for the
// same canonical entity carry the same property key.
type ConflictPolicy int

const (
	// LastWins keeps the value of the later-processed candidate. This is
	// the default; processing order is chunk order, so later chunks of a
	// document override earlier ones.
	LastWins ConflictPolicy = iota

	// FirstWins keeps the value of the earliest-processed candidate.
	FirstWins
)

// Normalizer collapses candidate entities that refer to the same
// real-world thing into single canonical records and rewrites relationship
// endpoints onto canonical identity keys.
type Normalizer struct {
	policy ConflictPolicy
}

type NormalizerParams struct {
	Policy ConflictPolicy
}

func NewNormalizer(params NormalizerParams) *Normalizer {
	return &Normalizer{policy: params.Policy}
}

// NormalizeResult carries the canonical batch plus the relationships the
// normalizer had to drop because an endpoint never resolved to an entity.
type NormalizeResult struct {
	Entities             []CanonicalEntity
	Relationships        []CanonicalRelationship
	DroppedRelationships []CandidateRelationship
}

// Normalize canonicalizes a batch of extraction candidates. Candidates are
// stably sorted by chunk index first, so "later wins" stays deterministic
// even when extraction completed out of order. Entities appear in the
// output in order of first appearance; duplicate relationships collapse to
// one record with unioned properties.
func (n *Normalizer) Normalize(entities []CandidateEntity, relationships []CandidateRelationship) NormalizeResult {
	entities = sortedByChunk(entities, func(e CandidateEntity) int { return e.ChunkIndex })
	relationships = sortedByChunk(relationships, func(r CandidateRelationship) int { return r.ChunkIndex })

	byKey := make(map[string]*CanonicalEntity)
	order := make([]string, 0, len(entities))

	for _, entity := range entities {
		key := CanonicalKey(entity.Surface)
		if key == "" {
			continue
		}

		existing, ok := byKey[key]
		if !ok {
			byKey[key] = &CanonicalEntity{
				Key:        key,
				Type:       CanonicalType(entity.Type),
				Properties: normalizeProperties(entity.Properties),
			}
			order = append(order, key)
			continue
		}

		if existing.Type == "" {
			existing.Type = CanonicalType(entity.Type)
		}
		existing.Properties = n.unionProperties(existing.Properties, normalizeProperties(entity.Properties))
	}

	result := NormalizeResult{
		Entities: make([]CanonicalEntity, 0, len(order)),
	}
	for _, key := range order {
		result.Entities = append(result.Entities, *byKey[key])
	}

	type edgeIdentity struct {
		source, target, typ string
	}
	edges := make(map[edgeIdentity]*CanonicalRelationship)
	var edgeOrder []edgeIdentity

	for _, rel := range relationships {
		source := CanonicalKey(rel.Source)
		target := CanonicalKey(rel.Target)
		if _, ok := byKey[source]; !ok {
			result.DroppedRelationships = append(result.DroppedRelationships, rel)
			continue
		}
		if _, ok := byKey[target]; !ok {
			result.DroppedRelationships = append(result.DroppedRelationships, rel)
			continue
		}

		identity := edgeIdentity{source: source, target: target, typ: CanonicalType(rel.Type)}
		existing, ok := edges[identity]
		if !ok {
			edges[identity] = &CanonicalRelationship{
				SourceKey:  source,
				TargetKey:  target,
				Type:       identity.typ,
				Properties: normalizeProperties(rel.Properties),
			}
			edgeOrder = append(edgeOrder, identity)
			continue
		}
		existing.Properties = n.unionProperties(existing.Properties, normalizeProperties(rel.Properties))
	}

	result.Relationships = make([]CanonicalRelationship, 0, len(edgeOrder))
	for _, identity := range edgeOrder {
		result.Relationships = append(result.Relationships, *edges[identity])
	}

	return result
}

func (n *Normalizer) unionProperties(base, incoming Properties) Properties {
	if len(incoming) == 0 {
		return base
	}
	if base == nil {
		base = make(Properties, len(incoming))
	}
	for _, key := range incoming.SortedKeys() {
		if n.policy == FirstWins {
			if _, ok := base[key]; ok {
				continue
			}
		}
		base[key] = incoming[key]
	}
	return base
}

func normalizeProperties(props Properties) Properties {
	if len(props) == 0 {
		return nil
	}
	out := make(Properties, len(props))
	for _, key := range props.SortedKeys() {
		formatted := FormatPropertyKey(key)
		if formatted == "" {
			continue
		}
		out[formatted] = props[key]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sortedByChunk[T any](in []T, index func(T) int) []T {
	out := make([]T, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return index(out[i]) < index(out[j]) })
	return out
}

// CanonicalKey derives the cross-chunk merge key for an entity surface
// form: interior whitespace collapses to single spaces and every word is
// title-cased, so "john doe", "John Doe" and " John  Doe " all map to
// "John Doe".
func CanonicalKey(surface string) string {
	words := strings.Fields(surface)
	for i, word := range words {
		words[i] = titleWord(word)
	}
	return strings.Join(words, " ")
}

// CanonicalType capitalizes the first letter of a type label and leaves
// the rest untouched. Labels stay free-form but consistently cased.
func CanonicalType(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	runes := []rune(label)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// FormatPropertyKey converts a free-form property name to camelCase:
// "birth year" becomes "birthYear".
func FormatPropertyKey(key string) string {
	words := strings.Fields(key)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, word := range words[1:] {
		b.WriteString(titleWord(word))
	}
	return b.String()
}

func titleWord(word string) string {
	runes := []rune(strings.ToLower(word))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
