package kg

import (
	"context"
	"errors"
	"fmt"

	"github.com/textgraph-ai/textgraph/pkg/store"
)

// MergeFailure records one store-level failure inside a merge batch. The
// batch never aborts on a single record; failures accumulate here.
type MergeFailure struct {
	Record string
	Err    error
}

func (f MergeFailure) String() string {
	return fmt.Sprintf("%s: %v", f.Record, f.Err)
}

// MergeReport summarizes what one merge batch did to the store.
type MergeReport struct {
	NodesCreated int
	NodesUpdated int
	EdgesCreated int
	EdgesUpdated int

	// EdgesSkipped counts relationships whose endpoints were missing from
	// the store at upsert time.
	EdgesSkipped int

	Failures []MergeFailure
}

// Add accumulates another report into this one.
func (r *MergeReport) Add(other MergeReport) {
	r.NodesCreated += other.NodesCreated
	r.NodesUpdated += other.NodesUpdated
	r.EdgesCreated += other.EdgesCreated
	r.EdgesUpdated += other.EdgesUpdated
	r.EdgesSkipped += other.EdgesSkipped
	r.Failures = append(r.Failures, other.Failures...)
}

// Merge upserts a canonical batch into the store. All node upserts
// complete before the first edge upsert, since edges require both
// endpoints to exist. Per-record store failures are recorded in the
// report and the batch continues; already-applied upserts are never
// rolled back. Merge returns a non-nil error only when the context is
// canceled mid-batch.
func Merge(ctx context.Context, st store.GraphStore, entities []CanonicalEntity, relationships []CanonicalRelationship) (MergeReport, error) {
	var report MergeReport

	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		created, err := st.UpsertNode(ctx, store.Node{
			Key:        entity.Key,
			Type:       entity.Type,
			Properties: entity.Properties,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			report.Failures = append(report.Failures, MergeFailure{
				Record: fmt.Sprintf("node %q", entity.Key),
				Err:    err,
			})
			continue
		}
		if created {
			report.NodesCreated++
		} else {
			report.NodesUpdated++
		}
	}

	for _, rel := range relationships {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		created, err := st.UpsertEdge(ctx, store.Edge{
			SourceKey:  rel.SourceKey,
			TargetKey:  rel.TargetKey,
			Type:       rel.Type,
			Properties: rel.Properties,
		})
		if err != nil {
			if errors.Is(err, store.ErrMissingEndpoint) {
				report.EdgesSkipped++
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			report.Failures = append(report.Failures, MergeFailure{
				Record: fmt.Sprintf("edge %q-[%s]->%q", rel.SourceKey, rel.Type, rel.TargetKey),
				Err:    err,
			})
			continue
		}
		if created {
			report.EdgesCreated++
		} else {
			report.EdgesUpdated++
		}
	}

	return report, nil
}
