package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/textgraph-ai/textgraph/internal/storage"
	"github.com/textgraph-ai/textgraph/pkg/kg"
	"github.com/textgraph-ai/textgraph/pkg/leaselock"
	"github.com/textgraph-ai/textgraph/pkg/logger"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// ProcessIndexMessage handles one index job: fetch the document text from
// S3 and run it through the pipeline under a per-document lease, so two
// workers never index the same document concurrently. A report with
// failed chunks is not a processing error; only a total failure routes
// the message to retry.
func ProcessIndexMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	lockClient *leaselock.Client,
	pipeline *kg.Pipeline,
	msg string,
) error {
	data := new(IndexJobMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to decode index job: %w", err)
	}
	if data.DocID == "" || data.FileKey == "" {
		return fmt.Errorf("index job missing doc_id or file_key: %q", msg)
	}

	text, err := storage.GetDocument(ctx, s3Client, data.FileKey)
	if err != nil {
		return err
	}

	return lockClient.WithLease(ctx, "index:"+data.DocID, leaselock.Options{
		TTL:        10 * time.Minute,
		RenewEvery: 4 * time.Minute,
		Wait:       true,
	}, func(ctx context.Context) error {
		report, err := pipeline.IndexDocument(ctx, data.DocID, text)
		if err != nil {
			return err
		}

		if len(report.FailedChunks) > 0 {
			logger.Warn("[Queue] Document indexed with failed chunks",
				"doc_id", data.DocID,
				"failed_chunks", len(report.FailedChunks),
				"total_chunks", report.Chunks)
		}
		for _, failure := range report.Merge.Failures {
			logger.Warn("[Queue] Store failure during merge", "doc_id", data.DocID, "record", failure.Record, "err", failure.Err)
		}

		return nil
	})
}
