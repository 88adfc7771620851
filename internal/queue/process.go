package queue

import (
	"context"
	"encoding/json"
	"fmt"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/trellis-ai/trellis/backend/internal/storage"
	"github.com/trellis-ai/trellis/backend/pkg/index"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
	"github.com/trellis-ai/trellis/backend/pkg/store"
)

// IndexJob is one document ingestion request. Either Text carries the
// content inline or S3Key points at an object to download.
type IndexJob struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Text       string `json:"text,omitempty"`
	S3Key      string `json:"s3_key,omitempty"`
}

// ProcessIndexMessage handles one index_queue delivery. A returned error
// sends the message through the retry/dead-letter flow.
func ProcessIndexMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	pipeline *index.Pipeline,
	msg []byte,
) error {
	job := new(IndexJob)
	if err := json.Unmarshal(msg, job); err != nil {
		return fmt.Errorf("failed to decode index job: %w", err)
	}

	text := job.Text
	if text == "" && job.S3Key != "" {
		if s3Client == nil {
			return fmt.Errorf("index job %s references s3 key %q but object storage is not configured", job.DocumentID, job.S3Key)
		}
		body, err := storage.GetFile(ctx, s3Client, job.S3Key)
		if err != nil {
			return fmt.Errorf("failed to fetch document body: %w", err)
		}
		text = string(body)
	}
	if text == "" {
		logger.Warn("index job carries no content, skipping", "document_id", job.DocumentID)
		return nil
	}

	doc := &store.Document{
		ID:      job.DocumentID,
		Title:   job.Title,
		URL:     job.URL,
		Content: text,
	}
	stats, err := pipeline.IndexDocument(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to index document %s: %w", job.DocumentID, err)
	}

	logger.Info("index job finished",
		"document_id", doc.ID,
		"chunks", stats.Chunks,
		"entities", stats.Entities,
		"relationships", stats.Relationships,
	)
	return nil
}
