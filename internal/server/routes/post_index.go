package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/trellis-ai/trellis/backend/internal/queue"
	"github.com/trellis-ai/trellis/backend/internal/server/middleware"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
)

// PostIndexHandler enqueues a document for ingestion. The worker picks the
// job up from the index queue; indexing never runs inside a request.
func PostIndexHandler(c echo.Context) error {
	type indexBody struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Text  string `json:"text"`
		S3Key string `json:"s3_key"`
	}

	data := new(indexBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if data.Text == "" && data.S3Key == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Provide 'text' or 's3_key'"})
	}

	documentID, err := gonanoid.New()
	if err != nil {
		logger.Error("failed to generate document id", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	job := queue.IndexJob{
		DocumentID: documentID,
		Title:      data.Title,
		URL:        data.URL,
		Text:       data.Text,
		S3Key:      data.S3Key,
	}
	payload, err := json.Marshal(job)
	if err != nil {
		logger.Error("failed to encode index job", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	app := c.(*middleware.AppContext).App
	if err := queue.PublishFIFO(app.Queue, queue.IndexQueue, payload); err != nil {
		logger.Error("failed to enqueue index job", "document_id", documentID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"message":     "Document queued for indexing",
		"document_id": documentID,
	})
}
