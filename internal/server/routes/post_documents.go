package routes

import (
	"encoding/json"
	"net/http"

	"github.com/textgraph-ai/textgraph/internal/queue"
	"github.com/textgraph-ai/textgraph/internal/server/middleware"
	"github.com/textgraph-ai/textgraph/internal/storage"
	"github.com/textgraph-ai/textgraph/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/labstack/echo/v4"
)

// CreateDocumentHandler accepts raw document text, stores it in S3 and
// publishes an index job for the worker. Indexing itself is asynchronous;
// the response only acknowledges the job.
func CreateDocumentHandler(c echo.Context) error {
	type createDocumentBody struct {
		DocID string `json:"doc_id"`
		Text  string `json:"text" validate:"required"`
	}

	type createDocumentResponse struct {
		Message string `json:"message"`
		DocID   string `json:"doc_id,omitempty"`
	}

	data := new(createDocumentBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createDocumentResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createDocumentResponse{
			Message: "Invalid request body",
		})
	}

	docID := data.DocID
	if docID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, createDocumentResponse{
				Message: "Internal server error",
			})
		}
		docID = id
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	fileKey, err := storage.PutDocument(ctx, app.S3, docID, data.Text)
	if err != nil {
		logger.Error("[Server] Failed to store document", "doc_id", docID, "err", err)
		return c.JSON(http.StatusInternalServerError, createDocumentResponse{
			Message: "Internal server error",
		})
	}

	job, err := json.Marshal(queue.IndexJobMsg{DocID: docID, FileKey: fileKey})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createDocumentResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(app.Queue, queue.IndexQueue, job); err != nil {
		logger.Error("[Server] Failed to publish index job", "doc_id", docID, "err", err)
		return c.JSON(http.StatusInternalServerError, createDocumentResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, createDocumentResponse{
		Message: "Document accepted for indexing",
		DocID:   docID,
	})
}
