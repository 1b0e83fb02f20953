package routes

import (
	"net/http"

	"github.com/textgraph-ai/textgraph/internal/server/middleware"
	"github.com/textgraph-ai/textgraph/pkg/logger"
	"github.com/textgraph-ai/textgraph/pkg/store"

	"github.com/labstack/echo/v4"
)

// QueryHandler answers a question from the knowledge graph: retrieve
// matching nodes, then generate an answer grounded on them.
func QueryHandler(c echo.Context) error {
	type queryBody struct {
		Query string `json:"query" validate:"required"`
		Limit int    `json:"limit" validate:"omitempty,min=1,max=100"`
	}

	type queryResponse struct {
		Message string       `json:"message,omitempty"`
		Answer  string       `json:"answer,omitempty"`
		Records []store.Node `json:"records,omitempty"`
	}

	data := new(queryBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	records, err := app.Pipeline.Retrieve(ctx, data.Query, data.Limit)
	if err != nil {
		logger.Error("[Server] Failed to retrieve context", "err", err)
		return c.JSON(http.StatusInternalServerError, queryResponse{
			Message: "Internal server error",
		})
	}

	answer, err := app.Pipeline.Respond(ctx, data.Query, records)
	if err != nil {
		logger.Error("[Server] Failed to generate answer", "err", err)
		return c.JSON(http.StatusInternalServerError, queryResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, queryResponse{
		Answer:  answer,
		Records: records,
	})
}
