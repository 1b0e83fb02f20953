package server

import (
	"github.com/textgraph-ai/textgraph/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Document routes
	apiRoutes.POST("/documents", routes.CreateDocumentHandler)

	// Query routes
	apiRoutes.POST("/query", routes.QueryHandler)
}
