// Package http provides the HTTP server implementation for the chat relay.
package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/chatrelay/internal/domain"
	"github.com/xiaot623/chatrelay/internal/service"
	"github.com/xiaot623/chatrelay/internal/transport/http/chat"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// NewServer creates and configures the public HTTP server.
func NewServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler(e)

	// Middleware
	e.Pre(corsHeaders)
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if limit := svc.Config().MaxBodyBytes; limit != "" {
		e.Use(middleware.BodyLimit(limit))
	}

	// Handlers
	chatHandler := chat.NewHandler(svc)

	// Register Routes
	chatHandler.RegisterRoutes(e)
	e.GET("/health", health)

	return e
}

// corsHeaders adds permissive cross-origin headers to every response,
// including router-generated 404 and 405 answers.
func corsHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Response().Header()
		header.Set(echo.HeaderAccessControlAllowOrigin, "*")
		header.Set(echo.HeaderAccessControlAllowHeaders, echo.HeaderContentType)
		header.Set(echo.HeaderAccessControlAllowMethods, "POST, OPTIONS")
		return next(c)
	}
}

// errorHandler answers oversized bodies as invalid input (400) and leaves
// every other error to echo's default handler.
func errorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			if c.Response().Committed {
				return
			}
			if jsonErr := c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "request body too large"}); jsonErr != nil {
				c.Logger().Error(jsonErr)
			}
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}

// health returns health status.
func health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}
