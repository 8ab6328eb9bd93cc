// Package v1 provides the HTTP handlers of the claims API.
package v1

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/service"
)

// StreamPath is the websocket route for streamed runs.
const StreamPath = "/api/v1/workflow/stream"

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler. allowOrigin decides which browser origins
// may open the workflow stream; requests without an Origin header are not
// browsers and are always accepted. A nil allowOrigin only accepts origins
// whose host matches the request host.
func NewHandler(service *service.Service, allowOrigin func(origin string) bool) *Handler {
	return &Handler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowOrigin),
		},
	}
}

func checkOrigin(allowOrigin func(string) bool) func(*http.Request) bool {
	if allowOrigin == nil {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowOrigin(origin)
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)

	api := e.Group("/api/v1")

	// Workflow API
	api.POST("/workflow/run", h.RunWorkflow)
	api.GET("/workflow/sample-claims", h.SampleClaims)
	e.GET(StreamPath, h.StreamWorkflow)

	// Single worker API
	api.POST("/agent/:agent_name/run", h.RunAgent)
	api.GET("/agents", h.ListAgents)

	// Run history
	api.GET("/runs", h.ListRuns)
	api.GET("/runs/:run_id", h.GetRun)
	api.GET("/runs/:run_id/events", h.GetRunEvents)

	// Files and documents
	api.POST("/files/upload", h.UploadFiles)
	api.POST("/documents/upload", h.UploadDocument)
	api.GET("/documents", h.ListDocuments)
	api.GET("/documents/:document_id", h.GetDocument)
	api.GET("/documents/:document_id/download", h.DownloadDocument)
	api.DELETE("/documents/:document_id", h.DeleteDocument)
	api.POST("/documents/:document_id/index", h.IndexDocument)

	// Knowledge index
	api.GET("/index/status", h.IndexStatus)
	api.POST("/index/rebuild", h.RebuildIndex)
	api.POST("/index/reset", h.ResetIndex)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// Root greets API clients.
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Insurance Claims Processing API",
		"docs":    "/api/v1/workflow/sample-claims",
	})
}

// writeError maps service errors onto HTTP status codes.
func writeError(c echo.Context, err error) error {
	var (
		unknownWorker *domain.UnknownWorkerError
		unknownClaim  *domain.UnknownClaimError
		invalid       *domain.ValidationError
		failure       *domain.RunFailure
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &unknownWorker), errors.As(err, &unknownClaim), errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &invalid):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrKnowledgeSourceUnavailable):
		status = http.StatusServiceUnavailable
	}

	body := map[string]string{"error": err.Error()}
	if errors.As(err, &failure) {
		body["run_id"] = failure.RunID
		log.Error().Err(err).Str("run_id", failure.RunID).Str("claim_id", failure.ClaimID).Msg("request failed")
	} else if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.JSON(status, body)
}

// decodeClaim reads the request body as a claim object.
func decodeClaim(c echo.Context) (domain.Claim, error) {
	var claim domain.Claim
	if err := json.NewDecoder(c.Request().Body).Decode(&claim); err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, errors.New("claim must be a JSON object")
	}
	return claim, nil
}
