// Package api provides the HTTP endpoints for service info, health, and
// session reports.
package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/voxhire/interviewd/domain"
	"github.com/voxhire/interviewd/hub"
	"github.com/voxhire/interviewd/report"
	"github.com/voxhire/interviewd/store"
)

// Handler serves the REST side of the interview service. Reports are
// looked up in the live registry first, then in the store, so they stay
// available after the process has let go of a session.
type Handler struct {
	hub   *hub.Hub
	store store.Store // nil disables persisted lookups
}

// NewHandler creates a new API handler.
func NewHandler(h *hub.Hub, st store.Store) *Handler {
	return &Handler{hub: h, store: st}
}

// Register registers the API routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/", h.handleRoot)
	e.GET("/health", h.handleHealth)
	e.POST("/api/sessions", h.handleCreateSessionID)
	e.GET("/api/sessions", h.handleListSessions)
	e.GET("/api/reports/:session_id/pdf", h.handleReportPDF)
	e.GET("/api/reports/:session_id/dashboard", h.handleReportDashboard)
}

func (h *Handler) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service": "interviewd",
		"version": "1.0.0",
		"status":  "running",
	})
}

func (h *Handler) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"sessions":    h.hub.SessionCount(),
		"connections": h.hub.ConnectionCount(),
	})
}

// handleCreateSessionID mints a session id for the client to open its
// WebSocket connection with. The session itself is created on
// START_INTERVIEW.
func (h *Handler) handleCreateSessionID(c echo.Context) error {
	sessionID := uuid.New().String()
	return c.JSON(http.StatusCreated, map[string]string{
		"session_id":    sessionID,
		"websocket_url": "/ws/interview/" + sessionID,
	})
}

func (h *Handler) handleListSessions(c echo.Context) error {
	if h.store == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"sessions": []domain.Session{}})
	}
	sessions, err := h.store.ListSessions(c.Request().Context(), 50)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list sessions")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (h *Handler) handleReportPDF(c echo.Context) error {
	session, err := h.lookupSession(c)
	if err != nil {
		return err
	}

	pdf, err := report.GeneratePDF(session)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate report")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="interview_report_`+session.SessionID+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) handleReportDashboard(c echo.Context) error {
	session, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report.BuildDashboard(session))
}

// lookupSession resolves a session from the registry or the store.
func (h *Handler) lookupSession(c echo.Context) (*domain.Session, error) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}

	if session, ok := h.hub.GetSession(sessionID); ok {
		return session, nil
	}

	if h.store != nil {
		session, err := h.store.GetSession(c.Request().Context(), sessionID)
		if err == nil {
			return session, nil
		}
		var notFound *domain.SessionNotFoundError
		if !errors.As(err, &notFound) {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load session")
		}
	}

	return nil, echo.NewHTTPError(http.StatusNotFound, "session not found: "+sessionID)
}
