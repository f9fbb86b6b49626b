package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler serves the file metadata API. The blob store client is
// constructed once at startup and injected.
type Handler struct {
	db   *sql.DB
	blob BlobStore
}

func NewHandler(db *sql.DB, blob BlobStore) *Handler {
	return &Handler{
		db:   db,
		blob: blob,
	}
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}

func (h *Handler) HealthCheck(c echo.Context) error {
	dbStatus := "connected"
	if err := h.db.Ping(); err != nil {
		dbStatus = "disconnected"
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Database:  dbStatus,
	})
}
