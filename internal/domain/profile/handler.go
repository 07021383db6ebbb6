package profile

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthshield/backoffice/internal/platform/apperr"
	"github.com/healthshield/backoffice/internal/platform/blobstore"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts profile routes on a /users/:id group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/snapshot", h.GetSnapshot)
	g.POST("/lab-reports", h.UploadLabReport)
}

func (h *Handler) GetSnapshot(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	snap, err := h.svc.Snapshot(c.Request().Context(), userID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *Handler) UploadLabReport(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	upload, err := blobstore.ReadFormFile(c, "file")
	switch {
	case errors.Is(err, blobstore.ErrMissingFile):
		return echo.NewHTTPError(http.StatusBadRequest, "missing file")
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	labs, err := h.svc.IngestLabReport(c.Request().Context(), userID, upload)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "lab report processed",
		"labs":    labs,
	})
}
