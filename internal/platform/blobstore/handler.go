package blobstore

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/healthshield/backoffice/pkg/pagination"
)

// DocumentView is a listed document with a link the caller can fetch it from.
type DocumentView struct {
	*Metadata
	DownloadURL string `json:"download_url"`
}

// Handler serves a user's archived documents.
type Handler struct {
	store      Store
	presignTTL time.Duration
}

func NewHandler(store Store, presignTTL time.Duration) *Handler {
	return &Handler{store: store, presignTTL: presignTTL}
}

// RegisterRoutes mounts document routes on a /users/:id group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/documents", h.List)
	g.GET("/documents/:kind/:name", h.Download)
}

func (h *Handler) List(c echo.Context) error {
	userID := c.Param("id")
	kind := c.QueryParam("kind")
	if kind != "" && !knownKind(kind) {
		return unknownKind(kind)
	}
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	items, total, err := h.store.List(ctx, userID, kind, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "document store unavailable").SetInternal(err)
	}

	views := make([]DocumentView, 0, len(items))
	for _, m := range items {
		url, err := h.store.DownloadURL(ctx, m.Key, h.presignTTL)
		if err != nil {
			url = fmt.Sprintf("/api/v1/users/%s/documents/%s/%s", userID, m.Kind, path.Base(m.Key))
		}
		views = append(views, DocumentView{Metadata: m, DownloadURL: url})
	}

	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset).
		WithLinks(c.Request().URL.Path, c.QueryParams()))
}

func (h *Handler) Download(c echo.Context) error {
	kind := c.Param("kind")
	if !knownKind(kind) {
		return unknownKind(kind)
	}
	key := UserPrefix(c.Param("id"), kind) + c.Param("name")

	rc, meta, err := h.store.Get(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "document store unavailable").SetInternal(err)
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, sanitizeFileName(meta.FileName)))
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

func knownKind(kind string) bool {
	return kind == KindBill || kind == KindLabReport
}

func unknownKind(kind string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown document kind %q", kind))
}
