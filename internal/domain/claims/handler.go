package claims

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthshield/backoffice/internal/platform/apperr"
	"github.com/healthshield/backoffice/internal/platform/blobstore"
	"github.com/healthshield/backoffice/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts claim routes on a /users/:id group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/claims", h.SubmitClaim)
	g.GET("/claims", h.ListClaims)
}

func (h *Handler) SubmitClaim(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	bill, err := blobstore.ReadFormFile(c, "bill_file")
	switch {
	case errors.Is(err, blobstore.ErrMissingFile):
		return echo.NewHTTPError(http.StatusBadRequest, "missing required inputs: bill_file")
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	claim, err := h.svc.Adjudicate(c.Request().Context(), Submission{
		UserID:          userID,
		TreatmentReason: c.FormValue("reason_for_treatment"),
		Bill:            bill,
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Claim processed successfully",
		"claim":   claim.View(),
	})
}

func (h *Handler) ListClaims(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListClaims(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	views := make([]ClaimView, 0, len(items))
	for _, it := range items {
		views = append(views, it.View())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset).
		WithLinks(c.Request().URL.Path, c.QueryParams()))
}
