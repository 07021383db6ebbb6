package underwriting

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthshield/backoffice/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts plan routes on a /users/:id group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/plan", h.GeneratePlan)
	g.GET("/plan", h.GetPlan)
	g.GET("/plan.pdf", h.GetPlanDocument)
}

func (h *Handler) GeneratePlan(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	plan, created, err := h.svc.Generate(c.Request().Context(), userID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, map[string]interface{}{
		"message":           "Insurance plan generated successfully",
		"insurance_details": plan.View(),
	})
}

func (h *Handler) GetPlan(c echo.Context) error {
	plan, err := h.currentPlan(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan.View())
}

func (h *Handler) GetPlanDocument(c echo.Context) error {
	plan, err := h.currentPlan(c)
	if err != nil {
		return err
	}
	doc, err := RenderPDF(plan)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not render plan document").SetInternal(err)
	}
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="plan-%s.pdf"`, plan.ID))
	return c.Blob(http.StatusOK, "application/pdf", doc)
}

func (h *Handler) currentPlan(c echo.Context) (*Plan, error) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	plan, err := h.svc.Current(c.Request().Context(), userID)
	if err != nil {
		return nil, apperr.ToHTTP(err)
	}
	if plan == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "no insurance plan found for this user")
	}
	return plan, nil
}
