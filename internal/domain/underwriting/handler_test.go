package underwriting

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *stubSnapshots, *mockPlanRepo, *echo.Echo) {
	t.Helper()
	snaps := &stubSnapshots{}
	repo := newMockPlanRepo()
	return NewHandler(newTestService(t, snaps, repo)), snaps, repo, echo.New()
}

func userContext(e *echo.Echo, method, id string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func TestHandler_GeneratePlan(t *testing.T) {
	h, snaps, _, e := newTestHandler(t)
	id := seededSnapshot(snaps, baselineSnapshot())

	c, rec := userContext(e, http.MethodPost, id.String())
	require.NoError(t, h.GeneratePlan(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Message string   `json:"message"`
		Plan    PlanView `json:"insurance_details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Insurance plan generated successfully", body.Message)
	assert.Equal(t, Silver, body.Plan.Tier)
	assert.Equal(t, "2025-03-14", body.Plan.EffectiveDate)
	assert.Equal(t, "2026-03-14", body.Plan.ExpirationDate)
	assert.Equal(t, 1, body.Plan.WaitingPeriods[WaitingGeneral])
	assert.Len(t, body.Plan.Copayments, 4)

	// Regeneration answers 200 with the same plan id.
	c, rec = userContext(e, http.MethodPost, id.String())
	require.NoError(t, h.GeneratePlan(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var again struct {
		Plan PlanView `json:"insurance_details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, body.Plan.PlanID, again.Plan.PlanID)
}

func TestHandler_GeneratePlan_Incomplete(t *testing.T) {
	h, _, repo, e := newTestHandler(t)

	c, _ := userContext(e, http.MethodPost, uuid.New().String())
	err := h.GeneratePlan(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Empty(t, repo.plans)
}

func TestHandler_InvalidUserID(t *testing.T) {
	h, _, _, e := newTestHandler(t)

	for _, fn := range []echo.HandlerFunc{h.GeneratePlan, h.GetPlan, h.GetPlanDocument} {
		c, _ := userContext(e, http.MethodGet, "not-a-uuid")
		var he *echo.HTTPError
		require.ErrorAs(t, fn(c), &he)
		assert.Equal(t, http.StatusBadRequest, he.Code)
	}
}

func TestHandler_GetPlan(t *testing.T) {
	h, snaps, _, e := newTestHandler(t)
	id := seededSnapshot(snaps, baselineSnapshot())

	c, _ := userContext(e, http.MethodGet, id.String())
	var he *echo.HTTPError
	require.ErrorAs(t, h.GetPlan(c), &he)
	assert.Equal(t, http.StatusNotFound, he.Code)

	c, _ = userContext(e, http.MethodPost, id.String())
	require.NoError(t, h.GeneratePlan(c))

	c, rec := userContext(e, http.MethodGet, id.String())
	require.NoError(t, h.GetPlan(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var view PlanView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.NotEqual(t, uuid.Nil, view.PlanID)
	assert.NotEmpty(t, view.CoverageDetails)
}

func TestHandler_GetPlanDocument(t *testing.T) {
	h, snaps, _, e := newTestHandler(t)
	id := seededSnapshot(snaps, withRisks(baselineSnapshot(), high(ConditionDiabetes)))

	c, _ := userContext(e, http.MethodPost, id.String())
	require.NoError(t, h.GeneratePlan(c))

	c, rec := userContext(e, http.MethodGet, id.String())
	require.NoError(t, h.GetPlanDocument(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "plan-")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, _, _, e := newTestHandler(t)
	h.RegisterRoutes(e.Group("/users/:id"))

	routes := map[string]bool{}
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	assert.True(t, routes["POST /users/:id/plan"])
	assert.True(t, routes["GET /users/:id/plan"])
	assert.True(t, routes["GET /users/:id/plan.pdf"])
}
