package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/sample"
)

// RunWorkflow processes a claim with the whole team.
// POST /api/v1/workflow/run
func (h *Handler) RunWorkflow(c echo.Context) error {
	claim, err := decodeClaim(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	res, err := h.service.ProcessClaim(c.Request().Context(), claim)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// SampleClaims lists the demo claims.
// GET /api/v1/workflow/sample-claims
func (h *Handler) SampleClaims(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"available_claims": h.service.SampleClaims(),
		"usage":            sample.Usage,
	})
}
