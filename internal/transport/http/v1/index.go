package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// IndexStatus reports the knowledge index state.
// GET /api/v1/index/status
func (h *Handler) IndexStatus(c echo.Context) error {
	st, err := h.service.IndexStatus(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// RebuildIndex rebuilds the knowledge index.
// POST /api/v1/index/rebuild?force=true&include_uploaded=true
func (h *Handler) RebuildIndex(c echo.Context) error {
	force, _ := strconv.ParseBool(c.QueryParam("force"))
	includeUploaded, _ := strconv.ParseBool(c.QueryParam("include_uploaded"))

	res, err := h.service.RebuildIndex(c.Request().Context(), force, includeUploaded)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ResetIndex rebuilds the index from the canonical policies only.
// POST /api/v1/index/reset
func (h *Handler) ResetIndex(c echo.Context) error {
	res, err := h.service.ResetIndex(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
