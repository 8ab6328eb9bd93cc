package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RunAgent sends a claim to one worker.
// POST /api/v1/agent/:agent_name/run
func (h *Handler) RunAgent(c echo.Context) error {
	name := c.Param("agent_name")

	claim, err := decodeClaim(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	res, err := h.service.RunAgent(c.Request().Context(), name, claim)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListAgents lists the registered workers.
// GET /api/v1/agents
func (h *Handler) ListAgents(c echo.Context) error {
	agents := h.service.ListAgents()

	agentList := make([]map[string]interface{}, len(agents))
	for i, a := range agents {
		tools := a.Tools
		if tools == nil {
			tools = []string{}
		}
		agentList[i] = map[string]interface{}{
			"name":        a.Name,
			"description": a.Description,
			"tools":       tools,
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"agents": agentList,
	})
}
