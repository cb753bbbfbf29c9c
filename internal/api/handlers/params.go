package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"greendrake/estate/internal/utils"
)

// pathID parses the :id path parameter, answering 400 when it is malformed.
func pathID(c *gin.Context, what string) (utils.SixID, bool) {
	id, err := utils.ParseSixID(c.Param("id"))
	if err != nil || id.IsZero() {
		c.JSON(http.StatusBadRequest, ErrorBody{Error: "Invalid " + what + " ID format"})
		return utils.SixID{}, false
	}
	return id, true
}

// splitQuery parses a comma separated query parameter.
func splitQuery(c *gin.Context, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorBody{Error: "Invalid JSON request body"})
		return false
	}
	return true
}
