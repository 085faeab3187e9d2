package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// parseLimit reads ?limit=, falling back to the default and capping at maxListLimit.
func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func wsPath(code string) string {
	return "/api/v1/rooms/" + code + "/ws"
}
