package api

import "github.com/gin-gonic/gin"

// failure is the one JSON shape every failing endpoint returns.
func failure(message string) gin.H {
	return gin.H{"success": false, "message": message}
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, failure(message))
}
