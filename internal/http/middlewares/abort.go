package middlewares

import "github.com/gin-gonic/gin"

// abortWithError writes the same error envelope the handlers use, so clients
// see one shape whether a request fails in a middleware or a handler.
func abortWithError(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)
	id, _ := reqID.(string)

	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": id,
		},
	})
}
