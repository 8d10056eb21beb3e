package middleware

import "github.com/gin-gonic/gin"

// NoCache 提案页与静态资源会被重新生成，禁止浏览器缓存
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache")
		c.Next()
	}
}
