package router

import (
	"rfp-bot/internal/interfaces/http/handler"
	"rfp-bot/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterSiteRoutes 注册仪表盘、提案页面与静态资源
func RegisterSiteRoutes(site *gin.RouterGroup, dashboardHandler *handler.DashboardHandler, staticDir string) {
	site.GET("/", dashboardHandler.Index)
	site.GET("/proposal", dashboardHandler.Latest)
	site.GET("/proposal/:id", dashboardHandler.View)

	static := site.Group("/static", middleware.NoCache())
	static.Static("/", staticDir)
}

// RegisterV1Routes 注册 v1 版本 JSON 接口
func RegisterV1Routes(v1 *gin.RouterGroup, proposalHandler *handler.ProposalHandler) {
	proposals := v1.Group("/proposals")
	{
		proposals.GET("", proposalHandler.ListProposals)
		proposals.GET("/:id", proposalHandler.GetProposal)
	}
}
