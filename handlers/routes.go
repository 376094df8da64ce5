package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the dashboard and API routes
func RegisterRoutes(r gin.IRouter) {
	ui := r.Group("/", SessionMiddleware)
	{
		ui.GET("/", Index)
		ui.GET("/ws", CardsWS)

		ui.GET("/ui/cards", Cards)
		ui.POST("/ui/nav/:status", Navigate)
		ui.POST("/ui/reload", Reload)
		ui.GET("/ui/errors/:id", ShowDetail)
		ui.POST("/ui/errors/:id/resolve", ResolveError)
		ui.POST("/ui/detail/close", CloseDetail)
		ui.POST("/ui/sync", Sync)

		ui.GET("/api/stats", GetStats)
		ui.POST("/api/report", ReportError)
	}

	r.POST("/ui/session/close", CloseSession)

	api := r.Group("/api")
	{
		api.GET("/health", HealthCheck)
		api.GET("/diagnostics", ListDiagnostics)
		api.GET("/diagnostics/:id", GetDiagnostic)
		api.DELETE("/diagnostics", ClearDiagnostics)
	}
}
