package router

import (
	"github.com/RigelNana/docvault/handler"
	"github.com/RigelNana/docvault/middleware"
	metricsgin "github.com/RigelNana/docvault/pkg/metrics/gin"
	"github.com/gin-gonic/gin"
)

func Setup(uploads *handler.UploadHandler, documents *handler.DocumentHandler, permissions *handler.PermissionHandler, tokens *handler.TokenHandler, jwtSecret string) *gin.Engine {
	r := gin.Default()
	r.Use(metricsgin.PrometheusMiddleware("docvault"))

	// 下载走凭证授权,不过 JWT
	r.GET("/api/download/:token", tokens.Download)

	api := r.Group("/api")
	api.Use(middleware.JWTAuth(jwtSecret))
	{
		api.POST("/uploads/initiate", uploads.InitiateUpload)
		api.POST("/uploads/confirm", uploads.ConfirmUpload)

		api.GET("/documents", documents.ListDocuments)
		api.GET("/documents/:id", documents.GetDocument)
		api.GET("/documents/:id/versions", documents.ListVersions)
		api.POST("/documents/:id/publish", documents.Publish)
		api.POST("/documents/:id/unpublish", documents.Unpublish)
		api.DELETE("/documents/:id", documents.Delete)

		api.POST("/documents/:id/permissions", permissions.Grant)
		api.DELETE("/documents/:id/permissions/:granteeId", permissions.Revoke)
		api.GET("/documents/:id/permissions", permissions.ListForDocument)
		api.GET("/permissions", permissions.ListMine)

		api.POST("/documents/:id/tokens", tokens.Issue)

		admin := api.Group("/admin", middleware.RequireRole("admin"))
		admin.POST("/tokens/cleanup", tokens.Cleanup)
	}
	return r
}
