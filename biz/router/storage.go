package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/yi-nology/survey_vault/biz/handler"
	"github.com/yi-nology/survey_vault/biz/middleware"
)

// RegisterStorageRoutes configures HTTP routes for the storage APIs.
// containers are the physical container names whose blobs this process
// serves; pass none when the backend serves blobs itself (S3).
func RegisterStorageRoutes(r *server.Hertz, h *handler.StorageHandler, containers []string) {
	if h == nil {
		return
	}

	v1 := r.Group("/api/v1")
	v1.GET("/version", handler.GetVersion)

	storage := v1.Group("/storage")
	storage.POST("/authorize", h.AuthorizeDocument)
	storage.POST("/authorize-text", h.AuthorizeText)
	storage.POST("/tokens", h.IssueTokens)
	storage.GET("/containers/:container/token", h.ContainerToken)
	storage.POST("/upload", middleware.RequireAuth(), h.UploadFile)
	storage.DELETE("/files/*blob", middleware.RequireAuth(), h.DeleteFile)
	storage.GET("/grants", middleware.RequireAuth(), h.ListGrants)

	for _, container := range containers {
		r.GET("/"+container+"/*blob", h.ServeBlob(container))
	}

	r.GET("/ping", handler.Ping)
}
