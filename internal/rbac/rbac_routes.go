package rbac

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, handler *Handler, auth gin.HandlerFunc) {
	group := r.Group("/rbac")
	{
		group.POST("/enforce", handler.Enforce)
		group.GET("/permissions", auth, handler.Permissions)
	}
}
