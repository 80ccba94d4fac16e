package department

import (
	"go-dispensa/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	h *Handler,
	rbacService middleware.RBACService,
	auth gin.HandlerFunc,
) {
	units := r.Group("/units")

	units.Use(auth)

	{
		units.GET("/sectors", middleware.RBACAuthorize(rbacService, "unit", "read"), h.ListSectors)
	}
}
