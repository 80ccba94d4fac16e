package dispensa

import (
	"go-dispensa/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type RouteOptions struct {
	// Redis enables Idempotency-Key handling on submission.
	Redis         *redis.Client
	DecisionRate  rate.Limit
	DecisionBurst int
}

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService middleware.RBACService,
	auth gin.HandlerFunc,
	opts RouteOptions,
) {
	createChain := []gin.HandlerFunc{middleware.RBACAuthorize(rbacService, "dispensa", "create")}
	if opts.Redis != nil {
		createChain = append(createChain, middleware.Idempotency(opts.Redis))
	}
	createChain = append(createChain, handler.Create)

	decide := middleware.RBACAuthorize(rbacService, "dispensa", "decide")
	limit := func(c *gin.Context) { c.Next() }
	if opts.DecisionRate > 0 {
		limit = middleware.RateLimitByUser(opts.DecisionRate, opts.DecisionBurst)
	}

	dispensas := r.Group("/dispensas")
	dispensas.Use(auth)
	{
		dispensas.GET("", middleware.RBACAuthorize(rbacService, "dispensa", "read"), handler.GetAll)
		dispensas.GET("/stats", middleware.RBACAuthorize(rbacService, "dispensa", "read"), handler.Stats)
		dispensas.GET("/:id", middleware.RBACAuthorize(rbacService, "dispensa", "read"), handler.GetByID)
		dispensas.POST("", createChain...)
		dispensas.POST("/:id/approve", decide, limit, handler.Approve)
		dispensas.POST("/:id/reject", decide, limit, handler.Reject)
		dispensas.GET("/:id/document", middleware.RBACAuthorize(rbacService, "dispensa", "read"), handler.Document)
		dispensas.GET("/:id/document.pdf", middleware.RBACAuthorize(rbacService, "dispensa", "document"), handler.DocumentPDF)
	}
}
