package department

import (
	"net/http"

	"go-dispensa/internal/shared/apperror"
	"go-dispensa/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("department.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("department.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) ListSectors(c *gin.Context) {
	sectors, err := h.service.ListSectors(c.Request.Context(), c.Query("q"))
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		h.logger.Error("list sectors failed", zap.Int("status", httpErr.Status), zap.Error(err))
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	response.Success(c, http.StatusOK, sectors, nil)
}
