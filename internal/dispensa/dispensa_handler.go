package dispensa

import (
	"net/http"
	"strconv"

	"go-dispensa/internal/shared/apperror"
	"go-dispensa/internal/shared/contextutil"
	"go-dispensa/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("dispensa.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("dispensa.handler")
	}
	return &Handler{service: service, logger: l}
}

// getCaller prefers the caller placed in the request context by the auth
// middleware and falls back to the raw gin keys.
func getCaller(c *gin.Context) contextutil.Caller {
	if caller, ok := contextutil.GetCaller(c.Request.Context()); ok {
		return caller
	}
	return contextutil.Caller{
		UserID:      c.GetString("user_id_validated"),
		Role:        c.GetString("role"),
		DisplayName: c.GetString("display_name"),
	}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	log := h.logger.Warn
	if httpErr.Status >= http.StatusInternalServerError {
		log = h.logger.Error
	}
	log("dispensa request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
		zap.Error(err),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) writeBindError(c *gin.Context, err error) {
	h.logger.Warn("http dispensa validation failed", zap.Error(err))
	mapped := apperror.ToHTTP(apperror.MapValidationError(err))
	response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", mapped.Message, err.Error())
}

func (h *Handler) Create(c *gin.Context) {
	caller := getCaller(c)
	h.logger.Debug("http create dispensa", zap.String("user_id", caller.UserID))

	var req CreateDispensaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	resp, err := h.service.Create(c.Request.Context(), caller, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) GetAll(c *gin.Context) {
	ctx := c.Request.Context()
	caller := getCaller(c)

	filter := ListFilter{
		Query: c.Query("q"),
		Order: c.DefaultQuery("order", OrderRecent),
	}
	switch b := DisplayStatus(c.Query("bucket")); b {
	case "", DisplayPending, DisplayApproved, DisplayRejected:
		filter.Bucket = b
	default:
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", "bucket must be pending, approved or rejected")
		return
	}
	if filter.Order != OrderRecent && filter.Order != OrderOldest {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", "order must be recent or oldest")
		return
	}

	resp, err := h.service.GetAll(ctx, caller, filter)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if pageSize < 1 {
		pageSize = 10
	}

	start, end := response.Paginate(len(resp), page, pageSize)
	meta := response.NewPaginationMeta(int64(len(resp)), page, pageSize)
	response.Success(c, http.StatusOK, resp[start:end], &meta)
}

func (h *Handler) Stats(c *gin.Context) {
	resp, err := h.service.Stats(c.Request.Context(), getCaller(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetByID(c *gin.Context) {
	resp, err := h.service.GetByID(c.Request.Context(), getCaller(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Approve(c *gin.Context) {
	resp, err := h.service.Approve(c.Request.Context(), getCaller(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Reject(c *gin.Context) {
	var req RejectDispensaRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeBindError(c, err)
			return
		}
	}

	resp, err := h.service.Reject(c.Request.Context(), getCaller(c), c.Param("id"), req.Reason)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Document(c *gin.Context) {
	resp, err := h.service.Document(c.Request.Context(), getCaller(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) DocumentPDF(c *gin.Context) {
	pdf, filename, err := h.service.DocumentPDF(c.Request.Context(), getCaller(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Attachment(c, http.StatusOK, filename, "application/pdf", pdf)
}
