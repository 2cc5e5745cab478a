package reservation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"devicelab/internal/middleware"
	"devicelab/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the lifecycle endpoints. The group must already
// carry the auth middleware; approverOnly guards the review surface.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, approverOnly gin.HandlerFunc) {
	rg.POST("/reservations", h.create)
	rg.GET("/reservations/my", h.listMine)
	rg.GET("/reservations/:id", h.get)
	rg.POST("/reservations/:id/cancel", h.cancel)
	rg.POST("/reservations/:id/complete", h.complete)
	rg.POST("/reservations/:id/extend", h.extend)
	rg.GET("/devices/:id/reservations", h.listByDevice)
	rg.GET("/devices/:id/upcoming", h.upcoming)

	admin := rg.Group("/", approverOnly)
	admin.GET("/reservations", h.listAll)
	admin.POST("/reservations/:id/review", h.review)
	admin.POST("/reservations/batch-review", h.batchReview)
}

func (h *Handler) create(c *gin.Context) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "no session")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	r, err := h.svc.Create(c.Request.Context(), sess, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, r)
}

func (h *Handler) get(c *gin.Context) {
	sess, _ := middleware.SessionFrom(c)
	id, err := paramID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "invalid reservation id")
		return
	}

	r, err := h.svc.Get(c.Request.Context(), sess, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) listMine(c *gin.Context) {
	sess, _ := middleware.SessionFrom(c)
	rs, err := h.svc.ListMine(c.Request.Context(), sess)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rs)
}

func (h *Handler) listByDevice(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "invalid device id")
		return
	}
	rs, err := h.svc.ListByDevice(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rs)
}

func (h *Handler) upcoming(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "invalid device id")
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	windows, err := h.svc.UpcomingForDevice(c.Request.Context(), id, days)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, windows)
}

func (h *Handler) listAll(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	rs, err := h.svc.ListAll(c.Request.Context(), page, pageSize)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rs)
}

func (h *Handler) review(c *gin.Context) {
	sess, _ := middleware.SessionFrom(c)
	id, err := paramID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "invalid reservation id")
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	r, err := h.svc.Review(c.Request.Context(), sess, id, *req.Approve, req.Note)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) batchReview(c *gin.Context) {
	sess, _ := middleware.SessionFrom(c)

	var req BatchReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	if err := h.svc.BatchReview(c.Request.Context(), sess, req.IDs, *req.Approve, req.Note); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reviewed": len(req.IDs)})
}

func (h *Handler) cancel(c *gin.Context) {
	sess, _ := middleware.SessionFrom(c)
	id, err := paramID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "invalid reservation id")
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	r, err := h.svc.Cancel(c.Request.Context(), sess, id, req.Note)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) complete(c *gin.Context) {
	sess, _ := middleware.SessionFrom(c)
	id, err := paramID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "invalid reservation id")
		return
	}

	r, err := h.svc.Complete(c.Request.Context(), sess, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) extend(c *gin.Context) {
	sess, _ := middleware.SessionFrom(c)
	id, err := paramID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "invalid reservation id")
		return
	}

	var req ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	r, err := h.svc.Extend(c.Request.Context(), sess, id, req.NewEndTime, req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func paramID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
