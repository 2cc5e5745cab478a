package device

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"devicelab/internal/domain"
	"devicelab/internal/middleware"
	"devicelab/internal/pkg/response"
	"devicelab/internal/session"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the registry endpoints. adminOnly guards catalog
// mutations; repair transitions do their own role check in the service
// because teachers may trigger them too.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	rg.GET("/devices/:id", h.get)
	rg.GET("/devices/code/:code", h.getByCode)
	rg.GET("/devices/search", h.search)
	rg.GET("/devices/status/:status", h.listByStatus)
	rg.POST("/devices/:id/repair", h.sendForRepair)
	rg.POST("/devices/:id/repair/done", h.returnFromRepair)

	admin := rg.Group("/", adminOnly)
	admin.GET("/devices", h.list)
	admin.POST("/devices", h.add)
	admin.PUT("/devices/:id", h.update)
	admin.POST("/devices/:id/scrap", h.scrap)
	admin.POST("/devices/:id/restore", h.restore)
	admin.POST("/devices/:id/usage", h.recordUsage)
}

func (h *Handler) add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	d, err := h.svc.Add(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, d)
}

func (h *Handler) update(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "invalid device id")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	d, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

func (h *Handler) get(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "invalid device id")
		return
	}

	v, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

func (h *Handler) getByCode(c *gin.Context) {
	v, err := h.svc.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

func (h *Handler) search(c *gin.Context) {
	ds, err := h.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ds)
}

func (h *Handler) listByStatus(c *gin.Context) {
	ds, err := h.svc.ListByStatus(c.Request.Context(), domain.DeviceStatus(c.Param("status")))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ds)
}

func (h *Handler) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	ds, err := h.svc.ListPaged(c.Request.Context(), page, pageSize)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ds)
}

func (h *Handler) sendForRepair(c *gin.Context) {
	h.statusAction(c, h.svc.SendForRepair)
}

func (h *Handler) returnFromRepair(c *gin.Context) {
	h.statusAction(c, h.svc.ReturnFromRepair)
}

func (h *Handler) scrap(c *gin.Context) {
	h.statusAction(c, h.svc.Scrap)
}

func (h *Handler) restore(c *gin.Context) {
	h.statusAction(c, h.svc.Restore)
}

func (h *Handler) recordUsage(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "invalid device id")
		return
	}

	var req RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	if err := h.svc.RecordUsage(c.Request.Context(), id, req.Hours); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"recorded": true})
}

func (h *Handler) statusAction(c *gin.Context, fn func(ctx context.Context, actor session.Session, id int64) (*domain.Device, error)) {
	sess, _ := middleware.SessionFrom(c)
	id, err := paramID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "invalid device id")
		return
	}

	d, err := fn(c.Request.Context(), sess, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

func paramID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
