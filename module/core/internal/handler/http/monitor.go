package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"

	"github.com/nandanugg/spotwatch/module/core/domain"
)

type monitorService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	Reload(ctx context.Context) error
	Status() *domain.MonitorStatus
	HandleLocationSample(ctx context.Context, sample domain.LocationSample)
	HandleRegionEnter(ctx context.Context, id string)
	HandleRegionExit(ctx context.Context, id string)
}

type sampleRequest struct {
	Latitude           *float64 `json:"latitude" binding:"required"`
	Longitude          *float64 `json:"longitude" binding:"required"`
	HorizontalAccuracy float64  `json:"horizontal_accuracy"`
	Timestamp          int64    `json:"timestamp"`
}

type MonitorHandler struct {
	monitorSvc monitorService
}

func NewMonitorHandler(monitorSvc monitorService) *MonitorHandler {
	return &MonitorHandler{monitorSvc: monitorSvc}
}

func (h *MonitorHandler) Register(r *gin.RouterGroup) {
	g := r.Group("/monitor")
	g.GET("/status", h.GetStatus)
	g.POST("/start", h.Start)
	g.POST("/stop", h.Stop)
	g.POST("/reload", h.Reload)
	g.POST("/samples", h.PostSample)
	g.POST("/regions/:region_id/enter", h.RegionEnter)
	g.POST("/regions/:region_id/exit", h.RegionExit)
}

func (h *MonitorHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitorSvc.Status())
}

func (h *MonitorHandler) Start(c *gin.Context) {
	if err := h.monitorSvc.Start(c.Request.Context()); err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.monitorSvc.Status())
}

func (h *MonitorHandler) Stop(c *gin.Context) {
	h.monitorSvc.Stop(c.Request.Context())
	c.JSON(http.StatusOK, h.monitorSvc.Status())
}

func (h *MonitorHandler) Reload(c *gin.Context) {
	if err := h.monitorSvc.Reload(c.Request.Context()); err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.monitorSvc.Status())
}

func (h *MonitorHandler) PostSample(c *gin.Context) {
	var req sampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sample"})
		return
	}

	pos := domain.Coordinate{Lat: *req.Latitude, Lon: *req.Longitude}
	if err := pos.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ts := time.Now()
	if req.Timestamp > 0 {
		ts = time.Unix(req.Timestamp, 0)
	}
	h.monitorSvc.HandleLocationSample(c.Request.Context(), domain.LocationSample{
		Position:           pos,
		HorizontalAccuracy: req.HorizontalAccuracy,
		Timestamp:          ts,
	})
	c.Status(http.StatusAccepted)
}

func (h *MonitorHandler) RegionEnter(c *gin.Context) {
	h.monitorSvc.HandleRegionEnter(c.Request.Context(), c.Param("region_id"))
	c.Status(http.StatusAccepted)
}

func (h *MonitorHandler) RegionExit(c *gin.Context) {
	h.monitorSvc.HandleRegionExit(c.Request.Context(), c.Param("region_id"))
	c.Status(http.StatusAccepted)
}

func writeCatalogError(c *gin.Context, err error) {
	if eris.Is(err, domain.ErrEmptyCatalog) || eris.Is(err, domain.ErrInvalidPoint) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load catalog"})
}
