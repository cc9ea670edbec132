package rag

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/petlens/core/internal/middleware"
	"github.com/petlens/core/internal/pkg/response"
	"go.uber.org/zap"
)

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.Use(middleware.ForwardedIdentity())

	api.POST("/rag/query", h.Query)
	api.POST("/rag/ingest", h.Ingest)
	api.GET("/rag/status", h.Status)

	admin := api.Group("/admin/rag")
	admin.Use(localOnly())
	admin.POST("/initialize", h.Initialize)
}

type queryDTO struct {
	Question string  `json:"question" binding:"required"`
	TopK     int     `json:"top_k"`
	MinScore float64 `json:"min_score"`
	Breed    string  `json:"breed"`
}

func (h *Handler) Query(c *gin.Context) {
	var dto queryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, "question is required")
		return
	}
	results, err := h.svc.Query(c.Request.Context(), dto.Question, dto.TopK, dto.MinScore, dto.Breed)
	if err != nil {
		h.log.Error("rag query failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"results": results, "total": len(results)})
}

type ingestDTO struct {
	Documents []Document `json:"documents" binding:"required"`
}

func (h *Handler) Ingest(c *gin.Context) {
	var dto ingestDTO
	if err := c.ShouldBindJSON(&dto); err != nil || len(dto.Documents) == 0 {
		response.ValidationError(c, "documents are required")
		return
	}
	n, err := h.svc.Ingest(c.Request.Context(), dto.Documents)
	if err != nil {
		h.log.Error("rag ingest failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.Created(c, gin.H{"chunks_indexed": n})
}

func (h *Handler) Status(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context())
	if err != nil {
		h.log.Error("rag status failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, status)
}

func (h *Handler) Initialize(c *gin.Context) {
	n, err := h.svc.Initialize(c.Request.Context())
	if err != nil {
		h.log.Error("rag initialize failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"chunks_indexed": n})
}

// localOnly restricts an endpoint to loopback and private remote addresses.
func localOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip == nil || !(ip.IsLoopback() || ip.IsPrivate()) {
			response.Fail(c, http.StatusForbidden, response.CodeForbidden,
				"endpoint restricted to local access")
			return
		}
		c.Next()
	}
}
