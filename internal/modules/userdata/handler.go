package userdata

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/petlens/core/internal/middleware"
	"github.com/petlens/core/internal/pkg/response"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the user data surface. Everything requires the
// identity headers the gateway injects.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.Use(middleware.ForwardedIdentity(), middleware.RequireIdentity())

	api.GET("/users/me", h.GetProfile)
	api.PUT("/users/me", h.PutProfile)
	api.DELETE("/users/delete", h.DeleteAll)

	api.POST("/pets", h.CreatePet)
	api.GET("/pets", h.ListPets)
	api.GET("/pets/:id", h.GetPet)
	api.PUT("/pets/:id", h.UpdatePet)
	api.DELETE("/pets/:id", h.DeletePet)

	api.POST("/analyses", h.CreateAnalysis)
	api.GET("/analyses", h.ListAnalyses)
	api.GET("/analyses/:id", h.GetAnalysis)
}

func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.svc.GetProfile(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"profile": profile})
}

func (h *Handler) PutProfile(c *gin.Context) {
	var dto ProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, "invalid profile payload")
		return
	}
	profile, err := h.svc.PutProfile(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"profile": profile})
}

func (h *Handler) CreatePet(c *gin.Context) {
	var dto PetCreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, "name and species are required")
		return
	}
	pet, err := h.svc.CreatePet(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"pet": pet})
}

func (h *Handler) ListPets(c *gin.Context) {
	pets, err := h.svc.ListPets(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"pets": pets, "total": len(pets)})
}

func (h *Handler) GetPet(c *gin.Context) {
	pet, err := h.svc.GetPet(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"pet": pet})
}

func (h *Handler) UpdatePet(c *gin.Context) {
	var dto PetUpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, "invalid pet payload")
		return
	}
	pet, err := h.svc.UpdatePet(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), &dto)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"pet": pet})
}

func (h *Handler) DeletePet(c *gin.Context) {
	if err := h.svc.DeletePet(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) CreateAnalysis(c *gin.Context) {
	var dto AnalysisCreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, "detected_breed is required")
		return
	}
	a, err := h.svc.CreateAnalysis(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"analysis": a})
}

func (h *Handler) ListAnalyses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}

	rows, total, err := h.svc.ListAnalyses(c.Request.Context(),
		middleware.CurrentUserID(c), size, (page-1)*size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{
		"analyses":  rows,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}

func (h *Handler) GetAnalysis(c *gin.Context) {
	a, err := h.svc.GetAnalysis(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"analysis": a})
}

func (h *Handler) DeleteAll(c *gin.Context) {
	summary, err := h.svc.DeleteAll(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": summary})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		response.ValidationError(c, err.Error())
	case errors.Is(err, ErrPetNotFound):
		response.Fail(c, 404, response.CodePetNotFound, "pet not found")
	case errors.Is(err, ErrAnalysisNotFound):
		response.NotFound(c, "analysis not found")
	default:
		h.log.Error("user data handler failure", zap.Error(err))
		response.InternalError(c)
	}
}
