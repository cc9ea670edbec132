package recommend

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/petlens/core/internal/middleware"
	"github.com/petlens/core/internal/pkg/response"
	"go.uber.org/zap"
)

const maxLimit = 50

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.Use(middleware.ForwardedIdentity(), middleware.RequireIdentity())

	api.GET("/recommendations/food", h.RecommendFood)
	api.POST("/recommendations/feedback", h.Feedback)

	admin := api.Group("/admin/products")
	admin.Use(middleware.RequireAdmin())
	admin.POST("", h.CreateProduct)
	admin.GET("", h.ListProducts)
	admin.GET("/:id", h.GetProduct)
	admin.PUT("/:id", h.UpdateProduct)
	admin.DELETE("/:id", h.DeleteProduct)
}

func (h *Handler) RecommendFood(c *gin.Context) {
	petID := c.Query("pet_id")
	if petID == "" {
		response.ValidationError(c, "pet_id is required")
		return
	}

	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	minScore, err := parseMinScore(c.Query("min_score"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	ranked, pet, err := h.svc.RecommendFood(c.Request.Context(),
		middleware.CurrentUserID(c), middleware.CurrentUserRole(c), petID, limit, minScore)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.OK(c, gin.H{
		"recommendations": ranked,
		"total":           len(ranked),
		"pet": gin.H{
			"id":      pet.ID,
			"name":    pet.Name,
			"species": pet.Species,
		},
	})
}

func (h *Handler) Feedback(c *gin.Context) {
	var dto FeedbackDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, "product_id and rating are required")
		return
	}
	fb, err := h.svc.RecordFeedback(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"feedback": fb})
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var dto ProductCreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, "name and target_species are required")
		return
	}
	p, err := h.svc.CreateProduct(c.Request.Context(), &dto)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"product": p})
}

func (h *Handler) ListProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	includeInactive := c.Query("include_inactive") == "true"

	products, err := h.svc.ListProducts(c.Request.Context(), c.Query("species"), includeInactive, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"products": products, "total": len(products)})
}

func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.svc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"product": p})
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	var dto ProductUpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, "invalid product payload")
		return
	}
	p, err := h.svc.UpdateProduct(c.Request.Context(), c.Param("id"), &dto)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"product": p})
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.svc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		response.ValidationError(c, err.Error())
	case errors.Is(err, ErrPetNotFound):
		response.Fail(c, http.StatusNotFound, response.CodePetNotFound, "pet not found")
	case errors.Is(err, ErrProductNotFound):
		response.NotFound(c, "product not found")
	default:
		h.log.Error("recommendation handler failure", zap.Error(err))
		response.InternalError(c)
	}
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, errors.New("limit must be between 1 and 50")
	}
	return n, nil
}

func parseMinScore(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		return 0, errors.New("min_score must be between 0 and 1")
	}
	return v, nil
}
