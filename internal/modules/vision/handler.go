package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/petlens/core/internal/middleware"
	"github.com/petlens/core/internal/pkg/response"
	"go.uber.org/zap"
)

// maxImageBytes caps decoded image size at 10 MB.
const maxImageBytes = 10 << 20

type analyzeDTO struct {
	Image string  `json:"image" binding:"required"`
	PetID *string `json:"pet_id"`
}

// AnalysisRecorder persists completed reports to the user data service.
// Recording is best-effort; the report is returned either way.
type AnalysisRecorder interface {
	Record(ctx context.Context, userID, role string, petID *string, report *Report) error
}

type Handler struct {
	orch     *Orchestrator
	recorder AnalysisRecorder
	log      *zap.Logger
}

func NewHandler(orch *Orchestrator, recorder AnalysisRecorder, log *zap.Logger) *Handler {
	return &Handler{orch: orch, recorder: recorder, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.Use(middleware.ForwardedIdentity(), middleware.RequireIdentity())
	api.POST("/vision/analyze", h.Analyze)
}

func (h *Handler) Analyze(c *gin.Context) {
	var dto analyzeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Fail(c, http.StatusUnprocessableEntity, response.CodeInvalidImage, "image is required")
		return
	}

	image, mediaType, err := decodeImage(dto.Image)
	if err != nil {
		response.Fail(c, http.StatusUnprocessableEntity, response.CodeInvalidImage, err.Error())
		return
	}

	report, err := h.orch.Analyze(c.Request.Context(), image, mediaType)
	if err != nil {
		h.fail(c, err)
		return
	}

	if h.recorder != nil {
		userID := middleware.CurrentUserID(c)
		role := middleware.CurrentUserRole(c)
		if err := h.recorder.Record(c.Request.Context(), userID, role, dto.PetID, report); err != nil {
			h.log.Warn("analysis recording failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	response.OK(c, gin.H{"analysis": report})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrContentPolicy):
		response.Fail(c, http.StatusUnprocessableEntity, response.CodeContentPolicy,
			"image violates content policy")
	case errors.Is(err, ErrUnsupportedSpecies):
		response.Fail(c, http.StatusUnprocessableEntity, response.CodeUnsupportedSpecies,
			"only dogs and cats are supported")
	case errors.Is(err, ErrSpeciesFailed):
		response.Fail(c, http.StatusUnprocessableEntity, response.CodeSpeciesFailed,
			"could not determine the species with enough confidence")
	case errors.Is(err, ErrBreedFailed):
		response.Fail(c, http.StatusUnprocessableEntity, response.CodeBreedFailed,
			"could not determine the breed with enough confidence")
	default:
		h.log.Error("vision pipeline failure", zap.Error(err))
		response.Fail(c, http.StatusServiceUnavailable, response.CodeVisionUnavailable,
			"vision service unavailable")
	}
}

// decodeImage accepts a raw base64 string or a data URI and returns decoded
// bytes plus the media type.
func decodeImage(raw string) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, "", errors.New("image is empty")
	}

	mediaType := "image/jpeg"
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 {
			return nil, "", errors.New("malformed data uri")
		}
		header := raw[len("data:"):comma]
		if semi := strings.IndexByte(header, ';'); semi >= 0 {
			header = header[:semi]
		}
		if header != "" {
			mediaType = header
		}
		raw = raw[comma+1:]
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, "", errors.New("image is not valid base64")
	}
	if len(decoded) == 0 {
		return nil, "", errors.New("image is empty")
	}
	if len(decoded) > maxImageBytes {
		return nil, "", errors.New("image exceeds the size limit")
	}
	return decoded, mediaType, nil
}

// httpAnalysisRecorder writes reports through the user data service's public
// surface, carrying the caller's identity headers.
type httpAnalysisRecorder struct {
	baseURL string
	client  *http.Client
}

func NewAnalysisRecorder(baseURL string, client *http.Client) AnalysisRecorder {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpAnalysisRecorder{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

func (r *httpAnalysisRecorder) Record(ctx context.Context, userID, role string, petID *string, report *Report) error {
	payload, err := json.Marshal(map[string]interface{}{
		"pet_id":         petID,
		"detected_breed": report.BreedAnalysis.DisplayBreed(),
		"confidence":     report.BreedAnalysis.Confidence,
		"traits":         report.Traits,
		"raw_response":   report.RawResponse,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/api/v1/analyses", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, userID)
	req.Header.Set(middleware.HeaderUserRole, role)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("user data service returned status %d", resp.StatusCode)
	}
	return nil
}
