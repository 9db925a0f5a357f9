package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mojiscan/internal/api/middleware"
	"github.com/timmy/mojiscan/internal/domain"
	"github.com/timmy/mojiscan/internal/logger"
	"github.com/timmy/mojiscan/internal/service"
)

// ScanHandlerConfig holds upload limits for the scan endpoint.
type ScanHandlerConfig struct {
	MaxUploadBytes int64
	AllowedFormats []string
}

// ScanHandler handles transcription and scoring endpoints.
type ScanHandler struct {
	scanService    *service.ScanService
	maxUploadBytes int64
	allowedFormats []string
}

// NewScanHandler creates a new scan handler.
// Parameters:
//   - scanService: scan service instance.
//   - cfg: upload limits.
//
// Returns:
//   - *ScanHandler: initialized handler.
func NewScanHandler(scanService *service.ScanService, cfg *ScanHandlerConfig) *ScanHandler {
	h := &ScanHandler{
		scanService:    scanService,
		maxUploadBytes: 10 << 20,
	}
	if cfg != nil {
		if cfg.MaxUploadBytes > 0 {
			h.maxUploadBytes = cfg.MaxUploadBytes
		}
		h.allowedFormats = cfg.AllowedFormats
	}
	return h
}

// Scan handles POST /api/v1/scans.
// Form fields: image (file, required), reference (text, optional).
func (h *ScanHandler) Scan(c *gin.Context) {
	ctx := c.Request.Context()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "Image exceeds the upload limit",
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: image file is required",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	image, err := domain.NewImagePayload(data, h.allowedFormats...)
	if err != nil {
		middleware.GetLogger(c).WithFields(logger.Fields{
			"filename":       fileHeader.Filename,
			logger.FieldSize: len(data),
		}).WithError(err).Warn("Rejected upload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image: " + err.Error()})
		return
	}

	result, err := h.scanService.Scan(ctx, &service.ScanRequest{
		Image:     image,
		Reference: c.PostForm("reference"),
	})
	if err != nil {
		_ = c.Error(err)
		requestID := logger.GetRequestID(ctx)
		if errors.Is(err, domain.ErrTranscription) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":      "Transcription failed: " + err.Error(),
				"request_id": requestID,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Scan failed: " + err.Error(),
			"request_id": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ScoreRequest is the body of POST /api/v1/score. Both fields are required but
// may be empty strings.
type ScoreRequest struct {
	Candidate *string `json:"candidate" binding:"required"`
	Reference *string `json:"reference" binding:"required"`
}

// Score handles POST /api/v1/score.
func (h *ScanHandler) Score(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, service.Score(*req.Candidate, *req.Reference))
}
