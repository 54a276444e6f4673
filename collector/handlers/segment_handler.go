package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/freesoil/sky-monitor-edge/collector/segments"
	"github.com/freesoil/sky-monitor-edge/logging"
)

// SegmentHandler handles segment upload and listing.
type SegmentHandler struct {
	logger    logging.Logger
	repo      segments.Repository
	probe     segments.MetadataProbe
	uploadDir string
}

// NewSegmentHandler creates a segment handler saving files into uploadDir. A
// nil probe skips metadata extraction.
func NewSegmentHandler(logger logging.Logger, repo segments.Repository, probe segments.MetadataProbe, uploadDir string) *SegmentHandler {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &SegmentHandler{
		logger:    logger,
		repo:      repo,
		probe:     probe,
		uploadDir: uploadDir,
	}
}

// Upload handles POST /upload: one multipart part named "file" carrying raw
// segment bytes, exactly what the device-side pipeline sends.
func (h *SegmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.logger.Warn("upload without file part", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "File part is required"})
		return
	}

	filename := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		h.logger.Warn("upload with empty filename")
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected or filename is empty"})
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		h.logger.Error("failed to create upload directory", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	destPath := filepath.Join(h.uploadDir, filename)
	if err := c.SaveUploadedFile(fileHeader, destPath); err != nil {
		h.logger.Error("failed to save uploaded file", "filename", filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	record := &segments.Record{
		ID:         uuid.NewString(),
		Filename:   filename,
		Size:       fileHeader.Size,
		MimeType:   "application/octet-stream",
		ReceivedAt: time.Now().UTC(),
	}

	if h.probe != nil {
		// Devices keep uploading even when ffmpeg is missing on the
		// collector; a probe failure only costs the metadata.
		meta, err := h.probe.Probe(destPath)
		if err != nil {
			h.logger.Warn("metadata probe failed", "filename", filename, "error", err)
		} else {
			record.MimeType = meta.MimeType
			record.Width = meta.Width
			record.Height = meta.Height
		}
	}

	if err := h.repo.Add(c.Request.Context(), record); err != nil {
		h.logger.Error("failed to record segment", "filename", filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record segment"})
		return
	}

	h.logger.Info("segment received", "id", record.ID, "filename", filename, "size", record.Size)

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Upload successful",
		"id":       record.ID,
		"filename": filename,
	})
}

// List handles GET /segments.
func (h *SegmentHandler) List(c *gin.Context) {
	records, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list segments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list segments"})
		return
	}

	out := make([]gin.H, 0, len(records))
	for _, record := range records {
		out = append(out, gin.H{
			"id":          record.ID,
			"filename":    record.Filename,
			"size":        record.Size,
			"mime_type":   record.MimeType,
			"width":       record.Width,
			"height":      record.Height,
			"received_at": record.ReceivedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"segments": out})
}
