package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Brownie44l1/paddy-api/internal/diagnosis"
	"github.com/Brownie44l1/paddy-api/internal/preprocess"
	"github.com/Brownie44l1/paddy-api/internal/upload"
	"github.com/Brownie44l1/paddy-api/web"
)

const (
	msgNoFile       = "No file uploaded"
	msgNoSelection  = "No file selected"
	msgInvalidType  = "Invalid file type. Please upload an image (PNG, JPG, JPEG)"
	msgTooLarge     = "File too large"
	msgInvalidImage = "Invalid image. Supported: PNG, JPEG"
)

type Handler struct {
	service        *diagnosis.Service
	store          *upload.Store
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewHandler(service *diagnosis.Service, store *upload.Store, maxUploadBytes int64, logger *slog.Logger) *Handler {
	return &Handler{
		service:        service,
		store:          store,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.Index)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"mode":    h.service.Mode(),
		"classes": h.service.Classes(),
	})
}

func (h *Handler) Preflight(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Predict saves the upload to the temp directory, runs it through the model and
// always removes the temp file before responding.
func (h *Handler) Predict(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		// A file part with an empty filename is parsed as a plain form value.
		if form := c.Request.MultipartForm; form != nil && len(form.Value["file"]) > 0 {
			respondError(c, http.StatusBadRequest, msgNoSelection)
			return
		}
		respondError(c, http.StatusBadRequest, msgNoFile)
		return
	}

	if !upload.Allowed(fh.Filename) {
		respondError(c, http.StatusBadRequest, msgInvalidType)
		return
	}

	path, err := h.store.Save(fh)
	if err != nil {
		h.logger.Error("failed to save upload", "filename", fh.Filename, "error", err)
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer h.store.Remove(path)

	h.logger.Debug("received file", "filename", fh.Filename, "size", fh.Size)

	result, err := h.service.DiagnoseFile(c.Request.Context(), path)
	if err != nil {
		if errors.Is(err, preprocess.ErrDecode) {
			respondError(c, http.StatusBadRequest, msgInvalidImage)
			return
		}
		h.logger.Error("prediction failed", "error", err)
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info("prediction", "disease", result.Disease, "severity", result.Severity, "mode", result.Mode)
	c.JSON(http.StatusOK, result)
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
