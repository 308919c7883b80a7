package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/services"
)

// Uploads above this size are rejected before the file is read into memory.
const maxSyllabusUploadBytes = 20 << 20

type SyllabusHandler struct {
	log             *logger.Logger
	syllabusService services.SyllabusService
}

func NewSyllabusHandler(log *logger.Logger, syllabusService services.SyllabusService) *SyllabusHandler {
	return &SyllabusHandler{
		log:             log.With("handler", "SyllabusHandler"),
		syllabusService: syllabusService,
	}
}

func (h *SyllabusHandler) Upload(c *gin.Context) {
	classID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("multipart field \"file\" is required: %w", err))
		return
	}
	if fileHeader.Size > maxSyllabusUploadBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Errorf("file exceeds %d bytes", maxSyllabusUploadBytes))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}

	result, err := h.syllabusService.UploadAndExtract(
		c.Request.Context(),
		classID,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		data,
	)
	if err != nil {
		h.log.Warn("Syllabus upload failed", "class_id", classID, "error", err)
		switch {
		case errors.Is(err, services.ErrNotFound):
			RespondError(c, http.StatusNotFound, "not_found", err)
		case errors.Is(err, services.ErrUnsupportedDocumentType):
			RespondError(c, http.StatusUnsupportedMediaType, "unsupported_document_type", err)
		case errors.Is(err, services.ErrTextExtractionFailed):
			RespondError(c, http.StatusUnprocessableEntity, "text_extraction_failed", err)
		default:
			RespondError(c, http.StatusInternalServerError, "upload_failed", err)
		}
		return
	}
	RespondOK(c, result)
}

func (h *SyllabusHandler) Reprocess(c *gin.Context) {
	syllabusID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.syllabusService.Reprocess(c.Request.Context(), syllabusID)
	if err != nil {
		respondServiceError(c, "reprocess_failed", err)
		return
	}
	RespondOK(c, result)
}

func (h *SyllabusHandler) ListByClass(c *gin.Context) {
	classID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	syllabi, err := h.syllabusService.ListByClass(c.Request.Context(), classID)
	if err != nil {
		respondServiceError(c, "list_syllabi_failed", err)
		return
	}
	RespondOK(c, gin.H{"syllabi": syllabi})
}

func (h *SyllabusHandler) Delete(c *gin.Context) {
	syllabusID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.syllabusService.DeleteSyllabus(c.Request.Context(), syllabusID); err != nil {
		respondServiceError(c, "delete_syllabus_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}
