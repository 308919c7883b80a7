package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/services"
)

type ClassHandler struct {
	log          *logger.Logger
	classService services.ClassService
}

func NewClassHandler(log *logger.Logger, classService services.ClassService) *ClassHandler {
	return &ClassHandler{
		log:          log.With("handler", "ClassHandler"),
		classService: classService,
	}
}

func (h *ClassHandler) Create(c *gin.Context) {
	var input services.ClassInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	class, err := h.classService.CreateClass(c.Request.Context(), &input)
	if err != nil {
		h.log.Error("Create class failed", "error", err)
		RespondError(c, http.StatusBadRequest, "create_class_failed", err)
		return
	}
	RespondOK(c, gin.H{"class": class})
}

func (h *ClassHandler) List(c *gin.Context) {
	classes, err := h.classService.ListClasses(c.Request.Context())
	if err != nil {
		h.log.Error("List classes failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "list_classes_failed", err)
		return
	}
	RespondOK(c, gin.H{"classes": classes})
}

func (h *ClassHandler) Get(c *gin.Context) {
	classID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	class, err := h.classService.GetClass(c.Request.Context(), classID)
	if err != nil {
		respondServiceError(c, "load_class_failed", err)
		return
	}
	RespondOK(c, gin.H{"class": class})
}

func (h *ClassHandler) Update(c *gin.Context) {
	classID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	class, err := h.classService.UpdateClass(c.Request.Context(), classID, fields)
	if err != nil {
		respondServiceError(c, "update_class_failed", err)
		return
	}
	RespondOK(c, gin.H{"class": class})
}

func (h *ClassHandler) Delete(c *gin.Context) {
	classID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.classService.DeleteClass(c.Request.Context(), classID); err != nil {
		respondServiceError(c, "delete_class_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}

// pathUUID parses a uuid path param, responding with 400 itself on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps the service not-found sentinel to 404 and
// everything else to 500.
func respondServiceError(c *gin.Context, code string, err error) {
	if errors.Is(err, services.ErrNotFound) {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	RespondError(c, http.StatusInternalServerError, code, err)
}
