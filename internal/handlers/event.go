package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/services"
)

type EventHandler struct {
	log          *logger.Logger
	eventService services.CalendarEventService
}

func NewEventHandler(log *logger.Logger, eventService services.CalendarEventService) *EventHandler {
	return &EventHandler{
		log:          log.With("handler", "EventHandler"),
		eventService: eventService,
	}
}

func (h *EventHandler) ListByClass(c *gin.Context) {
	classID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	events, err := h.eventService.ListByClass(c.Request.Context(), classID)
	if err != nil {
		respondServiceError(c, "list_events_failed", err)
		return
	}
	RespondOK(c, gin.H{"events": events})
}

func (h *EventHandler) ListByUser(c *gin.Context) {
	events, err := h.eventService.ListByUser(c.Request.Context())
	if err != nil {
		respondServiceError(c, "list_events_failed", err)
		return
	}
	RespondOK(c, gin.H{"events": events})
}

func (h *EventHandler) Create(c *gin.Context) {
	classID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input services.EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	event, err := h.eventService.CreateManual(c.Request.Context(), classID, &input)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		RespondError(c, http.StatusBadRequest, "create_event_failed", err)
		return
	}
	RespondOK(c, gin.H{"event": event})
}

func (h *EventHandler) Update(c *gin.Context) {
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	event, err := h.eventService.UpdateEvent(c.Request.Context(), eventID, fields)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		RespondError(c, http.StatusBadRequest, "update_event_failed", err)
		return
	}
	RespondOK(c, gin.H{"event": event})
}

func (h *EventHandler) Delete(c *gin.Context) {
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.eventService.DeleteEvent(c.Request.Context(), eventID); err != nil {
		respondServiceError(c, "delete_event_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}
