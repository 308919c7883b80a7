package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/services"
)

// CalendarHandler serves the ICS feed and the Google Calendar integration.
type CalendarHandler struct {
	log           *logger.Logger
	icsService    services.ICSExportService
	googleService services.GoogleCalendarService
}

func NewCalendarHandler(log *logger.Logger, icsService services.ICSExportService, googleService services.GoogleCalendarService) *CalendarHandler {
	return &CalendarHandler{
		log:           log.With("handler", "CalendarHandler"),
		icsService:    icsService,
		googleService: googleService,
	}
}

func (h *CalendarHandler) ExportICS(c *gin.Context) {
	classID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	serialized, filename, err := h.icsService.ExportClass(c.Request.Context(), classID)
	if err != nil {
		respondServiceError(c, "ics_export_failed", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(serialized))
}

// Either an authorization code (exchanged server-side) or a token the client
// already exchanged.
type googleConnectRequest struct {
	Code  string        `json:"code"`
	Token *oauth2.Token `json:"token"`
}

func (h *CalendarHandler) GoogleConnect(c *gin.Context) {
	var req googleConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	var err error
	switch {
	case req.Code != "":
		err = h.googleService.ConnectWithCode(c.Request.Context(), req.Code)
	case req.Token != nil:
		err = h.googleService.SaveToken(c.Request.Context(), req.Token)
	default:
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("either code or token is required"))
		return
	}
	if err != nil {
		h.log.Warn("Google Calendar connect failed", "error", err)
		RespondError(c, http.StatusBadRequest, "google_connect_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": "connected"})
}

func (h *CalendarHandler) GoogleExport(c *gin.Context) {
	classID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	count, err := h.googleService.ExportClass(c.Request.Context(), classID)
	if err != nil {
		respondServiceError(c, "google_export_failed", err)
		return
	}
	RespondOK(c, gin.H{"exported_count": count})
}

type googleImportRequest struct {
	TimeMin string `json:"time_min"`
	TimeMax string `json:"time_max"`
}

func (h *CalendarHandler) GoogleImport(c *gin.Context) {
	classID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	// The body is optional; an empty request uses the default window.
	var req googleImportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}
	// Default window: three months back to a year ahead, covering any term.
	timeMin := time.Now().AddDate(0, -3, 0)
	timeMax := time.Now().AddDate(1, 0, 0)
	if req.TimeMin != "" {
		t, err := time.Parse(time.RFC3339, req.TimeMin)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_time_min", err)
			return
		}
		timeMin = t
	}
	if req.TimeMax != "" {
		t, err := time.Parse(time.RFC3339, req.TimeMax)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_time_max", err)
			return
		}
		timeMax = t
	}
	events, err := h.googleService.ImportEvents(c.Request.Context(), classID, timeMin, timeMax)
	if err != nil {
		respondServiceError(c, "google_import_failed", err)
		return
	}
	RespondOK(c, gin.H{"imported_count": len(events), "events": events})
}
