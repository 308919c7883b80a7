package server

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/coursecal/coursecal-backend/internal/handlers"
	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/middleware"
	"github.com/coursecal/coursecal-backend/internal/utils"
)

type Router struct {
	log             *logger.Logger
	engine          *gin.Engine
	authMiddleware  *middleware.AuthMiddleware
	authHandler     *handlers.AuthHandler
	classHandler    *handlers.ClassHandler
	syllabusHandler *handlers.SyllabusHandler
	eventHandler    *handlers.EventHandler
	calendarHandler *handlers.CalendarHandler
}

func NewRouter(
	log *logger.Logger,
	authMiddleware *middleware.AuthMiddleware,
	authHandler *handlers.AuthHandler,
	classHandler *handlers.ClassHandler,
	syllabusHandler *handlers.SyllabusHandler,
	eventHandler *handlers.EventHandler,
	calendarHandler *handlers.CalendarHandler,
) *Router {
	return &Router{
		log:             log.With("component", "Router"),
		engine:          gin.Default(),
		authMiddleware:  authMiddleware,
		authHandler:     authHandler,
		classHandler:    classHandler,
		syllabusHandler: syllabusHandler,
		eventHandler:    eventHandler,
		calendarHandler: calendarHandler,
	}
}

func (r *Router) Setup() *gin.Engine {
	allowedOrigins := strings.Split(utils.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000", r.log), ",")
	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.engine.GET("/healthcheck", handlers.Healthcheck)

	api := r.engine.Group("/api")
	api.POST("/register", r.authHandler.Register)
	api.POST("/login", r.authHandler.Login)

	authed := api.Group("")
	authed.Use(r.authMiddleware.RequireAuth())
	{
		authed.POST("/refresh", r.authHandler.Refresh)
		authed.POST("/logout", r.authHandler.Logout)

		authed.POST("/classes", r.classHandler.Create)
		authed.GET("/classes", r.classHandler.List)
		authed.GET("/classes/:id", r.classHandler.Get)
		authed.PATCH("/classes/:id", r.classHandler.Update)
		authed.DELETE("/classes/:id", r.classHandler.Delete)

		authed.POST("/classes/:id/syllabi", r.syllabusHandler.Upload)
		authed.GET("/classes/:id/syllabi", r.syllabusHandler.ListByClass)
		authed.POST("/syllabi/:id/reprocess", r.syllabusHandler.Reprocess)
		authed.DELETE("/syllabi/:id", r.syllabusHandler.Delete)

		authed.GET("/classes/:id/events", r.eventHandler.ListByClass)
		authed.POST("/classes/:id/events", r.eventHandler.Create)
		authed.GET("/events", r.eventHandler.ListByUser)
		authed.PATCH("/events/:id", r.eventHandler.Update)
		authed.DELETE("/events/:id", r.eventHandler.Delete)

		authed.GET("/classes/:id/export.ics", r.calendarHandler.ExportICS)
		authed.POST("/google/connect", r.calendarHandler.GoogleConnect)
		authed.POST("/classes/:id/google/export", r.calendarHandler.GoogleExport)
		authed.POST("/classes/:id/google/import", r.calendarHandler.GoogleImport)
	}

	return r.engine
}
