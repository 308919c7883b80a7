package main

import (
	"time"

	"github.com/joho/godotenv"

	"github.com/coursecal/coursecal-backend/internal/db"
	"github.com/coursecal/coursecal-backend/internal/handlers"
	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/middleware"
	"github.com/coursecal/coursecal-backend/internal/repos"
	"github.com/coursecal/coursecal-backend/internal/server"
	"github.com/coursecal/coursecal-backend/internal/services"
	"github.com/coursecal/coursecal-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(utils.GetEnv("LOG_MODE", "development", nil))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Failed to connect to postgres", "error", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}
	gormDB := pg.DB()

	userRepo := repos.NewUserRepo(gormDB, log)
	userTokenRepo := repos.NewUserTokenRepo(gormDB, log)
	classRepo := repos.NewClassRepo(gormDB, log)
	syllabusRepo := repos.NewSyllabusRepo(gormDB, log)
	eventRepo := repos.NewCalendarEventRepo(gormDB, log)

	jwtSecret := utils.GetEnv("JWT_SECRET_KEY", "", log)
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET_KEY is required")
	}
	accessTTL := time.Duration(utils.GetEnvAsInt("ACCESS_TOKEN_TTL_MINUTES", 15, log)) * time.Minute
	refreshTTL := time.Duration(utils.GetEnvAsInt("REFRESH_TOKEN_TTL_HOURS", 24*7, log)) * time.Hour
	authService := services.NewAuthService(gormDB, log, userRepo, userTokenRepo, jwtSecret, accessTTL, refreshTTL)

	// A missing model credential degrades extraction to the regex fallback
	// rather than stopping the server.
	var geminiClient services.GeminiClient
	geminiCfg := services.LoadGeminiConfig(log)
	if geminiCfg.APIKey != "" {
		geminiClient, err = services.NewGeminiClient(log, geminiCfg)
		if err != nil {
			log.Fatal("Failed to build gemini client", "error", err)
		}
	} else {
		log.Warn("GEMINI_API_KEY not set, syllabus extraction will use the regex fallback only")
	}
	extractor := services.NewExtractionService(log, geminiClient)

	// Same posture for file storage: uploads still process without a bucket,
	// the original documents just are not retained.
	var bucketService services.BucketService
	bucketService, err = services.NewBucketService(log)
	if err != nil {
		log.Warn("File storage disabled", "error", err)
		bucketService = nil
	}

	classService := services.NewClassService(gormDB, log, classRepo, eventRepo)
	eventService := services.NewCalendarEventService(gormDB, log, eventRepo, classService)
	syllabusService := services.NewSyllabusService(gormDB, log, syllabusRepo, eventRepo, classService, extractor, bucketService)
	icsService := services.NewICSExportService(gormDB, log, eventRepo, classService)
	googleService := services.NewGoogleCalendarService(gormDB, log, userRepo, eventRepo, classService)

	authHandler := handlers.NewAuthHandler(log, authService)
	classHandler := handlers.NewClassHandler(log, classService)
	syllabusHandler := handlers.NewSyllabusHandler(log, syllabusService)
	eventHandler := handlers.NewEventHandler(log, eventService)
	calendarHandler := handlers.NewCalendarHandler(log, icsService, googleService)
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	router := server.NewRouter(log, authMiddleware, authHandler, classHandler, syllabusHandler, eventHandler, calendarHandler)
	engine := router.Setup()

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := engine.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
