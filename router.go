package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/auth"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/config"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/metrics"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/services"
)

// appServices bündelt die Services, die die Routen benötigen.
type appServices struct {
	Roles       *services.RoleService
	Submissions *services.SubmissionService
	Reviews     *services.ReviewService
	Articles    *services.ArticleService
	Dashboard   *services.DashboardService
	Reminders   *services.ReminderService
}

func setupRouter(cfg *config.Config, db *gorm.DB, app *appServices, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Origins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			log.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
	})

	setupArticleRoutes(router, app.Articles, log)

	authed := router.Group("/", auth.Middleware(cfg.JWTSecret, cfg.JWTIssuer, app.Roles, log))
	setupSubmissionRoutes(authed, app.Submissions, app.Roles, cfg.MaxUploadMB<<20, log)

	reviewer := authed.Group("/reviews", auth.RequireRole(app.Roles, log, models.ReviewerRoles...))
	setupReviewRoutes(reviewer, app.Reviews, log)

	staff := authed.Group("/admin", auth.RequireRole(app.Roles, log, models.StaffRoles...))
	setupAdminSubmissionRoutes(staff, app.Submissions, app.Reviews, app.Articles, app.Roles, log)
	setupAdminArticleRoutes(staff, app.Articles, cfg.MaxUploadMB<<20, log)
	setupAdminRoutes(staff, app.Dashboard, app.Reminders, app.Roles, log)

	return router
}

// respondError übersetzt Service-Fehler in HTTP-Antworten.
func respondError(c *gin.Context, log *zap.Logger, err error, action string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyAssigned):
		c.JSON(http.StatusConflict, gin.H{"error": "reviewer already assigned"})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotAccepted):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "only accepted submissions can be converted"})
	default:
		log.Error("Request failed", zap.String("action", action), zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
	}
}

// queryInt liest einen optionalen Integer-Parameter. ok ist false bei ungültigem Wert.
func queryInt(c *gin.Context, name string) (v *int, ok bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &n, true
}
