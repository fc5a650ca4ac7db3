package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/cache"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/config"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/services"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/storage"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}
	ctx := context.Background()

	// Setup Database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to journal database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(models.All()...); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup Storage, Cache, Mail
	store, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	var articleCache services.ListCache
	if cfg.RedisURL != "" {
		c, err := cache.NewArticleCache(ctx, cfg.RedisURL, time.Duration(cfg.ArticleCacheTTL)*time.Second, logging)
		if err != nil {
			logging.Warn("Redis unavailable, article lists are not cached", zap.Error(err))
		} else {
			defer c.Close()
			articleCache = c
		}
	}

	var notifier services.Notifier = services.LogNotifier{Logger: logging}
	if cfg.MailEnabled() {
		notifier = services.NewSMTPMailer(cfg)
		logging.Info("SMTP mail enabled", zap.String("host", cfg.SMTPHost))
	}
	mails := services.Mails{PortalURL: cfg.PortalURL}

	// Setup Services
	app := &appServices{
		Roles:       services.NewRoleService(db, logging),
		Submissions: services.NewSubmissionService(db, store, notifier, mails, logging),
		Reviews:     services.NewReviewService(db, notifier, mails, logging),
		Articles:    services.NewArticleService(db, store, articleCache, logging),
		Dashboard:   services.NewDashboardService(db, logging),
		Reminders:   services.NewReminderService(db, notifier, mails, time.Duration(cfg.ReviewReminderDays)*24*time.Hour, logging),
	}

	router := setupRouter(cfg, db, app, logging)

	// Setup Cron
	cronScheduler := cron.New()
	if _, err := cronScheduler.AddFunc(cfg.ReminderCron, func() {
		logging.Info("Running scheduled review reminders...")
		sent, err := app.Reminders.Run(context.Background())
		if err != nil {
			logging.Error("Reminder job failed", zap.Error(err))
			return
		}
		logging.Info("Reminder job completed", zap.Int("sent", sent))
	}); err != nil {
		logging.Fatal("Invalid REMINDER_CRON", zap.String("spec", cfg.ReminderCron), zap.Error(err))
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}
