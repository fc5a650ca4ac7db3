package main

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/auth"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/services"
)

// setupAdminSubmissionRoutes konfiguriert die Redaktionsansicht der Einreichungen
// inklusive Gutachterzuweisung.
func setupAdminSubmissionRoutes(rg *gin.RouterGroup, submissions *services.SubmissionService, reviews *services.ReviewService, articles *services.ArticleService, roles *services.RoleService, log *zap.Logger) {
	g := rg.Group("/submissions")

	g.GET("", func(c *gin.Context) {
		limit, ok1 := queryInt(c, "limit")
		offset, ok2 := queryInt(c, "offset")
		if !ok1 || !ok2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit and offset must be numbers"})
			return
		}
		filter := services.SubmissionFilter{
			Status:   models.SubmissionStatus(c.Query("status")),
			Category: c.Query("category"),
		}
		if limit != nil {
			filter.Limit = *limit
		}
		if offset != nil {
			filter.Offset = *offset
		}
		subs, err := submissions.List(c.Request.Context(), filter)
		if err != nil {
			respondError(c, log, err, "load submissions")
			return
		}
		c.JSON(http.StatusOK, subs)
	})

	g.PATCH("/:id/status", func(c *gin.Context) {
		var req struct {
			Status models.SubmissionStatus `json:"status" binding:"required"`
			Reason string                  `json:"reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		sub, err := submissions.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, auth.UserID(c), req.Reason)
		if err != nil {
			respondError(c, log, err, "update submission status")
			return
		}
		c.JSON(http.StatusOK, sub)
	})

	g.PATCH("/:id/notes", func(c *gin.Context) {
		var req struct {
			AdminNotes string `json:"admin_notes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		sub, err := submissions.UpdateAdminNotes(c.Request.Context(), c.Param("id"), req.AdminNotes)
		if err != nil {
			respondError(c, log, err, "update notes")
			return
		}
		c.JSON(http.StatusOK, sub)
	})

	g.GET("/:id/history", func(c *gin.Context) {
		entries, err := submissions.History(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err, "load history")
			return
		}
		c.JSON(http.StatusOK, entries)
	})

	g.GET("/:id/reviews", func(c *gin.Context) {
		ctx := c.Request.Context()
		list, err := reviews.ListForSubmission(ctx, c.Param("id"))
		if err != nil {
			respondError(c, log, err, "load reviews")
			return
		}
		progress, err := reviews.CompletionForSubmission(ctx, c.Param("id"))
		if err != nil {
			respondError(c, log, err, "load reviews")
			return
		}
		c.JSON(http.StatusOK, gin.H{"reviews": list, "completion": progress})
	})

	// Gutachter zuweisen, nur Nutzer mit Gutachterrolle sind wählbar
	g.POST("/:id/reviewers", func(c *gin.Context) {
		var req struct {
			ReviewerID string `json:"reviewer_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		ctx := c.Request.Context()
		eligible, err := roles.HasAnyRole(ctx, req.ReviewerID, models.ReviewerRoles...)
		if err != nil {
			respondError(c, log, err, "assign reviewer")
			return
		}
		if !eligible {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "user is not an eligible reviewer"})
			return
		}
		review, err := reviews.AssignReviewer(ctx, c.Param("id"), req.ReviewerID, auth.UserID(c))
		if err != nil {
			respondError(c, log, err, "assign reviewer")
			return
		}
		c.JSON(http.StatusCreated, review)
	})

	g.POST("/:id/convert", func(c *gin.Context) {
		var opts services.ConvertOptions
		// leerer Body übernimmt alle Felder der Einreichung
		if err := c.ShouldBindJSON(&opts); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		article, err := articles.ConvertSubmission(c.Request.Context(), c.Param("id"), opts)
		if err != nil {
			respondError(c, log, err, "convert submission")
			return
		}
		c.JSON(http.StatusCreated, article)
	})

	r := rg.Group("/reviews")

	r.GET("/:id", func(c *gin.Context) {
		review, err := reviews.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err, "load review")
			return
		}
		c.JSON(http.StatusOK, review)
	})

	r.PATCH("/:id/status", func(c *gin.Context) {
		var req struct {
			Status models.ReviewStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		review, err := reviews.UpdateReviewStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			respondError(c, log, err, "update review status")
			return
		}
		c.JSON(http.StatusOK, review)
	})

	r.DELETE("/:id", func(c *gin.Context) {
		if err := reviews.RemoveReviewer(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, log, err, "remove reviewer")
			return
		}
		c.Status(http.StatusNoContent)
	})

	rg.GET("/reviewers", func(c *gin.Context) {
		profiles, err := roles.EligibleReviewers(c.Request.Context())
		if err != nil {
			respondError(c, log, err, "load reviewers")
			return
		}
		c.JSON(http.StatusOK, profiles)
	})
}

// setupAdminArticleRoutes konfiguriert die Artikelredaktion.
func setupAdminArticleRoutes(rg *gin.RouterGroup, articles *services.ArticleService, maxUpload int64, log *zap.Logger) {
	g := rg.Group("/articles")

	g.GET("/drafts", func(c *gin.Context) {
		list, err := articles.ListDrafts(c.Request.Context())
		if err != nil {
			respondError(c, log, err, "load drafts")
			return
		}
		c.JSON(http.StatusOK, list)
	})

	g.GET("/:id", func(c *gin.Context) {
		article, err := articles.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err, "load article")
			return
		}
		c.JSON(http.StatusOK, article)
	})

	g.POST("", func(c *gin.Context) {
		var req services.ArticleInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		article, err := articles.Create(c.Request.Context(), req)
		if err != nil {
			respondError(c, log, err, "create article")
			return
		}
		c.JSON(http.StatusCreated, article)
	})

	g.PUT("/:id", func(c *gin.Context) {
		var req services.ArticleInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		article, err := articles.Update(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			respondError(c, log, err, "update article")
			return
		}
		c.JSON(http.StatusOK, article)
	})

	g.POST("/:id/publish", func(c *gin.Context) {
		article, err := articles.Publish(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err, "publish article")
			return
		}
		c.JSON(http.StatusOK, article)
	})

	g.POST("/:id/unpublish", func(c *gin.Context) {
		article, err := articles.Unpublish(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err, "unpublish article")
			return
		}
		c.JSON(http.StatusOK, article)
	})

	g.POST("/:id/feature", func(c *gin.Context) {
		var req struct {
			Featured *bool `json:"featured" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		article, err := articles.SetFeatured(c.Request.Context(), c.Param("id"), *req.Featured)
		if err != nil {
			respondError(c, log, err, "feature article")
			return
		}
		c.JSON(http.StatusOK, article)
	})

	g.POST("/:id/image", func(c *gin.Context) {
		data, filename, contentType, ok := readUpload(c, maxUpload)
		if !ok {
			return
		}
		article, err := articles.UploadImage(c.Request.Context(), c.Param("id"), filename, contentType, data)
		if err != nil {
			respondError(c, log, err, "upload image")
			return
		}
		c.JSON(http.StatusOK, article)
	})
}

// setupAdminRoutes konfiguriert Dashboard, Erinnerungen und Rollenverwaltung.
func setupAdminRoutes(rg *gin.RouterGroup, dashboard *services.DashboardService, reminders *services.ReminderService, roles *services.RoleService, log *zap.Logger) {
	rg.GET("/dashboard", func(c *gin.Context) {
		stats, err := dashboard.Stats(c.Request.Context())
		if err != nil {
			respondError(c, log, err, "load dashboard")
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	rg.GET("/dashboard/progress", func(c *gin.Context) {
		progress, err := dashboard.SubmissionProgress(c.Request.Context())
		if err != nil {
			respondError(c, log, err, "load progress")
			return
		}
		c.JSON(http.StatusOK, progress)
	})

	rg.POST("/reminders/run", func(c *gin.Context) {
		sent, err := reminders.Run(c.Request.Context())
		if err != nil {
			respondError(c, log, err, "send reminders")
			return
		}
		c.JSON(http.StatusOK, gin.H{"sent": sent})
	})

	// Rollenverwaltung nur für Admins
	g := rg.Group("/roles", auth.RequireRole(roles, log, models.RoleAdmin))

	g.GET("/:user_id", func(c *gin.Context) {
		list, err := roles.Roles(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			respondError(c, log, err, "load roles")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": c.Param("user_id"), "roles": list})
	})

	g.POST("", func(c *gin.Context) {
		var req struct {
			UserID string      `json:"user_id" binding:"required"`
			Role   models.Role `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := roles.Grant(c.Request.Context(), req.UserID, req.Role); err != nil {
			respondError(c, log, err, "grant role")
			return
		}
		c.Status(http.StatusNoContent)
	})

	g.DELETE("/:user_id/:role", func(c *gin.Context) {
		if err := roles.Revoke(c.Request.Context(), c.Param("user_id"), models.Role(c.Param("role"))); err != nil {
			respondError(c, log, err, "revoke role")
			return
		}
		c.Status(http.StatusNoContent)
	})
}
