package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/auth"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/services"
)

// setupReviewRoutes konfiguriert das Gutachter-Dashboard.
func setupReviewRoutes(rg *gin.RouterGroup, reviews *services.ReviewService, log *zap.Logger) {
	// loadOwn lädt ein Gutachten, das dem angemeldeten Gutachter zugewiesen ist.
	loadOwn := func(c *gin.Context) (*models.SubmissionReview, bool) {
		review, err := reviews.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err, "load review")
			return nil, false
		}
		if review.ReviewerID != auth.UserID(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "review is assigned to someone else"})
			return nil, false
		}
		return review, true
	}

	rg.GET("/mine", func(c *gin.Context) {
		list, err := reviews.ListForReviewer(c.Request.Context(), auth.UserID(c))
		if err != nil {
			respondError(c, log, err, "load reviews")
			return
		}
		c.JSON(http.StatusOK, list)
	})

	// Öffnen der Detailansicht setzt ein offenes Gutachten auf in_progress
	rg.GET("/:id", func(c *gin.Context) {
		review, ok := loadOwn(c)
		if !ok {
			return
		}
		started, err := reviews.StartReview(c.Request.Context(), review.ID)
		if err != nil {
			respondError(c, log, err, "load review")
			return
		}
		c.JSON(http.StatusOK, services.ReviewerView(started))
	})

	rg.POST("/:id/submit", func(c *gin.Context) {
		var req struct {
			Recommendation models.Recommendation `json:"recommendation" binding:"required"`
			Feedback       string                `json:"feedback"`
			PrivateNotes   string                `json:"private_notes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		review, ok := loadOwn(c)
		if !ok {
			return
		}
		submitted, err := reviews.SubmitReview(c.Request.Context(), review.ID, req.Recommendation, req.Feedback, req.PrivateNotes)
		if err != nil {
			respondError(c, log, err, "submit review")
			return
		}
		c.JSON(http.StatusOK, services.ReviewerView(submitted))
	})

	rg.POST("/:id/decline", func(c *gin.Context) {
		review, ok := loadOwn(c)
		if !ok {
			return
		}
		declined, err := reviews.Decline(c.Request.Context(), review.ID)
		if err != nil {
			respondError(c, log, err, "decline review")
			return
		}
		c.JSON(http.StatusOK, services.ReviewerView(declined))
	})
}
