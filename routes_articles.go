package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/services"
)

const defaultFeaturedLimit = 6

// setupArticleRoutes konfiguriert die öffentlichen Artikel-Routen.
func setupArticleRoutes(router *gin.Engine, articles *services.ArticleService, log *zap.Logger) {
	rg := router.Group("/articles")

	rg.GET("", func(c *gin.Context) {
		volume, ok1 := queryInt(c, "volume")
		issue, ok2 := queryInt(c, "issue")
		limit, ok3 := queryInt(c, "limit")
		if !ok1 || !ok2 || !ok3 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "volume, issue and limit must be numbers"})
			return
		}
		filter := services.ArticleFilter{Volume: volume, Issue: issue, Category: c.Query("category")}
		if limit != nil {
			filter.Limit = *limit
		}
		list, err := articles.ListPublished(c.Request.Context(), filter)
		if err != nil {
			respondError(c, log, err, "load articles")
			return
		}
		c.JSON(http.StatusOK, list)
	})

	rg.GET("/featured", func(c *gin.Context) {
		list, err := articles.ListPublished(c.Request.Context(), services.ArticleFilter{Featured: true, Limit: defaultFeaturedLimit})
		if err != nil {
			respondError(c, log, err, "load featured articles")
			return
		}
		c.JSON(http.StatusOK, list)
	})

	rg.GET("/archive", func(c *gin.Context) {
		groups, err := articles.Archive(c.Request.Context())
		if err != nil {
			respondError(c, log, err, "load archive")
			return
		}
		c.JSON(http.StatusOK, groups)
	})

	// Artikelseite, zählt den Aufruf
	rg.GET("/:slug", func(c *gin.Context) {
		article, err := articles.GetPublishedBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			respondError(c, log, err, "load article")
			return
		}
		c.JSON(http.StatusOK, article)
	})
}
